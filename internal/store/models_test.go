package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestTrip_BeforeCreate_AssignsIDWhenNil(t *testing.T) {
	trip := &Trip{}
	require.NoError(t, trip.BeforeCreate(nil))
	require.NotEqual(t, uuid.Nil, trip.ID)
}

func TestTrip_BeforeCreate_PreservesExistingID(t *testing.T) {
	id := uuid.New()
	trip := &Trip{ID: id}
	require.NoError(t, trip.BeforeCreate(nil))
	require.Equal(t, id, trip.ID)
}

func TestTrip_IsTerminal(t *testing.T) {
	active := &Trip{}
	require.True(t, active.IsTerminal(), "nil next_check_at means terminal")

	future := time.Now().UTC().Add(time.Hour)
	trip := &Trip{NextCheckAt: &future}
	require.False(t, trip.IsTerminal())
}
