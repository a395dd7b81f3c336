package notify

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestIdempotencyKey_DeterministicForSameInput(t *testing.T) {
	tripID := uuid.New()
	extra := map[string]string{"b": "2", "a": "1"}
	k1 := IdempotencyKey(tripID, TypeDelayed, extra)
	k2 := IdempotencyKey(tripID, TypeDelayed, map[string]string{"a": "1", "b": "2"})
	assert.Equal(t, k1, k2, "key must be independent of map iteration order")
	assert.Len(t, k1, 16)
}

func TestIdempotencyKey_DiffersByType(t *testing.T) {
	tripID := uuid.New()
	extra := map[string]string{"a": "1"}
	k1 := IdempotencyKey(tripID, TypeDelayed, extra)
	k2 := IdempotencyKey(tripID, TypeGateChange, extra)
	assert.NotEqual(t, k1, k2)
}

func TestIdempotencyKey_DiffersByTrip(t *testing.T) {
	extra := map[string]string{"a": "1"}
	k1 := IdempotencyKey(uuid.New(), TypeDelayed, extra)
	k2 := IdempotencyKey(uuid.New(), TypeDelayed, extra)
	assert.NotEqual(t, k1, k2)
}
