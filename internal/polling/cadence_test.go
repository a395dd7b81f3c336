package polling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalculateNextCheckTime_CadenceWindows(t *testing.T) {
	now := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)

	far := now.Add(48 * time.Hour)
	next := CalculateNextCheckTime(far, now)
	assert.NotNil(t, next)
	assert.Equal(t, now.Add(6*time.Hour), *next)

	approaching := now.Add(10 * time.Hour)
	next = CalculateNextCheckTime(approaching, now)
	assert.Equal(t, now.Add(1*time.Hour), *next)

	imminent := now.Add(2 * time.Hour)
	next = CalculateNextCheckTime(imminent, now)
	assert.Equal(t, now.Add(15*time.Minute), *next)

	recentlyPast := now.Add(-6 * time.Hour)
	next = CalculateNextCheckTime(recentlyPast, now)
	assert.Equal(t, now.Add(30*time.Minute), *next)

	longPast := now.Add(-13 * time.Hour)
	next = CalculateNextCheckTime(longPast, now)
	assert.Nil(t, next, "polling must stop 12h after departure")
}

func TestApplyTransientBackoffCap_ShortensLongCadence(t *testing.T) {
	now := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	normal := now.Add(6 * time.Hour)
	capped := ApplyTransientBackoffCap(&normal, now)
	assert.Equal(t, now.Add(10*time.Minute), *capped)
}

func TestApplyTransientBackoffCap_LeavesShortCadenceAlone(t *testing.T) {
	now := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	normal := now.Add(5 * time.Minute)
	capped := ApplyTransientBackoffCap(&normal, now)
	assert.Equal(t, normal, *capped)
}

func TestApplyTransientBackoffCap_NilBecomesCap(t *testing.T) {
	now := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	capped := ApplyTransientBackoffCap(nil, now)
	assert.Equal(t, now.Add(10*time.Minute), *capped)
}
