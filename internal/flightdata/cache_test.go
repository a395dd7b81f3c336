package flightdata

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCache_MissWhenAbsent(t *testing.T) {
	c := NewCache()
	snap, present := c.Get("AA900", "2026-08-01")
	require.False(t, present)
	require.Nil(t, snap)
}

func TestCache_HitAfterSet(t *testing.T) {
	c := NewCache()
	want := &FlightSnapshot{FlightIdent: "AA900", Status: "Scheduled"}
	c.Set("AA900", "2026-08-01", want)

	snap, present := c.Get("AA900", "2026-08-01")
	require.True(t, present)
	require.Same(t, want, snap)
}

func TestCache_NegativeHitDistinctFromMiss(t *testing.T) {
	c := NewCache()
	c.SetNotFound("AA900", "2026-08-01")

	snap, present := c.Get("AA900", "2026-08-01")
	require.True(t, present, "a cached not-found must report present=true")
	require.Nil(t, snap)
}

func TestCache_Stats(t *testing.T) {
	c := NewCache()
	c.Get("AA900", "2026-08-01") // miss
	c.Set("AA900", "2026-08-01", &FlightSnapshot{})
	c.Get("AA900", "2026-08-01") // hit

	stats := c.Stats()
	require.Equal(t, int64(1), stats.Hits)
	require.Equal(t, int64(1), stats.Misses)
	require.InDelta(t, 0.5, stats.HitRate, 0.0001)
	require.Equal(t, 1, stats.Size)
}

func TestCache_DifferentDatesAreDistinctKeys(t *testing.T) {
	c := NewCache()
	c.Set("AA900", "2026-08-01", &FlightSnapshot{Status: "day1"})
	_, present := c.Get("AA900", "2026-08-02")
	require.False(t, present)
}
