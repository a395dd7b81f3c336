// Package polling implements the Polling Engine (C7): next-check-time
// cadence, per-trip serialization via a keyed mutex backed by a Redis
// distributed lock, and the fixed worker pool that drains due trips.
package polling

import "time"

const transientErrorCadenceCap = 10 * time.Minute

// CalculateNextCheckTime returns the next poll instant for a trip
// departing at departureUTC, evaluated at now, or nil when polling
// should stop.
func CalculateNextCheckTime(departureUTC, now time.Time) *time.Time {
	untilDeparture := departureUTC.Sub(now)

	var next time.Time
	switch {
	case untilDeparture > 24*time.Hour:
		next = now.Add(6 * time.Hour)
	case untilDeparture > 4*time.Hour:
		next = now.Add(1 * time.Hour)
	case untilDeparture >= 0:
		next = now.Add(15 * time.Minute)
	case untilDeparture > -12*time.Hour:
		next = now.Add(30 * time.Minute)
	default:
		return nil
	}
	return &next
}

// ApplyTransientBackoffCap shortens a computed next-check instant
// after a transient provider error, per spec.md §4.7: min(normal
// cadence, 10 min).
func ApplyTransientBackoffCap(next *time.Time, now time.Time) *time.Time {
	if next == nil {
		capped := now.Add(transientErrorCadenceCap)
		return &capped
	}
	ceiling := now.Add(transientErrorCadenceCap)
	if next.After(ceiling) {
		return &ceiling
	}
	return next
}
