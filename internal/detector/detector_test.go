package detector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tripwatch/tripwatch/internal/flightdata"
)

func snap(status, gate string, estimatedOut *time.Time) *flightdata.FlightSnapshot {
	return &flightdata.FlightSnapshot{Status: status, GateOrigin: gate, EstimatedOut: estimatedOut}
}

func at(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestDetect_FirstObservationIsBaseline(t *testing.T) {
	current := snap("Scheduled", "D1", nil)
	assert.Empty(t, Detect(nil, current))
}

func TestDetect_IdenticalSnapshotsNoEvents(t *testing.T) {
	s := snap("Delayed", "D1", at("2025-12-01T19:30:00Z"))
	assert.Empty(t, Detect(s, s))
}

func TestDetect_StatusChangeOnlyWhenMapped(t *testing.T) {
	prev := snap("Scheduled", "", nil)
	cur := snap("Boarding", "", nil)
	events := Detect(prev, cur)
	assert.Len(t, events, 1)
	assert.Equal(t, KindStatusChange, events[0].Kind)
	assert.Equal(t, "BOARDING", events[0].NotificationType)
}

func TestDetect_StatusChangeSuppressedWhenTargetIsNoNotification(t *testing.T) {
	prev := snap("Boarding", "", nil)
	cur := snap("En Route", "", nil)
	assert.Empty(t, Detect(prev, cur))
}

func TestDetect_GateChangeRequiresBothNonNull(t *testing.T) {
	prev := snap("Scheduled", "", nil)
	cur := snap("Scheduled", "D19", nil)
	assert.Empty(t, Detect(prev, cur), "null to value gate change must be suppressed")

	prev2 := snap("Scheduled", "D16", nil)
	cur2 := snap("Scheduled", "D19", nil)
	events := Detect(prev2, cur2)
	assert.Len(t, events, 1)
	assert.Equal(t, KindGateChange, events[0].Kind)
}

func TestDetect_InitialEstimateFalsePositiveSuppressed(t *testing.T) {
	prev := snap("Scheduled", "", nil)
	cur := snap("Scheduled", "", at("2025-12-01T19:30:00Z"))
	assert.Empty(t, Detect(prev, cur))
}

func TestDetect_CancellationAlwaysEmits(t *testing.T) {
	prev := &flightdata.FlightSnapshot{Status: "Scheduled"}
	cur := &flightdata.FlightSnapshot{Status: "Cancelled", Cancelled: true}
	events := Detect(prev, cur)
	found := false
	for _, e := range events {
		if e.Kind == KindCancellation {
			found = true
		}
	}
	assert.True(t, found)
}

func TestIsActualDelay_BoundaryDeltas(t *testing.T) {
	base := at("2025-12-01T19:30:00Z")

	plus4 := at("2025-12-01T19:34:00Z")
	assert.False(t, IsActualDelay(base, plus4, "Delayed"), "4 min delta with Delayed must not trigger")

	plus5 := at("2025-12-01T19:35:00Z")
	assert.True(t, IsActualDelay(base, plus5, "Delayed"), "5 min delta with Delayed must trigger")

	plus14 := at("2025-12-01T19:44:00Z")
	assert.False(t, IsActualDelay(base, plus14, "Scheduled"), "14 min delta without Delayed status must not trigger")

	plus15 := at("2025-12-01T19:45:00Z")
	assert.True(t, IsActualDelay(base, plus15, "Scheduled"), "15 min delta always triggers regardless of status")
}

func TestIsActualDelay_EarlyDepartureNeverADelay(t *testing.T) {
	base := at("2025-12-01T19:30:00Z")
	earlier := at("2025-12-01T19:00:00Z")
	assert.False(t, IsActualDelay(base, earlier, "Delayed"))
}

func TestIsActualDelay_NilTimesAreFalse(t *testing.T) {
	base := at("2025-12-01T19:30:00Z")
	assert.False(t, IsActualDelay(nil, base, "Delayed"))
	assert.False(t, IsActualDelay(base, nil, "Delayed"))
}
