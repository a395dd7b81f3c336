package consolidator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tripwatch/tripwatch/internal/detector"
)

func ev(kind detector.Kind, old, new_, notifType string) detector.ChangeEvent {
	return detector.ChangeEvent{Kind: kind, Old: old, New: new_, NotificationType: notifType}
}

func TestConsolidate_PingPongDropsEntirely(t *testing.T) {
	events := []detector.ChangeEvent{
		ev(detector.KindDepartureTimeChange, "A", "B", "DELAYED"),
		ev(detector.KindDepartureTimeChange, "B", "A", "DELAYED"),
	}
	assert.Empty(t, Consolidate(events))
}

func TestConsolidate_ThreeWayKeepsSingleEvent(t *testing.T) {
	events := []detector.ChangeEvent{
		ev(detector.KindDepartureTimeChange, "A", "B", "DELAYED"),
		ev(detector.KindDepartureTimeChange, "B", "C", "DELAYED"),
	}
	result := Consolidate(events)
	assert.Len(t, result, 1)
	assert.Equal(t, "A", result[0].Old)
	assert.Equal(t, "C", result[0].New)
}

func TestConsolidate_NullVsConcretePreference(t *testing.T) {
	events := []detector.ChangeEvent{
		ev(detector.KindDepartureTimeChange, "02:30Z", "", "DELAYED"),
		ev(detector.KindDepartureTimeChange, "", "02:30Z", "DELAYED"),
		ev(detector.KindDepartureTimeChange, "02:30Z", "03:00Z", "DELAYED"),
	}
	result := Consolidate(events)
	assert.Len(t, result, 1)
	assert.Equal(t, "03:00Z", result[0].New, "final concrete value wins over intermediate null")
}

func TestConsolidate_DistinctKindsAreIndependent(t *testing.T) {
	events := []detector.ChangeEvent{
		ev(detector.KindGateChange, "D16", "D19", "GATE_CHANGE"),
		ev(detector.KindStatusChange, "Scheduled", "Boarding", "BOARDING"),
	}
	result := Consolidate(events)
	assert.Len(t, result, 2)
}

func TestConsolidate_EmptyInput(t *testing.T) {
	assert.Empty(t, Consolidate(nil))
}
