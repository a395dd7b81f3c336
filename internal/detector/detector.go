// Package detector compares consecutive flight snapshots and emits the
// change events that matter to passengers, filtering out the provider
// noise (null flapping, moderate drift) documented in spec scenario
// walkthroughs.
package detector

import (
	"time"

	"github.com/tripwatch/tripwatch/internal/flightdata"
)

// Kind enumerates the change-event categories this package emits.
type Kind string

const (
	KindStatusChange         Kind = "status_change"
	KindGateChange           Kind = "gate_change"
	KindDepartureTimeChange  Kind = "departure_time_change"
	KindCancellation         Kind = "cancellation"
	KindDivert               Kind = "divert"
)

// ChangeEvent is one detected difference between two snapshots.
type ChangeEvent struct {
	Kind             Kind
	Old              string
	New              string
	NotificationType string
}

const noNotification = "no_notification"

// statusNotificationType maps the closed set of provider status labels
// to the notification type they trigger, if any.
var statusNotificationType = map[string]string{
	"Scheduled": noNotification,
	"On Time":   noNotification,
	"Taxiing":   noNotification,
	"Pushback":  noNotification,
	"Unknown":   noNotification,
	"En Route":  noNotification,
	"Arrived":   noNotification,
	"Delayed":   "DELAYED",
	"Cancelled": "CANCELLED",
	"Boarding":  "BOARDING",
}

// mapStatus returns the notification type for a status label. Tokens
// outside the closed set map to no_notification.
func mapStatus(status string) string {
	if t, ok := statusNotificationType[status]; ok {
		return t
	}
	return noNotification
}

// Detect compares previous against current and returns the ordered
// list of change events. previous == nil means current is the first
// observation for the trip, which never produces events.
func Detect(previous, current *flightdata.FlightSnapshot) []ChangeEvent {
	if previous == nil || current == nil {
		return nil
	}

	var events []ChangeEvent

	prevType := mapStatus(previous.Status)
	curType := mapStatus(current.Status)
	if curType != noNotification && curType != prevType {
		events = append(events, ChangeEvent{
			Kind:             KindStatusChange,
			Old:              previous.Status,
			New:              current.Status,
			NotificationType: curType,
		})
	}

	if previous.GateOrigin != "" && current.GateOrigin != "" && previous.GateOrigin != current.GateOrigin {
		events = append(events, ChangeEvent{
			Kind:             KindGateChange,
			Old:              previous.GateOrigin,
			New:              current.GateOrigin,
			NotificationType: "GATE_CHANGE",
		})
	}

	if IsActualDelay(previous.EstimatedOut, current.EstimatedOut, current.Status) {
		events = append(events, ChangeEvent{
			Kind:             KindDepartureTimeChange,
			Old:              formatOrEmpty(previous.EstimatedOut),
			New:              formatOrEmpty(current.EstimatedOut),
			NotificationType: "DELAYED",
		})
	}

	if current.Cancelled && !previous.Cancelled {
		events = append(events, ChangeEvent{
			Kind:             KindCancellation,
			Old:              previous.Status,
			New:              current.Status,
			NotificationType: "CANCELLED",
		})
	}

	if current.Diverted && !previous.Diverted {
		events = append(events, ChangeEvent{
			Kind:             KindDivert,
			Old:              previous.DestinationIATA,
			New:              current.DestinationIATA,
			NotificationType: noNotification,
		})
	}

	return events
}

// IsActualDelay decides whether a change in estimated_out represents a
// genuine delay worth notifying about, versus moderate drift the
// provider will likely correct on its own.
func IsActualDelay(previous, current *time.Time, currentStatus string) bool {
	if previous == nil || current == nil {
		return false
	}
	if !current.After(*previous) {
		return false
	}
	delta := current.Sub(*previous)
	if mapStatus(currentStatus) == "DELAYED" && delta >= 5*time.Minute {
		return true
	}
	if delta >= 15*time.Minute {
		return true
	}
	return false
}

func formatOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
