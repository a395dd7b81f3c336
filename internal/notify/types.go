// Package notify implements the exactly-once notification dispatcher:
// idempotency key derivation, cooldowns, quiet hours, template
// rendering and the outbound messaging call with its own circuit
// breaker, plus the failed-delivery retry service.
package notify

// Type enumerates the closed set of notification kinds.
type Type string

const (
	TypeReservationConfirmation Type = "RESERVATION_CONFIRMATION"
	TypeReminder24h             Type = "REMINDER_24H"
	TypeDelayed                 Type = "DELAYED"
	TypeGateChange              Type = "GATE_CHANGE"
	TypeCancelled               Type = "CANCELLED"
	TypeBoarding                Type = "BOARDING"
	TypeLandingWelcome          Type = "LANDING_WELCOME"
	TypeItineraryReady          Type = "ITINERARY_READY"
)

// templateID maps each notification type to its stable identifier
// registered with the external messaging provider.
var templateID = map[Type]string{
	TypeReservationConfirmation: "trip_reservation_confirmation_v1",
	TypeReminder24h:             "trip_reminder_24h_v1",
	TypeDelayed:                 "trip_delayed_v1",
	TypeGateChange:              "trip_gate_change_v1",
	TypeCancelled:               "trip_cancelled_v1",
	TypeBoarding:                "trip_boarding_v1",
	TypeLandingWelcome:          "trip_landing_welcome_v1",
	TypeItineraryReady:          "trip_itinerary_ready_v1",
}

// TemplateID returns the stable template identifier for t.
func TemplateID(t Type) string { return templateID[t] }

// Result is returned by Send.
type Result struct {
	Outcome           Outcome
	NotificationID    uint
	ProviderMessageID string
	Err               error
}

// Outcome classifies what Send actually did.
type Outcome string

const (
	OutcomeSent          Outcome = "sent"
	OutcomeAlreadySent   Outcome = "already_sent"
	OutcomeCooldown      Outcome = "cooldown"
	OutcomeQuietHours    Outcome = "quiet_hours"
	OutcomeFailed        Outcome = "failed"
)
