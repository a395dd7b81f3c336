// Package store is the durable persistence layer for trips, flight-status
// history, and the notification ledger. It owns every persisted row; no
// other component mutates state directly.
package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Trip is a tracked booking.
type Trip struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ContactHandle      string    `gorm:"size:32;index:idx_trip_dup,priority:1" json:"contact_handle"`
	FlightNumber       string    `gorm:"size:10;index:idx_trip_dup,priority:2" json:"flight_number"`
	OriginIATA         string    `gorm:"size:3" json:"origin_iata"`
	DestinationIATA    string    `gorm:"size:3" json:"destination_iata"`
	DepartureDate      time.Time `gorm:"index:idx_trip_dup,priority:3" json:"departure_date"` // always UTC
	Preferences        string    `gorm:"type:text" json:"preferences"`
	AgencyID           *uuid.UUID `gorm:"type:uuid;index" json:"agency_id,omitempty"`
	Status             string    `gorm:"size:20;index" json:"status"`
	Gate               string    `gorm:"size:10" json:"gate"`
	EstimatedArrival   *time.Time `json:"estimated_arrival,omitempty"`
	Metadata           string    `gorm:"type:text" json:"metadata"` // JSON blob, e.g. {"flight_data": {...}}
	NextCheckAt        *time.Time `gorm:"index" json:"next_check_at,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (Trip) TableName() string { return "trips" }

func (t *Trip) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// IsTerminal reports whether the trip has reached a lifecycle end-state
// per the invariant in spec.md §3: next_check_at null iff the trip is
// past its terminal lifecycle.
func (t *Trip) IsTerminal() bool {
	return t.NextCheckAt == nil
}

// FlightStatusHistoryRow is an append-only row keyed by (trip_id, recorded_at).
type FlightStatusHistoryRow struct {
	ID                     uint      `gorm:"primaryKey" json:"id"`
	TripID                 uuid.UUID `gorm:"type:uuid;index:idx_history_trip_time,priority:1" json:"trip_id"`
	RecordedAt             time.Time `gorm:"index:idx_history_trip_time,priority:2" json:"recorded_at"`
	Status                 string    `gorm:"size:20" json:"status"`
	EstimatedOut           *time.Time `json:"estimated_out,omitempty"`
	ActualOut              *time.Time `json:"actual_out,omitempty"`
	EstimatedIn            *time.Time `json:"estimated_in,omitempty"`
	ActualIn               *time.Time `json:"actual_in,omitempty"`
	GateOrigin             string    `gorm:"size:10" json:"gate_origin"`
	GateDestination        string    `gorm:"size:10" json:"gate_destination"`
	DepartureDelayMinutes  int       `json:"departure_delay_minutes"`
	ArrivalDelayMinutes    int       `json:"arrival_delay_minutes"`
	Cancelled              bool      `json:"cancelled"`
	Diverted               bool      `json:"diverted"`
	ProgressPercent        int       `json:"progress_percent"`
	OriginIATA             string    `gorm:"size:3" json:"origin_iata"`
	DestinationIATA        string    `gorm:"size:3" json:"destination_iata"`
	AircraftType           string    `gorm:"size:20" json:"aircraft_type"`
	RawPayload             string    `gorm:"type:text" json:"raw_payload"`
}

func (FlightStatusHistoryRow) TableName() string { return "flight_status_history" }

// DeliveryState is the lifecycle of a notification send.
type DeliveryState string

const (
	DeliveryPending DeliveryState = "PENDING"
	DeliverySent    DeliveryState = "SENT"
	DeliveryFailed  DeliveryState = "FAILED"
)

// NotificationLogRow is the exactly-once ledger entry for a dispatched
// (or attempted) notification.
type NotificationLogRow struct {
	ID               uint          `gorm:"primaryKey" json:"id"`
	TripID           uuid.UUID     `gorm:"type:uuid;uniqueIndex:idx_notif_idem_unique,priority:1" json:"trip_id"`
	NotificationType string        `gorm:"size:32;index" json:"notification_type"`
	TemplateID       string        `gorm:"size:64" json:"template_id"`
	DeliveryState    DeliveryState `gorm:"size:10" json:"delivery_state"`
	ProviderMessageID string       `gorm:"size:64" json:"provider_message_id"`
	ErrorText        string        `gorm:"type:text" json:"error_text"`
	IdempotencyKey   string        `gorm:"size:16;uniqueIndex:idx_notif_idem_unique,priority:2" json:"idempotency_key"`
	RetryCount       int           `json:"retry_count"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
	SentAt           *time.Time    `json:"sent_at,omitempty"`
	// ExtraEstimatedOut pins the estimated_out value a DELAYED send was
	// rendered against, so the dispatcher's cooldown can tell a repeat
	// notice from a materially later delay.
	ExtraEstimatedOut *time.Time `json:"extra_estimated_out,omitempty"`
	// RenderedVariables is the JSON-encoded template variable map used
	// for the send, kept so a failed delivery can be retried with the
	// exact original payload.
	RenderedVariables string `gorm:"type:text" json:"rendered_variables,omitempty"`
}

func (NotificationLogRow) TableName() string { return "notifications_log" }

// ItineraryStatus enumerates the external itinerary generator's lifecycle.
type ItineraryStatus string

const (
	ItineraryDraft        ItineraryStatus = "draft"
	ItineraryApproved     ItineraryStatus = "approved"
	ItineraryRegenerating ItineraryStatus = "regenerating"
)

// Itinerary is the schema-only shadow of the external itinerary
// generator's output; the core only enqueues generation and tracks status.
type Itinerary struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	TripID    uuid.UUID       `gorm:"type:uuid;index" json:"trip_id"`
	Version   int             `json:"version"`
	Status    ItineraryStatus `gorm:"size:16" json:"status"`
	Body      string          `gorm:"type:text" json:"body"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (Itinerary) TableName() string { return "itineraries" }
