package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tripwatch/tripwatch/internal/apperr"
)

// Store is the repository over Trip, FlightStatusHistoryRow and
// NotificationLogRow. It is the only component allowed to mutate
// persisted state.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// CreateTripPayload is the validated input for CreateTrip. DepartureUTC
// must already be in UTC — conversion from airport-local time happens in
// the caller (the orchestrator) via internal/timezone before this point.
type CreateTripPayload struct {
	ContactHandle   string
	FlightNumber    string
	OriginIATA      string
	DestinationIATA string
	DepartureUTC    time.Time
	Preferences     string
	AgencyID        *uuid.UUID
	Metadata        string
}

// CreateTrip inserts a new trip, enforcing the duplicate rule: same
// contact handle AND flight number AND departure date (day granularity,
// UTC).
func (s *Store) CreateTrip(ctx context.Context, p CreateTripPayload) (*Trip, error) {
	dayStart := time.Date(p.DepartureUTC.Year(), p.DepartureUTC.Month(), p.DepartureUTC.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	var existing Trip
	err := s.db.WithContext(ctx).
		Where("contact_handle = ? AND flight_number = ? AND departure_date >= ? AND departure_date < ?",
			p.ContactHandle, p.FlightNumber, dayStart, dayEnd).
		First(&existing).Error
	switch {
	case err == nil:
		return nil, apperr.New(apperr.Duplicate, "store.CreateTrip", "trip already exists for this contact, flight and day", nil)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperr.New(apperr.Persistence, "store.CreateTrip", "lookup existing trip", err)
	}

	trip := &Trip{
		ContactHandle:   p.ContactHandle,
		FlightNumber:    p.FlightNumber,
		OriginIATA:      p.OriginIATA,
		DestinationIATA: p.DestinationIATA,
		DepartureDate:   p.DepartureUTC.UTC(),
		Preferences:     p.Preferences,
		AgencyID:        p.AgencyID,
		Status:          "Scheduled",
		Metadata:        p.Metadata,
	}
	if err := s.db.WithContext(ctx).Create(trip).Error; err != nil {
		return nil, apperr.New(apperr.Persistence, "store.CreateTrip", "insert trip", err)
	}
	return trip, nil
}

func (s *Store) GetTripByID(ctx context.Context, id uuid.UUID) (*Trip, error) {
	var trip Trip
	if err := s.db.WithContext(ctx).First(&trip, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "store.GetTripByID", "trip not found", err)
		}
		return nil, apperr.New(apperr.Persistence, "store.GetTripByID", "query trip", err)
	}
	return &trip, nil
}

// GetTripsDueForPoll returns trips with next_check_at <= now whose
// departure falls within [now-2d, now+60d].
func (s *Store) GetTripsDueForPoll(ctx context.Context, now time.Time) ([]Trip, error) {
	var trips []Trip
	windowStart := now.Add(-48 * time.Hour)
	windowEnd := now.Add(60 * 24 * time.Hour)
	err := s.db.WithContext(ctx).
		Where("next_check_at IS NOT NULL AND next_check_at <= ? AND departure_date BETWEEN ? AND ?", now, windowStart, windowEnd).
		Find(&trips).Error
	if err != nil {
		return nil, apperr.New(apperr.Persistence, "store.GetTripsDueForPoll", "query due trips", err)
	}
	return trips, nil
}

// AppendFlightStatus writes a new append-only history row. Callers must
// ensure recorded_at is monotonically non-decreasing for the trip; the
// database trigger (internal/store/migrations) is the backstop.
func (s *Store) AppendFlightStatus(ctx context.Context, tripID uuid.UUID, row FlightStatusHistoryRow) error {
	row.TripID = tripID
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return apperr.New(apperr.Persistence, "store.AppendFlightStatus", "insert history row", err)
	}
	return nil
}

// GetLatestStatus returns the most recently recorded snapshot for a trip,
// or nil if no history exists yet (first observation).
func (s *Store) GetLatestStatus(ctx context.Context, tripID uuid.UUID) (*FlightStatusHistoryRow, error) {
	var row FlightStatusHistoryRow
	err := s.db.WithContext(ctx).
		Where("trip_id = ?", tripID).
		Order("recorded_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.New(apperr.Persistence, "store.GetLatestStatus", "query latest history row", err)
	}
	return &row, nil
}

// UpdateTripFromSnapshot writes selected trip columns derived from the
// latest snapshot: status, gate, estimated arrival, metadata.flight_data.
func (s *Store) UpdateTripFromSnapshot(ctx context.Context, tripID uuid.UUID, status, gate string, estimatedArrival *time.Time, metadataJSON string) error {
	updates := map[string]interface{}{
		"status":            status,
		"gate":              gate,
		"estimated_arrival": estimatedArrival,
		"metadata":          metadataJSON,
	}
	if err := s.db.WithContext(ctx).Model(&Trip{}).Where("id = ?", tripID).Updates(updates).Error; err != nil {
		return apperr.New(apperr.Persistence, "store.UpdateTripFromSnapshot", "update trip", err)
	}
	return nil
}

// UpdateNextCheckAt sets (or clears, when next is nil) the trip's next
// poll instant.
func (s *Store) UpdateNextCheckAt(ctx context.Context, tripID uuid.UUID, next *time.Time) error {
	if err := s.db.WithContext(ctx).Model(&Trip{}).Where("id = ?", tripID).Update("next_check_at", next).Error; err != nil {
		return apperr.New(apperr.Persistence, "store.UpdateNextCheckAt", "update next_check_at", err)
	}
	return nil
}

// LogNotification inserts a notification log row; the unique index on
// (trip_id, idempotency_key) rejects duplicates at the database level as
// a backstop to the application-level LookupNotification check.
func (s *Store) LogNotification(ctx context.Context, row *NotificationLogRow) error {
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return apperr.New(apperr.Persistence, "store.LogNotification", "insert notification row", err)
	}
	return nil
}

// UpdateNotificationState transitions a notification row to SENT (with
// provider id) or FAILED (with error text).
func (s *Store) UpdateNotificationState(ctx context.Context, id uint, state DeliveryState, providerMessageID, errText string) error {
	updates := map[string]interface{}{"delivery_state": state}
	now := time.Now().UTC()
	if state == DeliverySent {
		updates["provider_message_id"] = providerMessageID
		updates["sent_at"] = &now
	}
	if state == DeliveryFailed {
		updates["error_text"] = errText
	}
	if err := s.db.WithContext(ctx).Model(&NotificationLogRow{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return apperr.New(apperr.Persistence, "store.UpdateNotificationState", "update notification row", err)
	}
	return nil
}

// IncrementRetryCount bumps the retry counter for a FAILED notification.
func (s *Store) IncrementRetryCount(ctx context.Context, id uint) error {
	if err := s.db.WithContext(ctx).Model(&NotificationLogRow{}).Where("id = ?", id).
		UpdateColumn("retry_count", gorm.Expr("retry_count + 1")).Error; err != nil {
		return apperr.New(apperr.Persistence, "store.IncrementRetryCount", "increment retry_count", err)
	}
	return nil
}

// LookupNotification returns the existing log row for (tripID, key), if any.
func (s *Store) LookupNotification(ctx context.Context, tripID uuid.UUID, idempotencyKey string) (*NotificationLogRow, error) {
	var row NotificationLogRow
	err := s.db.WithContext(ctx).
		Where("trip_id = ? AND idempotency_key = ?", tripID, idempotencyKey).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.New(apperr.Persistence, "store.LookupNotification", "query notification row", err)
	}
	return &row, nil
}

// GetNotificationHistory returns notification log rows for a trip,
// optionally filtered by notification type.
func (s *Store) GetNotificationHistory(ctx context.Context, tripID uuid.UUID, notificationType string) ([]NotificationLogRow, error) {
	q := s.db.WithContext(ctx).Where("trip_id = ?", tripID)
	if notificationType != "" {
		q = q.Where("notification_type = ?", notificationType)
	}
	var rows []NotificationLogRow
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, apperr.New(apperr.Persistence, "store.GetNotificationHistory", "query notification history", err)
	}
	return rows, nil
}

// ListFailedNotifications returns FAILED rows eligible for retry (under
// maxRetries) for the NotificationRetryService to drain.
func (s *Store) ListFailedNotifications(ctx context.Context, maxRetries int) ([]NotificationLogRow, error) {
	var rows []NotificationLogRow
	err := s.db.WithContext(ctx).
		Where("delivery_state = ? AND retry_count < ?", DeliveryFailed, maxRetries).
		Find(&rows).Error
	if err != nil {
		return nil, apperr.New(apperr.Persistence, "store.ListFailedNotifications", "query failed notifications", err)
	}
	return rows, nil
}

// WithTransaction runs fn within a database transaction, matching the
// teacher's Transaction helper.
func (s *Store) WithTransaction(fn func(*gorm.DB) error) error {
	return s.db.Transaction(fn)
}

// CreateItineraryDraft enqueues itinerary generation intent for a
// trip; the itinerary body itself is produced by an external
// collaborator and written back by a later call (out of core scope).
func (s *Store) CreateItineraryDraft(ctx context.Context, tripID uuid.UUID) error {
	itinerary := &Itinerary{TripID: tripID, Version: 1, Status: ItineraryDraft}
	if err := s.db.WithContext(ctx).Create(itinerary).Error; err != nil {
		return apperr.New(apperr.Persistence, "store.CreateItineraryDraft", "insert itinerary draft", err)
	}
	return nil
}

// FindTripsDepartingBetween supports the event scheduler's sweep queries
// (24h reminder, boarding window).
func (s *Store) FindTripsDepartingBetween(ctx context.Context, start, end time.Time) ([]Trip, error) {
	var trips []Trip
	if err := s.db.WithContext(ctx).Where("departure_date BETWEEN ? AND ?", start, end).Find(&trips).Error; err != nil {
		return nil, apperr.New(apperr.Persistence, "store.FindTripsDepartingBetween", "query trips by departure window", err)
	}
	return trips, nil
}

// FindLandedUnwelcomed returns trips whose latest history row indicates
// the flight has landed but no LANDING_WELCOME has been sent yet.
func (s *Store) FindLandedUnwelcomed(ctx context.Context) ([]Trip, error) {
	var trips []Trip
	sub := s.db.Table("flight_status_history h1").
		Select("h1.trip_id").
		Where("h1.status = ? OR h1.progress_percent >= 100 OR (h1.actual_in IS NOT NULL AND h1.actual_in < ?)", "Arrived", time.Now().UTC().Add(-30*time.Minute)).
		Where("h1.recorded_at = (SELECT MAX(h2.recorded_at) FROM flight_status_history h2 WHERE h2.trip_id = h1.trip_id)")

	err := s.db.WithContext(ctx).
		Where("id IN (?)", sub).
		Where("id NOT IN (SELECT trip_id FROM notifications_log WHERE notification_type = ? AND delivery_state = ?)", "LANDING_WELCOME", DeliverySent).
		Find(&trips).Error
	if err != nil {
		return nil, apperr.New(apperr.Persistence, "store.FindLandedUnwelcomed", "query landed trips", err)
	}
	return trips, nil
}
