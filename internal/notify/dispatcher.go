package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tripwatch/tripwatch/internal/apperr"
	"github.com/tripwatch/tripwatch/internal/metrics"
	"github.com/tripwatch/tripwatch/internal/store"
	"github.com/tripwatch/tripwatch/internal/timezone"
)

const delayedCooldown = 15 * time.Minute

// Dispatcher is the Notification Dispatcher (C6): idempotency,
// cooldowns, quiet hours and the render→log→send pipeline.
type Dispatcher struct {
	store     *store.Store
	messaging *MessagingClient
	resolver  *timezone.Resolver
	metrics   *metrics.Metrics
	logger    *zap.SugaredLogger
}

func NewDispatcher(s *store.Store, messaging *MessagingClient, resolver *timezone.Resolver, m *metrics.Metrics, logger *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{store: s, messaging: messaging, resolver: resolver, metrics: m, logger: logger}
}

// SendRequest carries everything Send needs to render and deliver one
// notification.
type SendRequest struct {
	Trip             *store.Trip
	Type             Type
	Extra            map[string]string
	CurrentEstimOut  *time.Time
}

// Send runs the full dispatch pipeline and returns the outcome.
func (d *Dispatcher) Send(ctx context.Context, req SendRequest) (result Result) {
	defer func() {
		if d.metrics == nil {
			return
		}
		d.metrics.NotificationsTotal.WithLabelValues(string(req.Type), string(result.Outcome)).Inc()
	}()

	key := IdempotencyKey(req.Trip.ID, req.Type, req.Extra)

	existing, err := d.store.LookupNotification(ctx, req.Trip.ID, key)
	if err != nil {
		return Result{Outcome: OutcomeFailed, Err: err}
	}
	if existing != nil && existing.DeliveryState == store.DeliverySent {
		return Result{Outcome: OutcomeAlreadySent, NotificationID: existing.ID}
	}

	if req.Type == TypeReminder24h && d.inQuietHours(req.Trip) {
		d.logger.Infow("suppressing reminder during quiet hours", "trip_id", req.Trip.ID)
		return Result{Outcome: OutcomeQuietHours}
	}

	if req.Type == TypeDelayed {
		suppress, err := d.delayedCooldownActive(ctx, req.Trip.ID, req.CurrentEstimOut)
		if err != nil {
			return Result{Outcome: OutcomeFailed, Err: err}
		}
		if suppress {
			return Result{Outcome: OutcomeCooldown}
		}
	}

	variables := RenderVariables(req.Type, req.Trip, req.Extra, d.resolver)
	variablesJSON, _ := json.Marshal(variables)

	row := &store.NotificationLogRow{
		TripID:            req.Trip.ID,
		NotificationType:  string(req.Type),
		TemplateID:        TemplateID(req.Type),
		DeliveryState:     store.DeliveryPending,
		IdempotencyKey:    key,
		ExtraEstimatedOut: req.CurrentEstimOut,
		RenderedVariables: string(variablesJSON),
	}
	if err := d.store.LogNotification(ctx, row); err != nil {
		return Result{Outcome: OutcomeFailed, Err: err}
	}

	providerMsgID, sendErr := d.messaging.Send(ctx, req.Trip.ContactHandle, TemplateID(req.Type), variables)
	if sendErr != nil {
		errText := sendErr.Error()
		if updErr := d.store.UpdateNotificationState(ctx, row.ID, store.DeliveryFailed, "", errText); updErr != nil {
			d.logger.Errorw("failed to record FAILED notification state", "error", updErr)
		}
		return Result{Outcome: OutcomeFailed, NotificationID: row.ID, Err: apperr.New(apperr.MessagingSend, "notify.Send", "messaging provider send failed", sendErr)}
	}

	if err := d.store.UpdateNotificationState(ctx, row.ID, store.DeliverySent, providerMsgID, ""); err != nil {
		d.logger.Errorw("failed to record SENT notification state", "error", err)
	}
	return Result{Outcome: OutcomeSent, NotificationID: row.ID, ProviderMessageID: providerMsgID}
}

// delayedCooldownActive applies the 15-minute DELAYED cooldown: a
// second DELAYED send within the window is suppressed unless the new
// estimated_out differs from the last-sent one by >= 15 minutes.
func (d *Dispatcher) delayedCooldownActive(ctx context.Context, tripID uuid.UUID, currentEstimOut *time.Time) (bool, error) {
	history, err := d.store.GetNotificationHistory(ctx, tripID, string(TypeDelayed))
	if err != nil {
		return false, err
	}
	return delayedCooldownSuppressed(history, currentEstimOut, time.Now().UTC()), nil
}

// delayedCooldownSuppressed is the pure decision behind
// delayedCooldownActive, split out so the 15-minute boundary can be
// tested without a store: a second DELAYED send is suppressed if the
// last SENT one landed under delayedCooldown ago and its estimated_out
// differs from the new one by less than 15 minutes.
func delayedCooldownSuppressed(history []store.NotificationLogRow, currentEstimOut *time.Time, now time.Time) bool {
	for _, row := range history {
		if row.DeliveryState != store.DeliverySent || row.SentAt == nil {
			continue
		}
		if now.Sub(*row.SentAt) >= delayedCooldown {
			continue
		}
		if currentEstimOut == nil || row.ExtraEstimatedOut == nil {
			return true
		}
		delta := currentEstimOut.Sub(*row.ExtraEstimatedOut)
		if delta < 0 {
			delta = -delta
		}
		if delta >= 15*time.Minute {
			return false
		}
		return true
	}
	return false
}

// inQuietHours reports whether it is currently between 22:00 and
// 08:00 passenger-local time, derived from the trip's origin airport.
func (d *Dispatcher) inQuietHours(trip *store.Trip) bool {
	return d.inQuietHoursAt(trip, time.Now().UTC())
}

func (d *Dispatcher) inQuietHoursAt(trip *store.Trip, nowUTC time.Time) bool {
	local := d.resolver.UTCToLocal(nowUTC, trip.OriginIATA)
	hour := local.Hour()
	return hour >= 22 || hour < 8
}
