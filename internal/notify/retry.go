package notify

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/tripwatch/tripwatch/internal/store"
)

const (
	retryBaseDelay = 2 * time.Second
	retryFactor    = 2
	retryCapDelay  = 5 * time.Minute
	maxRetries     = 5
)

// RetryService drains FAILED notification rows with exponential
// backoff, independent of the main Send pipeline.
type RetryService struct {
	store     *store.Store
	messaging *MessagingClient
	logger    *zap.SugaredLogger
}

func NewRetryService(s *store.Store, messaging *MessagingClient, logger *zap.SugaredLogger) *RetryService {
	return &RetryService{store: s, messaging: messaging, logger: logger}
}

// RunOnce drains one pass of eligible FAILED rows. cmd/tripwatch calls
// it once a minute from its retry ticker goroutine.
func (r *RetryService) RunOnce(ctx context.Context) {
	rows, err := r.store.ListFailedNotifications(ctx, maxRetries)
	if err != nil {
		r.logger.Errorw("failed listing notifications for retry", "error", err)
		return
	}

	for _, row := range rows {
		if !r.dueForRetry(row) {
			continue
		}
		r.retryOne(ctx, row)
	}
}

func (r *RetryService) dueForRetry(row store.NotificationLogRow) bool {
	delay := retryBaseDelay * time.Duration(pow(retryFactor, row.RetryCount))
	if delay > retryCapDelay {
		delay = retryCapDelay
	}
	return time.Since(row.UpdatedAt) >= delay
}

func (r *RetryService) retryOne(ctx context.Context, row store.NotificationLogRow) {
	trip, err := r.store.GetTripByID(ctx, row.TripID)
	if err != nil {
		r.logger.Errorw("retry: trip lookup failed", "notification_id", row.ID, "error", err)
		return
	}

	var variables map[string]string
	if row.RenderedVariables != "" {
		_ = json.Unmarshal([]byte(row.RenderedVariables), &variables)
	}
	providerMsgID, sendErr := r.messaging.Send(ctx, trip.ContactHandle, row.TemplateID, variables)
	if err := r.store.IncrementRetryCount(ctx, row.ID); err != nil {
		r.logger.Errorw("retry: increment retry_count failed", "notification_id", row.ID, "error", err)
	}
	if sendErr != nil {
		if err := r.store.UpdateNotificationState(ctx, row.ID, store.DeliveryFailed, "", sendErr.Error()); err != nil {
			r.logger.Errorw("retry: update FAILED state failed", "notification_id", row.ID, "error", err)
		}
		return
	}
	if err := r.store.UpdateNotificationState(ctx, row.ID, store.DeliverySent, providerMsgID, ""); err != nil {
		r.logger.Errorw("retry: update SENT state failed", "notification_id", row.ID, "error", err)
	}
}

func pow(base, exp int) int64 {
	result := int64(1)
	for i := 0; i < exp; i++ {
		result *= int64(base)
	}
	return result
}
