package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tripwatch/tripwatch/internal/store"
	"github.com/tripwatch/tripwatch/internal/timezone"
)

func sentDelayedRow(sentAt time.Time, estimatedOut time.Time) []store.NotificationLogRow {
	return []store.NotificationLogRow{
		{
			NotificationType:  string(TypeDelayed),
			DeliveryState:     store.DeliverySent,
			SentAt:            &sentAt,
			ExtraEstimatedOut: &estimatedOut,
		},
	}
}

func TestDelayedCooldownSuppressed_SameEstimateWithinWindow(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	sentAt := now.Add(-14 * time.Minute)
	estimatedOut := now.Add(2 * time.Hour)
	history := sentDelayedRow(sentAt, estimatedOut)

	newEstimatedOut := estimatedOut
	require.True(t, delayedCooldownSuppressed(history, &newEstimatedOut, now))
}

func TestDelayedCooldownSuppressed_EstimateShiftsPastThreshold(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	sentAt := now.Add(-14 * time.Minute)
	estimatedOut := now.Add(2 * time.Hour)
	history := sentDelayedRow(sentAt, estimatedOut)

	newEstimatedOut := estimatedOut.Add(15 * time.Minute)
	require.False(t, delayedCooldownSuppressed(history, &newEstimatedOut, now))
}

func TestDelayedCooldownSuppressed_EstimateShiftsUnderThreshold(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	sentAt := now.Add(-14 * time.Minute)
	estimatedOut := now.Add(2 * time.Hour)
	history := sentDelayedRow(sentAt, estimatedOut)

	newEstimatedOut := estimatedOut.Add(10 * time.Minute)
	require.True(t, delayedCooldownSuppressed(history, &newEstimatedOut, now))
}

func TestDelayedCooldownSuppressed_OutsideCooldownWindow(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	sentAt := now.Add(-16 * time.Minute)
	estimatedOut := now.Add(2 * time.Hour)
	history := sentDelayedRow(sentAt, estimatedOut)

	newEstimatedOut := estimatedOut
	require.False(t, delayedCooldownSuppressed(history, &newEstimatedOut, now))
}

func TestDelayedCooldownSuppressed_NoPriorSend(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	newEstimatedOut := now.Add(2 * time.Hour)
	require.False(t, delayedCooldownSuppressed(nil, &newEstimatedOut, now))
}

func newTestDispatcher() *Dispatcher {
	return &Dispatcher{resolver: timezone.NewResolver(nil)}
}

func TestInQuietHoursAt(t *testing.T) {
	d := newTestDispatcher()
	trip := &store.Trip{OriginIATA: "JFK"}

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	quiet := time.Date(2026, 1, 15, 23, 0, 0, 0, loc)
	awake := time.Date(2026, 1, 15, 12, 0, 0, 0, loc)
	boundaryOpen := time.Date(2026, 1, 15, 22, 0, 0, 0, loc)
	boundaryClose := time.Date(2026, 1, 15, 8, 0, 0, 0, loc)

	require.True(t, d.inQuietHoursAt(trip, quiet.UTC()))
	require.False(t, d.inQuietHoursAt(trip, awake.UTC()))
	require.True(t, d.inQuietHoursAt(trip, boundaryOpen.UTC()))
	require.False(t, d.inQuietHoursAt(trip, boundaryClose.UTC()))
}

func TestInQuietHoursAt_UnknownAirportDefaultsToUTC(t *testing.T) {
	d := newTestDispatcher()
	trip := &store.Trip{OriginIATA: "ZZZ"}

	require.True(t, d.inQuietHoursAt(trip, time.Date(2026, 1, 15, 23, 0, 0, 0, time.UTC)))
	require.False(t, d.inQuietHoursAt(trip, time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)))
}
