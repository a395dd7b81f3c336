// Package orchestrator wires the Clock, Flight-Data Client, Store,
// Detector, Consolidator, Notification Dispatcher, Polling Engine and
// Event Scheduler behind the three entry points named in spec.md §4.9.
package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tripwatch/tripwatch/internal/apperr"
	"github.com/tripwatch/tripwatch/internal/notify"
	"github.com/tripwatch/tripwatch/internal/polling"
	"github.com/tripwatch/tripwatch/internal/scheduler"
	"github.com/tripwatch/tripwatch/internal/store"
	"github.com/tripwatch/tripwatch/internal/timezone"
)

const shutdownGracePeriod = 30 * time.Second

// Orchestrator is the top-level coordinator (C9).
type Orchestrator struct {
	store     *store.Store
	dispatch  *notify.Dispatcher
	resolver  *timezone.Resolver
	engine    *polling.Engine
	scheduler *scheduler.Scheduler
	logger    *zap.SugaredLogger
}

func New(s *store.Store, dispatch *notify.Dispatcher, resolver *timezone.Resolver, engine *polling.Engine, sched *scheduler.Scheduler, logger *zap.SugaredLogger) *Orchestrator {
	return &Orchestrator{store: s, dispatch: dispatch, resolver: resolver, engine: engine, scheduler: sched, logger: logger}
}

// NewTripRequest is the validated input to OnTripCreated, assembled by
// the ingress layer from either the HTTP create-trip endpoint or the
// database-change webhook.
type NewTripRequest struct {
	ContactHandle   string
	FlightNumber    string
	OriginIATA      string
	DestinationIATA string
	DepartureLocal  time.Time // naive local time, airport-local
	Preferences     string
	AgencyID        *string
}

// OnTripCreated converts the local departure time to UTC, persists the
// trip, dispatches RESERVATION_CONFIRMATION, plants the event-scheduler
// jobs, and computes the first next_check_at.
func (o *Orchestrator) OnTripCreated(ctx context.Context, req NewTripRequest) (*store.Trip, error) {
	departureUTC, err := o.resolver.LocalToUTC(req.DepartureLocal, req.OriginIATA)
	if err != nil {
		return nil, err
	}

	var agencyID *uuid.UUID
	if req.AgencyID != nil && *req.AgencyID != "" {
		parsed, err := uuid.Parse(*req.AgencyID)
		if err != nil {
			return nil, apperr.New(apperr.Validation, "orchestrator.OnTripCreated", "invalid agency_id", err)
		}
		agencyID = &parsed
	}

	trip, err := o.store.CreateTrip(ctx, store.CreateTripPayload{
		ContactHandle:   req.ContactHandle,
		FlightNumber:    req.FlightNumber,
		OriginIATA:      req.OriginIATA,
		DestinationIATA: req.DestinationIATA,
		DepartureUTC:    departureUTC,
		Preferences:     req.Preferences,
		AgencyID:        agencyID,
	})
	if err != nil {
		return nil, err
	}

	result := o.dispatch.Send(ctx, notify.SendRequest{Trip: trip, Type: notify.TypeReservationConfirmation, Extra: nil})
	if result.Outcome == notify.OutcomeFailed {
		o.logger.Warnw("reservation confirmation dispatch failed", "trip_id", trip.ID, "error", result.Err)
	}

	o.scheduler.ScheduleItineraryLaunch(trip)
	o.scheduler.ScheduleImmediateReminder(trip)

	next := polling.CalculateNextCheckTime(trip.DepartureDate, time.Now().UTC())
	if err := o.store.UpdateNextCheckAt(ctx, trip.ID, next); err != nil {
		o.logger.Errorw("failed to set initial next_check_at", "trip_id", trip.ID, "error", err)
	} else {
		trip.NextCheckAt = next
	}

	return trip, nil
}

// OnPollTick drains every trip currently due for a poll.
func (o *Orchestrator) OnPollTick(ctx context.Context) {
	o.engine.RunTick(ctx)
}

// OnShutdown stops the scheduler's cron loop and waits up to
// shutdownGracePeriod (or until ctx is done) for running scheduler jobs
// to finish before returning. It does not wait for in-flight poll
// cycles, and pending one-shot per-trip timers are not stopped.
func (o *Orchestrator) OnShutdown(ctx context.Context) {
	stopped := o.scheduler.Stop()

	select {
	case <-stopped.Done():
		o.logger.Info("scheduler drained cleanly")
	case <-time.After(shutdownGracePeriod):
		o.logger.Warn("scheduler shutdown grace period elapsed, proceeding anyway")
	case <-ctx.Done():
		o.logger.Warn("shutdown context cancelled before scheduler drained")
	}
}
