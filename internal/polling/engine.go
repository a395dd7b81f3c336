package polling

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/tripwatch/tripwatch/internal/apperr"
	"github.com/tripwatch/tripwatch/internal/consolidator"
	"github.com/tripwatch/tripwatch/internal/detector"
	"github.com/tripwatch/tripwatch/internal/flightdata"
	"github.com/tripwatch/tripwatch/internal/metrics"
	"github.com/tripwatch/tripwatch/internal/notify"
	"github.com/tripwatch/tripwatch/internal/store"
	"github.com/tripwatch/tripwatch/internal/timezone"
)

const defaultWorkerCount = 8

// Engine is the Polling Engine (C7): a fixed worker pool that drains
// due trips, running one fetch-detect-consolidate-persist-dispatch
// cycle per trip with per-trip serialization.
type Engine struct {
	store    *store.Store
	flight   *flightdata.Client
	dispatch *notify.Dispatcher
	resolver *timezone.Resolver
	lock     *TripLock
	workers  int
	metrics  *metrics.Metrics
	logger   *zap.SugaredLogger
}

type EngineConfig struct {
	Store    *store.Store
	Flight   *flightdata.Client
	Dispatch *notify.Dispatcher
	Resolver *timezone.Resolver
	Lock     *TripLock
	Workers  int
	Metrics  *metrics.Metrics
	Logger   *zap.SugaredLogger
}

func NewEngine(cfg EngineConfig) *Engine {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkerCount
	}
	return &Engine{
		store:    cfg.Store,
		flight:   cfg.Flight,
		dispatch: cfg.Dispatch,
		resolver: cfg.Resolver,
		lock:     cfg.Lock,
		workers:  workers,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}
}

// RunTick fetches all trips due for polling and drains them across the
// worker pool, returning once every trip has been attempted.
func (e *Engine) RunTick(ctx context.Context) {
	due, err := e.store.GetTripsDueForPoll(ctx, time.Now().UTC())
	if err != nil {
		e.logger.Errorw("failed to query trips due for poll", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}

	jobs := make(chan store.Trip, len(due))
	for _, t := range due {
		jobs <- t
	}
	close(jobs)

	done := make(chan struct{}, e.workers)
	for i := 0; i < e.workers; i++ {
		go func() {
			for trip := range jobs {
				e.runCycle(ctx, trip)
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < e.workers; i++ {
		<-done
	}
}

// runCycle executes the full poll cycle for one trip: fetch, detect,
// consolidate, persist, dispatch, reschedule. Only one goroutine (in
// this process or any other) may run a cycle for a given trip at once.
func (e *Engine) runCycle(ctx context.Context, trip store.Trip) {
	release, ok := e.lock.Acquire(ctx, trip.ID)
	if !ok {
		e.logger.Debugw("skipping trip: poll already in flight", "trip_id", trip.ID)
		return
	}
	defer release()

	start := time.Now()
	outcome := "ok"
	defer func() {
		if e.metrics == nil {
			return
		}
		e.metrics.PollsTotal.WithLabelValues(outcome).Inc()
		e.metrics.PollDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		stats := e.flight.CacheStats()
		e.metrics.CacheHitRate.Set(stats.HitRate)
		e.metrics.CacheSize.Set(float64(stats.Size))
	}()

	departureDate := trip.DepartureDate.Format("2006-01-02")
	snapshot, err := e.flight.GetFlightStatus(ctx, trip.FlightNumber, departureDate)
	now := time.Now().UTC()

	if err != nil {
		outcome = string(apperr.KindOf(err))
		e.handleFetchError(ctx, trip, err, now)
		return
	}

	previousRow, err := e.store.GetLatestStatus(ctx, trip.ID)
	if err != nil {
		e.logger.Errorw("failed to load previous snapshot", "trip_id", trip.ID, "error", err)
		return
	}
	previous := historyRowToSnapshot(previousRow)

	events := detector.Detect(previous, snapshot)
	events = consolidator.Consolidate(events)

	rawJSON, _ := json.Marshal(snapshot)
	historyRow := store.FlightStatusHistoryRow{
		RecordedAt:            now,
		Status:                snapshot.Status,
		EstimatedOut:          snapshot.EstimatedOut,
		ActualOut:             snapshot.ActualOut,
		EstimatedIn:           snapshot.EstimatedIn,
		ActualIn:              snapshot.ActualIn,
		GateOrigin:            snapshot.GateOrigin,
		GateDestination:       snapshot.GateDestination,
		DepartureDelayMinutes: snapshot.DepartureDelayMinutes,
		ArrivalDelayMinutes:   snapshot.ArrivalDelayMinutes,
		Cancelled:             snapshot.Cancelled,
		Diverted:              snapshot.Diverted,
		ProgressPercent:       snapshot.ProgressPercent,
		OriginIATA:            snapshot.OriginIATA,
		DestinationIATA:       snapshot.DestinationIATA,
		AircraftType:          snapshot.AircraftType,
		RawPayload:            string(rawJSON),
	}
	if err := e.store.AppendFlightStatus(ctx, trip.ID, historyRow); err != nil {
		e.logger.Errorw("failed to append flight status", "trip_id", trip.ID, "error", err)
		return
	}

	metadataJSON, _ := json.Marshal(map[string]interface{}{"flight_data": snapshot})
	if err := e.store.UpdateTripFromSnapshot(ctx, trip.ID, snapshot.Status, snapshot.GateOrigin, snapshot.EstimatedIn, string(metadataJSON)); err != nil {
		e.logger.Errorw("failed to update trip from snapshot", "trip_id", trip.ID, "error", err)
		return
	}
	trip.Status = snapshot.Status
	trip.Gate = snapshot.GateOrigin

	e.dispatchEvents(ctx, &trip, events, snapshot)

	next := CalculateNextCheckTime(trip.DepartureDate, now)
	if isLanded(snapshot) {
		next = nil
	}
	if err := e.store.UpdateNextCheckAt(ctx, trip.ID, next); err != nil {
		e.logger.Errorw("failed to update next_check_at", "trip_id", trip.ID, "error", err)
	}
}

// historyRowToSnapshot adapts the last persisted history row back into
// the FlightSnapshot shape Detect compares against. Returns nil when
// there is no prior history (first observation).
func historyRowToSnapshot(row *store.FlightStatusHistoryRow) *flightdata.FlightSnapshot {
	if row == nil {
		return nil
	}
	return &flightdata.FlightSnapshot{
		Status:                row.Status,
		EstimatedOut:          row.EstimatedOut,
		ActualOut:             row.ActualOut,
		EstimatedIn:           row.EstimatedIn,
		ActualIn:              row.ActualIn,
		GateOrigin:            row.GateOrigin,
		GateDestination:       row.GateDestination,
		DepartureDelayMinutes: row.DepartureDelayMinutes,
		ArrivalDelayMinutes:   row.ArrivalDelayMinutes,
		Cancelled:             row.Cancelled,
		Diverted:              row.Diverted,
		ProgressPercent:       row.ProgressPercent,
		OriginIATA:            row.OriginIATA,
		DestinationIATA:       row.DestinationIATA,
		AircraftType:          row.AircraftType,
	}
}

func (e *Engine) handleFetchError(ctx context.Context, trip store.Trip, err error, now time.Time) {
	switch apperr.KindOf(err) {
	case apperr.NotFound:
		e.logger.Debugw("flight not found for date", "trip_id", trip.ID)
	case apperr.TransientProvider:
		next := CalculateNextCheckTime(trip.DepartureDate, now)
		next = ApplyTransientBackoffCap(next, now)
		if updErr := e.store.UpdateNextCheckAt(ctx, trip.ID, next); updErr != nil {
			e.logger.Errorw("failed to apply backoff to next_check_at", "trip_id", trip.ID, "error", updErr)
		}
	default:
		e.logger.Warnw("non-transient flight-data error, leaving next_check_at unchanged", "trip_id", trip.ID, "error", err)
	}
}

func isLanded(s *flightdata.FlightSnapshot) bool {
	if s == nil {
		return false
	}
	if s.Status == "Arrived" || s.ProgressPercent >= 100 {
		return true
	}
	if s.ActualIn != nil && time.Since(*s.ActualIn) > 30*time.Minute {
		return true
	}
	return false
}

func (e *Engine) dispatchEvents(ctx context.Context, trip *store.Trip, events []detector.ChangeEvent, snapshot *flightdata.FlightSnapshot) {
	for _, ev := range events {
		if ev.NotificationType == "" || ev.NotificationType == "no_notification" {
			continue
		}
		newDeparture := e.resolver.FormatDepartureOrPlaceholder(nil, trip.OriginIATA)
		if snapshot.EstimatedOut != nil {
			newDeparture = e.resolver.FormatHumanLocal(valueOrZero(snapshot.EstimatedOut), trip.OriginIATA)
		}
		extra := map[string]string{
			"new_gate":             snapshot.GateOrigin,
			"new_departure_local":  newDeparture,
		}
		result := e.dispatch.Send(ctx, notify.SendRequest{
			Trip:            trip,
			Type:            notify.Type(ev.NotificationType),
			Extra:           extra,
			CurrentEstimOut: snapshot.EstimatedOut,
		})
		if result.Outcome == notify.OutcomeFailed {
			e.logger.Warnw("notification dispatch failed", "trip_id", trip.ID, "type", ev.NotificationType, "error", result.Err)
		}
	}
}

func valueOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
