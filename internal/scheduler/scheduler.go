// Package scheduler runs the time-driven jobs of the Event Scheduler
// (C8): the recurring sweeps described in spec.md §4.8, plus one-shot
// per-trip jobs planted at trip creation.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/tripwatch/tripwatch/internal/notify"
	"github.com/tripwatch/tripwatch/internal/store"
	"github.com/tripwatch/tripwatch/internal/timezone"
)

// Scheduler owns the cron loop for recurring sweeps and a map of
// pending one-shot timers for per-trip jobs.
type Scheduler struct {
	cron     *cron.Cron
	store    *store.Store
	dispatch *notify.Dispatcher
	resolver *timezone.Resolver
	logger   *zap.SugaredLogger

	mu        sync.Mutex
	oneShots  map[string]*time.Timer
	jobStatus map[string]JobStatus
}

// JobStatus records the last run outcome of a named job for
// introspection (health endpoint, §4.8).
type JobStatus struct {
	LastRunAt   time.Time
	LastError   string
	RunCount    int64
}

func New(s *store.Store, dispatch *notify.Dispatcher, resolver *timezone.Resolver, logger *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		store:     s,
		dispatch:  dispatch,
		resolver:  resolver,
		logger:    logger,
		oneShots:  make(map[string]*time.Timer),
		jobStatus: make(map[string]JobStatus),
	}
}

// Start registers the recurring jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	jobs := []struct {
		spec string
		name string
		fn   func(context.Context)
	}{
		{"0 * * * *", "24h_reminder_sweep", s.run24hReminderSweep},
		{"*/5 * * * *", "boarding_window", s.runBoardingWindow},
		{"*/30 * * * *", "landing_welcome", s.runLandingWelcome},
	}
	for _, j := range jobs {
		job := j
		_, err := s.cron.AddFunc(job.spec, func() {
			s.runTracked(job.name, job.fn)
		})
		if err != nil {
			return err
		}
	}
	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) runTracked(name string, fn func(context.Context)) {
	ctx := context.Background()
	fn(ctx)
	s.mu.Lock()
	status := s.jobStatus[name]
	status.LastRunAt = time.Now().UTC()
	status.RunCount++
	s.jobStatus[name] = status
	s.mu.Unlock()
}

// Status returns a snapshot of every tracked job's last-run state, for
// the health endpoint.
func (s *Scheduler) Status() map[string]JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]JobStatus, len(s.jobStatus))
	for k, v := range s.jobStatus {
		out[k] = v
	}
	return out
}

func (s *Scheduler) run24hReminderSweep(ctx context.Context) {
	now := time.Now().UTC()
	trips, err := s.store.FindTripsDepartingBetween(ctx, now.Add(23*time.Hour), now.Add(25*time.Hour))
	if err != nil {
		s.logger.Errorw("24h_reminder_sweep: query failed", "error", err)
		return
	}
	for _, trip := range trips {
		s.dispatchIfUnsent(ctx, &trip, notify.TypeReminder24h, nil)
	}
}

func (s *Scheduler) runBoardingWindow(ctx context.Context) {
	now := time.Now().UTC()
	trips, err := s.store.FindTripsDepartingBetween(ctx, now.Add(35*time.Minute), now.Add(45*time.Minute))
	if err != nil {
		s.logger.Errorw("boarding_window: query failed", "error", err)
		return
	}
	for _, trip := range trips {
		s.dispatchIfUnsent(ctx, &trip, notify.TypeBoarding, nil)
	}
}

func (s *Scheduler) runLandingWelcome(ctx context.Context) {
	trips, err := s.store.FindLandedUnwelcomed(ctx)
	if err != nil {
		s.logger.Errorw("landing_welcome: query failed", "error", err)
		return
	}
	for _, trip := range trips {
		s.dispatchIfUnsent(ctx, &trip, notify.TypeLandingWelcome, nil)
	}
}

func (s *Scheduler) dispatchIfUnsent(ctx context.Context, trip *store.Trip, t notify.Type, extra map[string]string) {
	result := s.dispatch.Send(ctx, notify.SendRequest{Trip: trip, Type: t, Extra: extra})
	if result.Outcome == notify.OutcomeFailed {
		s.logger.Warnw("scheduled dispatch failed", "trip_id", trip.ID, "type", t, "error", result.Err)
	}
}

// itineraryLaunchDelay derives the delay before the itinerary
// generation job fires, from time-to-departure.
func itineraryLaunchDelay(untilDeparture time.Duration) time.Duration {
	switch {
	case untilDeparture <= 24*time.Hour:
		return 5 * time.Minute
	case untilDeparture <= 7*24*time.Hour:
		return 30 * time.Minute
	case untilDeparture <= 30*24*time.Hour:
		return 1 * time.Hour
	default:
		return 2 * time.Hour
	}
}

// ScheduleItineraryLaunch plants the one-shot itinerary-generation job
// for a newly created trip.
func (s *Scheduler) ScheduleItineraryLaunch(trip *store.Trip) {
	delay := itineraryLaunchDelay(trip.DepartureDate.Sub(time.Now().UTC()))
	s.scheduleOneShot("itinerary_launch:"+trip.ID.String(), delay, func() {
		s.logger.Infow("itinerary_launch fired", "trip_id", trip.ID)
		if err := s.store.CreateItineraryDraft(context.Background(), trip.ID); err != nil {
			s.logger.Errorw("itinerary_launch failed to enqueue draft", "trip_id", trip.ID, "error", err)
		}
	})
}

// ScheduleImmediateReminder plants the 1-minute-delayed REMINDER_24H
// job for trips created inside the 24h window.
func (s *Scheduler) ScheduleImmediateReminder(trip *store.Trip) {
	if trip.DepartureDate.Sub(time.Now().UTC()) > 24*time.Hour {
		return
	}
	s.scheduleOneShot("immediate_reminder:"+trip.ID.String(), 1*time.Minute, func() {
		s.dispatchIfUnsent(context.Background(), trip, notify.TypeReminder24h, nil)
	})
}

func (s *Scheduler) scheduleOneShot(key string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.oneShots[key]; ok {
		existing.Stop()
	}
	s.oneShots[key] = time.AfterFunc(delay, func() {
		fn()
		s.mu.Lock()
		delete(s.oneShots, key)
		s.mu.Unlock()
	})
}

// CancelOneShots removes any pending one-shot jobs (itinerary launch and
// immediate reminder) for a trip. Nothing in this repository calls it:
// neither shutdown nor a trip reaching a terminal state cancels them.
func (s *Scheduler) CancelOneShots(tripID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, timer := range s.oneShots {
		if key == "itinerary_launch:"+tripID.String() || key == "immediate_reminder:"+tripID.String() {
			timer.Stop()
			delete(s.oneShots, key)
		}
	}
}
