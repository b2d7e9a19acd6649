package update

import (
	"context"
	"sync"
	"time"

	"valutatrade/internal/adapters"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
)

const (
	defaultInterval    = 5 * time.Minute
	defaultStopTimeout = 5 * time.Second
)

// Status describes the scheduler state for callers.
type Status struct {
	Running     bool          `json:"running"`
	Interval    time.Duration `json:"interval"`
	WorkerAlive bool          `json:"worker_alive"`
}

// Scheduler runs the coordinator on a fixed interval in the background.
// Start and Stop are idempotent; a tick that fails is logged and never
// terminates the loop.
type Scheduler struct {
	updater     adapters.Updater
	interval    time.Duration
	stopTimeout time.Duration

	mu    sync.Mutex
	sched gocron.Scheduler
}

func NewScheduler(updater adapters.Updater, interval, stopTimeout time.Duration) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	if stopTimeout <= 0 {
		stopTimeout = defaultStopTimeout
	}
	return &Scheduler{updater: updater, interval: interval, stopTimeout: stopTimeout}
}

// Start spawns the background worker. A second Start while running is a
// logged no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sched != nil {
		logrus.Warn("Scheduler already running")
		return nil
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	tick := func(jobCtx context.Context) {
		report, err := s.updater.RunUpdate(jobCtx)
		if err != nil {
			logrus.WithError(err).Error("Scheduled rates update could not persist its results")
			return
		}
		if !report.Success {
			logrus.Warnf("Scheduled rates update %s finished with errors: %v", report.RunID, report.Errors)
		}
	}

	_, err = sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(tick),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return err
	}

	sched.Start()
	s.sched = sched
	logrus.Infof("Scheduler started, interval %s", s.interval)
	return nil
}

// Stop signals the worker to exit and waits for it with a bounded
// timeout. An in-flight run is never interrupted; on timeout the stop is
// forced and logged. Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sched == nil {
		return nil
	}

	done := make(chan error, 1)
	sched := s.sched
	go func() { done <- sched.Shutdown() }()

	select {
	case err := <-done:
		if err != nil {
			logrus.WithError(err).Error("Scheduler shutdown error")
			s.sched = nil
			return err
		}
		logrus.Info("Scheduler stopped")
	case <-time.After(s.stopTimeout):
		logrus.Warnf("Scheduler stop timed out after %s, forcing stop", s.stopTimeout)
	}
	s.sched = nil
	return nil
}

// GetStatus reports the current state. Running tracks Start/Stop;
// WorkerAlive reflects whether the update job is actually registered
// with the underlying scheduler.
func (s *Scheduler) GetStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	workerAlive := s.sched != nil && len(s.sched.Jobs()) > 0
	return Status{
		Running:     s.sched != nil,
		Interval:    s.interval,
		WorkerAlive: workerAlive,
	}
}
