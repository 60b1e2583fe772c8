// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RunFunc is invoked at each scheduled trigger time.
type RunFunc func(ctx context.Context)

// Scheduler fires a full supervisory scan at fixed times of day. It is an
// explicit lifecycle object owned by the composition root: Start begins the
// trigger loop, Stop halts it, IsRunning reports the current state.
type Scheduler struct {
	times  []int // minutes after midnight, e.g. 9*60 for 09:00
	run    RunFunc
	logger zerolog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// New creates a scheduler that fires at the given minute-of-day offsets.
func New(times []int, run RunFunc, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		times:  times,
		run:    run,
		logger: logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start launches the trigger loop. Calling Start on a running scheduler is
// a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})

	s.logger.Info().Ints("times", s.times).Msg("scheduler started")
	go s.loop(s.stopCh, s.done)
}

// Stop halts the trigger loop and waits for it to exit. A scan already in
// flight is not interrupted; its own context governs cancellation.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stopCh, done := s.stopCh, s.done
	s.mu.Unlock()

	close(stopCh)
	<-done
	s.logger.Info().Msg("scheduler stopped")
}

// IsRunning reports whether the trigger loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(stopCh, done chan struct{}) {
	defer close(done)

	for {
		next := NextRunAfter(time.Now(), s.times)
		timer := time.NewTimer(time.Until(next))

		select {
		case <-stopCh:
			timer.Stop()
			return
		case <-timer.C:
			s.logger.Info().Time("trigger", next).Msg("scheduled scan trigger")
			s.run(context.Background())
		}
	}
}

// NextRunAfter returns the earliest trigger strictly after now, given
// minute-of-day offsets. When every time today has passed, the earliest
// time tomorrow is chosen.
func NextRunAfter(now time.Time, times []int) time.Time {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var next time.Time
	for _, m := range times {
		candidate := midnight.Add(time.Duration(m) * time.Minute)
		if !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 1)
		}
		if next.IsZero() || candidate.Before(next) {
			next = candidate
		}
	}
	return next
}
