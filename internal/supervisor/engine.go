// internal/supervisor/engine.go
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrScanInProgress is returned when Run is called while another scan is
// still holding the advisory lock.
var ErrScanInProgress = errors.New("supervisory scan already in progress")

// Engine orchestrates the four supervisory scans. One Engine guards one
// process-wide advisory lock: overlapping scheduled and manual triggers
// cannot double-send through the same instance.
type Engine struct {
	tasks      TaskStore
	users      UserStore
	dispatcher *Dispatcher
	resolver   *Resolver
	logger     zerolog.Logger

	mu sync.Mutex
}

func NewEngine(
	tasks TaskStore,
	users UserStore,
	dispatcher *Dispatcher,
	resolver *Resolver,
	logger zerolog.Logger,
) *Engine {
	return &Engine{
		tasks:      tasks,
		users:      users,
		dispatcher: dispatcher,
		resolver:   resolver,
		logger:     logger.With().Str("component", "supervisor").Logger(),
	}
}

// Run executes one full scan pass at the given reference time. A scanner
// failure is recorded in the result and the remaining scanners still run;
// Run itself fails only when it cannot acquire the lock or when every
// scanner failed (a total datastore outage).
func (e *Engine) Run(ctx context.Context, now time.Time) (*ScanResult, error) {
	if !e.mu.TryLock() {
		return nil, ErrScanInProgress
	}
	defer e.mu.Unlock()

	e.logger.Info().Time("now", now).Msg("starting supervisory scan")
	result := &ScanResult{}

	scanners := []struct {
		name  string
		fn    func(context.Context, time.Time) (scanCounts, error)
		count *int
	}{
		{"due_soon", e.scanDueSoon, &result.DueSoon},
		{"overdue", e.scanOverdue, &result.Overdue},
		{"no_update", e.scanStale, &result.NoUpdate},
		{"blocked", e.scanBlocked, &result.Blocked},
	}

	for _, s := range scanners {
		counts, err := s.fn(ctx, now)
		if err != nil {
			e.logger.Error().Err(err).Str("scanner", s.name).Msg("scanner failed")
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", s.name, err))
			continue
		}
		*s.count = counts.created
		result.PushSent += counts.pushSent
		e.logger.Info().
			Str("scanner", s.name).
			Int("notifications", counts.created).
			Int("pushes", counts.pushSent).
			Msg("scanner completed")
	}

	result.Total = result.DueSoon + result.Overdue + result.NoUpdate + result.Blocked

	e.logger.Info().
		Int("total", result.Total).
		Int("push_sent", result.PushSent).
		Int("failed_scanners", len(result.Errors)).
		Msg("supervisory scan completed")

	if len(result.Errors) == len(scanners) {
		return result, fmt.Errorf("all scanners failed: %v", result.Errors)
	}
	return result, nil
}
