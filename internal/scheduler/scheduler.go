// Package scheduler runs named reconciliation tasks on fixed intervals.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mka142/ccw-platform-sub001/internal/metrics"
)

// Task is one reconciliation pass. Returned errors are logged and counted;
// they never stop the recurring timer.
type Task func(ctx context.Context) error

// Scheduler hosts independent periodic tasks. Each task runs once immediately
// when scheduled, then on every interval tick. Stop cancels future firings
// only: an invocation already in progress simply finishes on its own.
type Scheduler struct {
	clock    clockwork.Clock
	stopCh   chan struct{}
	stopOnce sync.Once
}

func New(clock clockwork.Clock) *Scheduler {
	return &Scheduler{
		clock:  clock,
		stopCh: make(chan struct{}),
	}
}

// Schedule starts a recurring task. Tasks are independent: a slow or failing
// task does not affect the timers of the others.
func (s *Scheduler) Schedule(ctx context.Context, name string, task Task, interval time.Duration) {
	go s.runLoop(ctx, name, task, interval)
	slog.Info("Scheduled task", "task", name, "interval", interval)
}

// Stop cancels every timer. In-flight invocations are not awaited.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		slog.Info("Scheduler stopped")
	})
}

func (s *Scheduler) runLoop(ctx context.Context, name string, task Task, interval time.Duration) {
	s.invoke(ctx, name, task)

	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			s.invoke(ctx, name, task)
		case <-s.stopCh:
			slog.Info("Task timer cancelled", "task", name)
			return
		case <-ctx.Done():
			slog.Info("Task context cancelled", "task", name)
			return
		}
	}
}

func (s *Scheduler) invoke(ctx context.Context, name string, task Task) {
	// A tick and a Stop can race in the select above; never fire after Stop.
	select {
	case <-s.stopCh:
		return
	default:
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Task panic recovered", "task", name, "panic", r)
			metrics.SchedulerTaskPanicsTotal.WithLabelValues(name).Inc()
		}
	}()

	start := s.clock.Now()
	if err := task(ctx); err != nil {
		slog.Error("Task failed", "task", name, "error", err, "duration", s.clock.Since(start))
		metrics.SchedulerTaskRunsTotal.WithLabelValues(name, "error").Inc()
		return
	}
	metrics.SchedulerTaskRunsTotal.WithLabelValues(name, "ok").Inc()
	slog.Debug("Task completed", "task", name, "duration", s.clock.Since(start))
}
