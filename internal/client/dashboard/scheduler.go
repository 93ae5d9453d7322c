package dashboard

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/gfsdash/internal/logging"
)

// Scheduler owns a single repeating refresh timer.
type Scheduler struct {
	interval time.Duration
	tick     func(ctx context.Context)
	log      logging.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	ticks  *sync.WaitGroup

	running atomic.Int32
}

// NewScheduler panics on a non-positive interval.
func NewScheduler(interval time.Duration, tick func(ctx context.Context), log logging.Logger) *Scheduler {
	if interval <= 0 {
		panic(fmt.Sprintf("dashboard: non-positive refresh interval %s", interval))
	}
	return &Scheduler{
		interval: interval,
		tick:     tick,
		log:      log.With("component", "scheduler"),
	}
}

// Start arms the timer, cancelling any timer armed before. Ticks run as
// independent goroutines and may overlap; stopping the timer cancels the
// context they run with.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	tctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	ticks := &sync.WaitGroup{}
	s.ctx, s.cancel, s.done, s.ticks = tctx, cancel, done, ticks

	s.running.Add(1)
	go s.loop(tctx, done, ticks)
	s.log.Debug(ctx, "refresh timer armed", "interval", s.interval)
}

// spawn runs one tick in its own goroutine. The tick is skipped when the
// timer was stopped before it got to run.
func (s *Scheduler) spawn(ctx context.Context, ticks *sync.WaitGroup) {
	ticks.Add(1)
	go func() {
		defer ticks.Done()
		if ctx.Err() != nil {
			return
		}
		s.tick(ctx)
	}()
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}, ticks *sync.WaitGroup) {
	defer close(done)
	defer s.running.Add(-1)

	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if ctx.Err() != nil {
				return
			}
			s.spawn(ctx, ticks)
		}
	}
}

// Stop disarms the timer. It cancels running ticks and returns once the
// timer goroutine and every tick it started have finished, so no tick runs
// after Stop returns. It is a no-op when nothing is armed. Ticks must not
// wait on anything held by the caller of Stop.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.ticks.Wait()
	s.ctx, s.cancel, s.done, s.ticks = nil, nil, nil, nil
}

// Trigger runs one tick now without moving the timer's phase. It reports
// false when the timer is not armed.
func (s *Scheduler) Trigger() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx == nil {
		return false
	}
	s.spawn(s.ctx, s.ticks)
	return true
}

func (s *Scheduler) Active() bool {
	return s.ActiveTimers() > 0
}

// ActiveTimers counts live timer goroutines.
func (s *Scheduler) ActiveTimers() int {
	return int(s.running.Load())
}
