package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/toomanytabs/internal/logger"
)

// DefaultPushInterval is used when no interval is configured.
const DefaultPushInterval = 30 * time.Second

// PushScheduler calls push on a fixed interval until stopped. It does not
// push on start: the owner decides when the first cycle runs.
type PushScheduler struct {
	push     func()
	logger   logger.Logger
	interval time.Duration

	stopCh   chan struct{}
	done     chan struct{}
	startMu  sync.Mutex
	started  bool
	stopOnce sync.Once
}

// NewPushScheduler creates a scheduler. A non-positive interval selects
// DefaultPushInterval.
func NewPushScheduler(push func(), log logger.Logger, interval time.Duration) *PushScheduler {
	if interval <= 0 {
		interval = DefaultPushInterval
	}
	return &PushScheduler{
		push:     push,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Interval returns the tick period.
func (ps *PushScheduler) Interval() time.Duration { return ps.interval }

// Start begins ticking. Calling Start more than once has no effect.
func (ps *PushScheduler) Start(ctx context.Context) {
	ps.startMu.Lock()
	defer ps.startMu.Unlock()
	if ps.started {
		return
	}
	ps.started = true

	ps.logger.Info("push scheduler started", logger.Duration("interval", ps.interval))

	ticker := time.NewTicker(ps.interval)
	go func() {
		defer close(ps.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ps.push()
			case <-ps.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the ticker and waits for the loop to exit. A push already
// handed off by the loop is not interrupted. Safe to call more than once,
// and before Start.
func (ps *PushScheduler) Stop() {
	ps.stopOnce.Do(func() {
		close(ps.stopCh)
	})

	ps.startMu.Lock()
	started := ps.started
	ps.started = true // a later Start must not spin up a loop after Stop
	ps.startMu.Unlock()

	if started {
		<-ps.done
		ps.logger.Info("push scheduler stopped")
	}
}
