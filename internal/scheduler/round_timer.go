// Package scheduler drives round settlement on a timer.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RoundTimer fires once per round. Each wait is recomputed from interval after
// the previous fire, so the timer follows the persisted round end time rather
// than a fixed period.
type RoundTimer struct {
	fire     func()
	interval func() time.Duration
	log      *logrus.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRoundTimer returns a stopped timer
func NewRoundTimer(fire func(), interval func() time.Duration, log *logrus.Logger) *RoundTimer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RoundTimer{fire: fire, interval: interval, log: log}
}

// Start arms the timer. A running timer is stopped and re-armed, which is how
// callers pick up a new round end time after a restore.
func (t *RoundTimer) Start(ctx context.Context) {
	t.Stop()

	t.mu.Lock()
	defer t.mu.Unlock()
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	t.cancel = cancel
	t.done = done
	go t.run(ctx, done)
}

// Stop disarms the timer and waits for an in-flight fire to return
func (t *RoundTimer) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the timer is armed
func (t *RoundTimer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

func (t *RoundTimer) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		wait := t.interval()
		t.log.WithField("next_fire_in", wait.String()).Debug("Round timer armed")
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		t.safeFire()
	}
}

// safeFire keeps the timer alive when fire panics
func (t *RoundTimer) safeFire() {
	defer func() {
		if r := recover(); r != nil {
			t.log.WithField("panic", r).Error("Round settlement panicked")
		}
	}()
	t.fire()
}
