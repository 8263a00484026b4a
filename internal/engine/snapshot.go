package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// SnapshotStore persists serialized states
type SnapshotStore interface {
	Save(ctx context.Context, payload []byte, summary Summary) error
	Latest(ctx context.Context) ([]byte, bool, error)
}

// Summary describes a state at capture time
type Summary struct {
	Users     int `json:"users"`
	Proposals int `json:"proposals"`
	Rounds    int `json:"rounds"`
	Payments  int `json:"payments"`
}

func (e *Engine) summary() Summary {
	return Summary{
		Users:     e.state.Users.Len(),
		Proposals: len(e.state.Proposals),
		Rounds:    len(e.state.RoundResults),
		Payments:  len(e.state.PaymentHistory),
	}
}

// Summary describes the current state
func (e *Engine) Summary() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.summary()
}

// Snapshot serializes the whole state
func (e *Engine) Snapshot() ([]byte, Summary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	payload, err := json.Marshal(e.state)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("encode state: %w", err)
	}
	return payload, e.summary(), nil
}

// Restore replaces the state with a decoded snapshot. Every restore then
// forces the round duration to durationOverride (when positive) and restarts
// the current round from now; callers re-arm the round timer afterwards.
func (e *Engine) Restore(payload []byte, durationOverride time.Duration) error {
	var s State
	if err := json.Unmarshal(payload, &s); err != nil {
		return fmt.Errorf("decode state: %w", err)
	}
	s.normalize()

	e.mu.Lock()
	defer e.mu.Unlock()
	if durationOverride > 0 {
		s.Settings.RoundDurationSeconds = uint64(durationOverride / time.Second)
	}
	s.RoundEndTime = e.now().Add(s.Settings.RoundDuration())
	e.state = &s

	for _, u := range s.Users.All() {
		if u.PaymentInProgress {
			fields := logrus.Fields{"user_id": u.ID}
			if u.PendingWithdrawal != nil {
				fields["amount"] = u.PendingWithdrawal.Amount
				fields["staged_at"] = u.PendingWithdrawal.StagedAt.Format(time.RFC3339)
			}
			e.log.WithFields(fields).Warn("Restored user with unreconciled payment")
		}
	}
	e.log.WithFields(logrus.Fields{
		"users":                  s.Users.Len(),
		"proposals":              len(s.Proposals),
		"rounds":                 len(s.RoundResults),
		"round_duration_seconds": s.Settings.RoundDurationSeconds,
		"round_end_time":         s.RoundEndTime.Format(time.RFC3339),
	}).Info("State restored")
	return nil
}

// SaveTo writes a snapshot of the current state to store
func (e *Engine) SaveTo(ctx context.Context, store SnapshotStore) error {
	payload, summary, err := e.Snapshot()
	if err != nil {
		return err
	}
	if err := store.Save(ctx, payload, summary); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LoadFrom restores the latest snapshot in store, if any. It reports whether a
// snapshot was found.
func (e *Engine) LoadFrom(ctx context.Context, store SnapshotStore, durationOverride time.Duration) (bool, error) {
	payload, found, err := store.Latest(ctx)
	if err != nil {
		return false, fmt.Errorf("load snapshot: %w", err)
	}
	if !found {
		return false, nil
	}
	return true, e.Restore(payload, durationOverride)
}
