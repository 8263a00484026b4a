// Package engine implements the round-based governance state machine:
// proposals, voting, round settlement, reward withdrawal and identity
// migration.
//
// All state lives in one State value owned by an Engine. Every operation takes
// the Engine's mutex for its whole duration, so operations are atomic with
// respect to each other. The single exception is ClaimReward, which releases
// the lock while the external transfer runs; the payment-in-progress flag
// guards that window against a second withdrawal.
package engine

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"round_dao/internal/domain"
	"round_dao/internal/ledger"
)

// Options configures a new Engine
type Options struct {
	AdminIdentity string            // The only identity allowed to run admin operations
	Ledger        ledger.Transferer // Pays out withdrawals
	Settings      *domain.Settings  // Initial settings; defaults when nil
	Now           func() time.Time  // Clock; time.Now when nil
	Logger        *logrus.Logger    // Logger; the standard logger when nil
	// StuckPaymentAge is how long a staged payment must be outstanding before
	// an admin may resolve it; it should be at least the ledger timeout
	StuckPaymentAge time.Duration
	TransferTimeout time.Duration // Bounds a ledger transfer; unbounded when zero
}

// Engine serializes every operation on the aggregate state
type Engine struct {
	mu     sync.Mutex
	state  *State
	admin  string
	ledger ledger.Transferer
	now    func() time.Time
	log    *logrus.Logger

	stuckAge        time.Duration
	transferTimeout time.Duration
}

// New returns an Engine over a freshly initialized state
func New(opts Options) *Engine {
	e := &Engine{
		admin:  opts.AdminIdentity,
		ledger: opts.Ledger,
		now:    opts.Now,
		log:    opts.Logger,

		stuckAge:        opts.StuckPaymentAge,
		transferTimeout: opts.TransferTimeout,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.log == nil {
		e.log = logrus.StandardLogger()
	}
	settings := domain.DefaultSettings()
	if opts.Settings != nil {
		settings = *opts.Settings
	}
	e.state = NewState(e.now(), settings)
	return e
}

// checkAdmin fails closed for every caller but the configured admin
func (e *Engine) checkAdmin(caller string) error {
	if e.admin == "" || caller != e.admin {
		return domain.ErrNoPermission
	}
	return nil
}

// IsAdmin reports whether caller is the administrative identity
func (e *Engine) IsAdmin(caller string) bool {
	return e.checkAdmin(caller) == nil
}

// mutableUser looks up the caller's record for modification and stamps it
func (e *Engine) mutableUser(identity string) (*domain.User, error) {
	u, ok := e.state.Users.Get(identity)
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.LastUpdated = e.now()
	return u, nil
}

// Settings returns the current settings
func (e *Engine) Settings() domain.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Settings
}

// UpdateSettings replaces the settings (admin only). The current round keeps
// its end time; the new duration applies from the next round.
func (e *Engine) UpdateSettings(caller string, settings domain.Settings) error {
	if err := e.checkAdmin(caller); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Settings = settings
	e.log.WithFields(logrus.Fields{
		"round_duration_seconds":  settings.RoundDurationSeconds,
		"reward_per_round_e8s":    settings.RewardPerRoundE8s,
		"max_proposals_per_round": settings.MaxProposalsPerRound,
		"max_proposals_per_user":  settings.MaxProposalsPerUser,
	}).Info("Settings updated")
	return nil
}

// SetLastBackup records the backup watermark (admin only)
func (e *Engine) SetLastBackup(caller string, at time.Time) error {
	if err := e.checkAdmin(caller); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.LastUserBackup = at
	return nil
}
