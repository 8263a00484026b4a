package engine

import (
	"cmp"
	"fmt"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"round_dao/internal/domain"
	"round_dao/internal/ledger"
)

// InitialKarma is the karma every new account starts with
const InitialKarma = 10

// CreateUser registers identity under the next numeric id (admin only)
func (e *Engine) CreateUser(caller, identity string) (uint32, error) {
	if err := e.checkAdmin(caller); err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Users.InUse(identity) {
		return 0, domain.ErrUserExists
	}
	id := e.state.NextUserID
	badges := []domain.Badge{}
	if id <= domain.EarlyMemberLimit {
		badges = append(badges, domain.BadgeOG)
	}
	u := &domain.User{
		ID:           id,
		Identity:     identity,
		LoginMethod:  domain.LoginTwitter,
		Badges:       badges,
		Karma:        InitialKarma,
		Upvotes:      domain.NewSet[uint32](),
		Downvotes:    domain.NewSet[uint32](),
		Verification: domain.Unverified,
		LastUpdated:  e.now(),
	}
	if err := e.state.Users.Insert(u); err != nil {
		return 0, err
	}
	e.state.NextUserID++

	e.log.WithFields(logrus.Fields{
		"user_id":  id,
		"identity": identity,
		"og":       len(badges) > 0,
	}).Info("User created")
	return id, nil
}

// VerifyUser marks a user as verified (admin only)
func (e *Engine) VerifyUser(caller string, userID uint32) error {
	if err := e.checkAdmin(caller); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	u, ok := e.state.Users.GetByID(userID)
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Verification = domain.Verified
	u.LastUpdated = e.now()
	return nil
}

// StageIdentityChange records the identity caller's account should move to.
// Nothing moves until the new identity confirms.
func (e *Engine) StageIdentityChange(caller, newIdentity string, method domain.LoginMethod) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	u, err := e.mutableUser(caller)
	if err != nil {
		return err
	}
	u.PendingIdentity = &domain.PendingIdentity{Identity: newIdentity, LoginMethod: method}
	return nil
}

// ConfirmIdentityChange moves the account registered under oldIdentity to
// caller, provided that account staged exactly caller as its target and caller
// owns no account yet.
func (e *Engine) ConfirmIdentityChange(caller, oldIdentity string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Users.InUse(caller) {
		return fmt.Errorf("%w: identity already registered", domain.ErrNoPermission)
	}
	u, ok := e.state.Users.Get(oldIdentity)
	if !ok {
		return domain.ErrUserNotFound
	}
	if u.PendingIdentity == nil || u.PendingIdentity.Identity != caller {
		return domain.ErrNoPermission
	}
	pending := *u.PendingIdentity
	if _, err := e.state.Users.Move(oldIdentity, caller); err != nil {
		return err
	}
	u.LoginMethod = pending.LoginMethod
	u.PendingIdentity = nil
	u.LastUpdated = e.now()

	e.log.WithFields(logrus.Fields{
		"user_id":      u.ID,
		"from":         oldIdentity,
		"to":           caller,
		"login_method": pending.LoginMethod,
	}).Info("Identity migrated")
	return nil
}

// SetUserName sets caller's display name
func (e *Engine) SetUserName(caller, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	u, ok := e.state.Users.Get(caller)
	if !ok {
		return domain.ErrUserNotFound
	}
	if utf8.RuneCountInString(name) > domain.MaxUserNameLength {
		return domain.ErrUsernameTooLong
	}
	u.UserName = &name
	u.LastUpdated = e.now()
	return nil
}

// SetDepositAddress sets where caller's withdrawals are sent. The address must
// be a valid hex account identifier; it is stored in canonical form.
func (e *Engine) SetDepositAddress(caller, address string) error {
	account, err := ledger.ParseAccountIdentifier(address)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidDepositAddress, err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	u, err := e.mutableUser(caller)
	if err != nil {
		return err
	}
	canonical := account.String()
	u.DepositAddress = &canonical
	return nil
}

// User returns caller's own record
func (e *Engine) User(caller string) (domain.User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	u, ok := e.state.Users.Get(caller)
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u.Clone(), nil
}

// Users returns every user ordered by id
func (e *Engine) Users() []domain.User {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneUsers(e.state.Users.All(), func(*domain.User) bool { return true })
}

// UserRange returns users whose id lies in [start, end]
func (e *Engine) UserRange(start, end uint32) []domain.User {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneUsers(e.state.Users.All(), func(u *domain.User) bool {
		return u.ID >= start && u.ID <= end
	})
}

// TopUsersByKarma returns up to n users, highest karma first, ties by id
func (e *Engine) TopUsersByKarma(n int) []domain.User {
	e.mu.Lock()
	defer e.mu.Unlock()
	users := cloneUsers(e.state.Users.All(), func(*domain.User) bool { return true })
	slices.SortStableFunc(users, func(a, b domain.User) int { return cmp.Compare(b.Karma, a.Karma) })
	if n >= 0 && n < len(users) {
		users = users[:n]
	}
	return users
}

// ChangedUsers returns users modified strictly after since, or after the last
// backup watermark when since is nil, together with the current time to use
// as the next watermark.
func (e *Engine) ChangedUsers(since *time.Time) ([]domain.User, time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	watermark := e.state.LastUserBackup
	if since != nil {
		watermark = *since
	}
	return cloneUsers(e.state.Users.All(), func(u *domain.User) bool {
		return u.LastUpdated.After(watermark)
	}), now
}

func cloneUsers(users []*domain.User, keep func(*domain.User) bool) []domain.User {
	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		if keep(u) {
			out = append(out, u.Clone())
		}
	}
	return out
}
