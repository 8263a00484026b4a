package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"round_dao/internal/domain"
)

func TestCreateUser(t *testing.T) {
	e, clock, _ := newTestEngine(t)

	id, err := e.CreateUser(admin, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), id)

	alice := mustUser(t, e, "alice")
	assert.Equal(t, int32(InitialKarma), alice.Karma)
	assert.Equal(t, domain.LoginTwitter, alice.LoginMethod)
	assert.Equal(t, domain.Unverified, alice.Verification)
	assert.True(t, alice.HasBadge(domain.BadgeOG))
	assert.Equal(t, clock.Now(), alice.LastUpdated)
	assert.Nil(t, alice.DepositAddress)

	_, err = e.CreateUser(admin, "alice")
	assert.ErrorIs(t, err, domain.ErrUserExists)
	_, err = e.CreateUser("alice", "bob")
	assert.ErrorIs(t, err, domain.ErrNoPermission)

	id, err = e.CreateUser(admin, "bob")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), id)
}

func TestCreateUser_EarlyMemberBadge(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.state.NextUserID = domain.EarlyMemberLimit

	last := mustCreateUser(t, e, "last-early")
	late := mustCreateUser(t, e, "late")

	assert.Equal(t, uint32(domain.EarlyMemberLimit), last)
	assert.True(t, mustUser(t, e, "last-early").HasBadge(domain.BadgeOG))
	assert.Equal(t, uint32(domain.EarlyMemberLimit+1), late)
	assert.False(t, mustUser(t, e, "late").HasBadge(domain.BadgeOG))
}

func TestVerifyUser(t *testing.T) {
	e, _, _ := newTestEngine(t)
	id := mustCreateUser(t, e, "alice")

	assert.ErrorIs(t, e.VerifyUser("alice", id), domain.ErrNoPermission)
	assert.ErrorIs(t, e.VerifyUser(admin, 50), domain.ErrUserNotFound)
	require.NoError(t, e.VerifyUser(admin, id))
	assert.Equal(t, domain.Verified, mustUser(t, e, "alice").Verification)
}

func TestIdentityMigration(t *testing.T) {
	e, _, _ := newTestEngine(t)
	id := mustCreateUser(t, e, "X")
	pid := mustPropose(t, e, "X", "carry me")

	require.NoError(t, e.StageIdentityChange("X", "Y", domain.LoginInternetIdentity))

	// nothing moves until the staged identity confirms
	assert.ErrorIs(t, e.ConfirmIdentityChange("Z", "X"), domain.ErrNoPermission)
	_, err := e.User("Y")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	require.NoError(t, e.ConfirmIdentityChange("Y", "X"))

	_, err = e.User("X")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	y := mustUser(t, e, "Y")
	assert.Equal(t, id, y.ID)
	assert.Equal(t, "Y", y.Identity)
	assert.Equal(t, domain.LoginInternetIdentity, y.LoginMethod)
	assert.Nil(t, y.PendingIdentity)
	assert.True(t, y.Upvotes.Has(pid))

	// the account keeps authorship under its new identity
	require.NoError(t, e.DeleteProposal("Y", pid))
}

func TestConfirmIdentityChange_Errors(t *testing.T) {
	e, _, _ := newTestEngine(t)
	mustCreateUser(t, e, "X")
	mustCreateUser(t, e, "taken")

	assert.ErrorIs(t, e.ConfirmIdentityChange("Y", "missing"), domain.ErrUserNotFound)
	assert.ErrorIs(t, e.ConfirmIdentityChange("Y", "X"), domain.ErrNoPermission, "nothing staged")

	require.NoError(t, e.StageIdentityChange("X", "taken", domain.LoginTwitter))
	err := e.ConfirmIdentityChange("taken", "X")
	assert.ErrorIs(t, err, domain.ErrNoPermission)
	assert.Contains(t, err.Error(), "already registered")
	assert.Equal(t, "X", mustUser(t, e, "X").Identity)

	assert.ErrorIs(t, e.StageIdentityChange("nobody", "Y", domain.LoginTwitter), domain.ErrUserNotFound)
}

func TestSetUserName(t *testing.T) {
	e, _, _ := newTestEngine(t)
	mustCreateUser(t, e, "alice")

	require.NoError(t, e.SetUserName("alice", strings.Repeat("ü", domain.MaxUserNameLength)))
	assert.ErrorIs(t, e.SetUserName("alice", strings.Repeat("a", domain.MaxUserNameLength+1)), domain.ErrUsernameTooLong)
	assert.ErrorIs(t, e.SetUserName("nobody", "x"), domain.ErrUserNotFound)

	name := mustUser(t, e, "alice").UserName
	require.NotNil(t, name)
	assert.Equal(t, strings.Repeat("ü", domain.MaxUserNameLength), *name)
}

func TestSetDepositAddress(t *testing.T) {
	e, _, _ := newTestEngine(t)
	mustCreateUser(t, e, "alice")
	addr := depositAddress("wallet")

	require.NoError(t, e.SetDepositAddress("alice", strings.ToUpper(addr)))
	got := mustUser(t, e, "alice").DepositAddress
	require.NotNil(t, got)
	assert.Equal(t, addr, *got)

	assert.ErrorIs(t, e.SetDepositAddress("alice", "not-hex"), domain.ErrInvalidDepositAddress)
	corrupt := "ff" + addr[2:]
	if strings.HasPrefix(addr, "ff") {
		corrupt = "00" + addr[2:]
	}
	assert.ErrorIs(t, e.SetDepositAddress("alice", corrupt), domain.ErrInvalidDepositAddress)
	assert.ErrorIs(t, e.SetDepositAddress("nobody", addr), domain.ErrUserNotFound)
}

func TestUserQueries(t *testing.T) {
	e, _, _ := newTestEngine(t)
	for _, name := range []string{"u1", "u2", "u3", "u4"} {
		mustCreateUser(t, e, name)
	}
	mustCreateUser(t, e, "author")
	pid := mustPropose(t, e, "u3", "p")
	require.NoError(t, e.Vote("u1", pid, domain.Upvote))
	require.NoError(t, e.Vote("u2", pid, domain.Upvote))

	users := e.Users()
	require.Len(t, users, 5)
	assert.Equal(t, uint32(1), users[0].ID)
	assert.Equal(t, uint32(5), users[4].ID)

	var ids []uint32
	for _, u := range e.UserRange(2, 4) {
		ids = append(ids, u.ID)
	}
	assert.Equal(t, []uint32{2, 3, 4}, ids)
	assert.Empty(t, e.UserRange(9, 12))

	top := e.TopUsersByKarma(2)
	require.Len(t, top, 2)
	assert.Equal(t, "u3", top[0].Identity)
	assert.Equal(t, "u1", top[1].Identity, "equal karma keeps id order")
	assert.Len(t, e.TopUsersByKarma(100), 5)
}

func TestChangedUsers(t *testing.T) {
	e, clock, _ := newTestEngine(t)
	mustCreateUser(t, e, "alice")
	mustCreateUser(t, e, "bob")

	changed, watermark := e.ChangedUsers(nil)
	assert.Len(t, changed, 2)
	assert.Equal(t, clock.Now(), watermark)
	require.NoError(t, e.SetLastBackup(admin, watermark))

	changed, _ = e.ChangedUsers(nil)
	assert.Empty(t, changed, "modified at the watermark, not after it")

	clock.Advance(time.Minute)
	require.NoError(t, e.SetUserName("bob", "bobby"))
	changed, _ = e.ChangedUsers(nil)
	require.Len(t, changed, 1)
	assert.Equal(t, "bob", changed[0].Identity)

	earlier := watermark.Add(-time.Second)
	changed, _ = e.ChangedUsers(&earlier)
	assert.Len(t, changed, 2)
}

func TestUserClonesAreIndependent(t *testing.T) {
	e, _, _ := newTestEngine(t)
	mustCreateUser(t, e, "alice")
	pid := mustPropose(t, e, "alice", "p")

	u := mustUser(t, e, "alice")
	u.Upvotes.Remove(pid)
	u.Karma = 0

	again := mustUser(t, e, "alice")
	assert.True(t, again.Upvotes.Has(pid))
	assert.Equal(t, int32(InitialKarma+1), again.Karma)
}
