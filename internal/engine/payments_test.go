package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"round_dao/internal/domain"
	"round_dao/internal/ledger"
)

// winRound makes identity the author of the only proposal and concludes the round
func winRound(t *testing.T, e *Engine, identity string) {
	t.Helper()
	mustPropose(t, e, identity, "winning idea")
	_, ok := e.ConcludeRound()
	require.True(t, ok)
}

func TestClaimReward_Success(t *testing.T) {
	e, _, l := newTestEngine(t)
	mustCreateUser(t, e, "alice")
	addr := depositAddress("alice-wallet")
	require.NoError(t, e.SetDepositAddress("alice", addr))
	winRound(t, e, "alice")
	l.index = 42

	index, err := e.ClaimReward(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), index)

	require.Len(t, l.calls, 1)
	call := l.calls[0]
	assert.Equal(t, uint64(100_000_000), call.Amount)
	assert.Equal(t, ledger.DefaultFee, call.Fee)
	assert.Equal(t, uint64(0), call.Memo)
	assert.Equal(t, addr, call.To.String())

	alice := mustUser(t, e, "alice")
	assert.Zero(t, alice.WithdrawableE8s)
	assert.False(t, alice.PaymentInProgress)
	assert.Nil(t, alice.PendingWithdrawal)

	payments := e.Payments()
	require.Len(t, payments, 1)
	assert.Equal(t, uint64(42), payments[0].BlockIndex)
	assert.Equal(t, alice.ID, payments[0].UserID)
	assert.Equal(t, uint64(100_000_000), payments[0].Amount)
}

func TestClaimReward_FailureRestoresBalance(t *testing.T) {
	cases := map[string]error{
		"rejected":    ledger.InsufficientFunds(5),
		"call failed": &ledger.CallError{Code: 503, Message: "ledger down"},
	}
	for name, transferErr := range cases {
		t.Run(name, func(t *testing.T) {
			e, _, l := newTestEngine(t)
			mustCreateUser(t, e, "alice")
			require.NoError(t, e.SetDepositAddress("alice", depositAddress("alice-wallet")))
			winRound(t, e, "alice")
			l.err = transferErr

			_, err := e.ClaimReward(context.Background(), "alice")
			require.ErrorIs(t, err, domain.ErrTransferFailed)
			assert.Contains(t, err.Error(), transferErr.Error())

			alice := mustUser(t, e, "alice")
			assert.Equal(t, uint64(100_000_000), alice.WithdrawableE8s)
			assert.False(t, alice.PaymentInProgress)
			assert.Empty(t, e.Payments())

			// the caller may retry
			l.err = nil
			l.index = 7
			index, err := e.ClaimReward(context.Background(), "alice")
			require.NoError(t, err)
			assert.Equal(t, uint64(7), index)
		})
	}
}

func TestClaimReward_GuardsWhileTransferRuns(t *testing.T) {
	e, _, l := newTestEngine(t)
	mustCreateUser(t, e, "alice")
	require.NoError(t, e.SetDepositAddress("alice", depositAddress("alice-wallet")))
	winRound(t, e, "alice")
	l.index = 3

	var during domain.User
	var secondErr error
	l.during = func() {
		during = mustUser(t, e, "alice")
		// a second round pays out while the first transfer is still out
		mustPropose(t, e, "alice", "another")
		_, ok := e.ConcludeRound()
		require.True(t, ok)
		_, secondErr = e.ClaimReward(context.Background(), "alice")
	}

	_, err := e.ClaimReward(context.Background(), "alice")
	require.NoError(t, err)

	assert.True(t, during.PaymentInProgress)
	assert.Zero(t, during.WithdrawableE8s)
	require.NotNil(t, during.PendingWithdrawal)
	assert.Equal(t, uint64(100_000_000), during.PendingWithdrawal.Amount)
	assert.ErrorIs(t, secondErr, domain.ErrPaymentInProgress)
	assert.Len(t, l.calls, 1)

	alice := mustUser(t, e, "alice")
	assert.Equal(t, uint64(100_000_000), alice.WithdrawableE8s)
	assert.False(t, alice.PaymentInProgress)
}

func TestClaimReward_Preconditions(t *testing.T) {
	e, _, l := newTestEngine(t)
	mustCreateUser(t, e, "alice")

	_, err := e.ClaimReward(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = e.ClaimReward(context.Background(), "alice")
	assert.ErrorIs(t, err, domain.ErrNoWithdrawable)

	winRound(t, e, "alice")
	_, err = e.ClaimReward(context.Background(), "alice")
	assert.ErrorIs(t, err, domain.ErrNoDepositAddress)

	assert.Empty(t, l.calls)
	assert.Equal(t, uint64(100_000_000), mustUser(t, e, "alice").WithdrawableE8s)
}

func TestResolveStuckPayment(t *testing.T) {
	e, _, _ := newTestEngine(t)
	id := mustCreateUser(t, e, "alice")
	require.NoError(t, e.SetDepositAddress("alice", depositAddress("alice-wallet")))
	winRound(t, e, "alice")

	assert.ErrorIs(t, e.ResolveStuckPayment(admin, id, nil), domain.ErrNoPaymentInProgress)

	// staged but never reconciled, as after a crash mid-transfer
	_, err := e.StagePayment("alice")
	require.NoError(t, err)

	assert.ErrorIs(t, e.ResolveStuckPayment("alice", id, nil), domain.ErrNoPermission)
	assert.ErrorIs(t, e.ResolveStuckPayment(admin, 99, nil), domain.ErrUserNotFound)

	require.NoError(t, e.ResolveStuckPayment(admin, id, nil))
	alice := mustUser(t, e, "alice")
	assert.Equal(t, uint64(100_000_000), alice.WithdrawableE8s)
	assert.False(t, alice.PaymentInProgress)

	_, err = e.StagePayment("alice")
	require.NoError(t, err)
	block := uint64(11)
	require.NoError(t, e.ResolveStuckPayment(admin, id, &block))
	alice = mustUser(t, e, "alice")
	assert.Zero(t, alice.WithdrawableE8s)
	require.Len(t, e.Payments(), 1)
	assert.Equal(t, block, e.Payments()[0].BlockIndex)
}

func TestReconcilePayment_IgnoresResolvedIntent(t *testing.T) {
	cases := map[string]struct {
		transferErr error
		wantErr     bool
	}{
		"transfer fails":    {transferErr: &ledger.CallError{Code: 504, Message: "timeout"}, wantErr: true},
		"transfer succeeds": {},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			e, _, l := newTestEngine(t)
			id := mustCreateUser(t, e, "alice")
			require.NoError(t, e.SetDepositAddress("alice", depositAddress("alice-wallet")))
			winRound(t, e, "alice")
			l.index = 5
			l.err = tc.transferErr
			l.during = func() {
				// refunded while the transfer is still out
				require.NoError(t, e.ResolveStuckPayment(admin, id, nil))
			}

			index, err := e.ClaimReward(context.Background(), "alice")
			if tc.wantErr {
				require.ErrorIs(t, err, domain.ErrTransferFailed)
			} else {
				require.NoError(t, err)
				assert.Equal(t, uint64(5), index)
			}

			alice := mustUser(t, e, "alice")
			assert.Equal(t, uint64(100_000_000), alice.WithdrawableE8s)
			assert.False(t, alice.PaymentInProgress)
			assert.Empty(t, e.Payments())
		})
	}
}

func TestReconcilePayment_StaleIntentAfterRestage(t *testing.T) {
	e, _, _ := newTestEngine(t)
	id := mustCreateUser(t, e, "alice")
	require.NoError(t, e.SetDepositAddress("alice", depositAddress("alice-wallet")))
	winRound(t, e, "alice")

	first, err := e.StagePayment("alice")
	require.NoError(t, err)
	require.NoError(t, e.ResolveStuckPayment(admin, id, nil))
	second, err := e.StagePayment("alice")
	require.NoError(t, err)
	assert.NotEqual(t, first.Seq, second.Seq)

	_, err = e.ReconcilePayment(first, 0, &ledger.CallError{Code: 500, Message: "boom"})
	require.ErrorIs(t, err, domain.ErrTransferFailed)
	alice := mustUser(t, e, "alice")
	assert.Zero(t, alice.WithdrawableE8s)
	assert.True(t, alice.PaymentInProgress)

	_, err = e.ReconcilePayment(second, 8, nil)
	require.NoError(t, err)
	assert.False(t, mustUser(t, e, "alice").PaymentInProgress)
	require.Len(t, e.Payments(), 1)
}

func TestResolveStuckPayment_RefusesRecentIntent(t *testing.T) {
	e, clock, _ := newTestEngine(t)
	e.stuckAge = time.Minute
	id := mustCreateUser(t, e, "alice")
	require.NoError(t, e.SetDepositAddress("alice", depositAddress("alice-wallet")))
	winRound(t, e, "alice")
	_, err := e.StagePayment("alice")
	require.NoError(t, err)

	assert.ErrorIs(t, e.ResolveStuckPayment(admin, id, nil), domain.ErrPaymentTooRecent)
	assert.True(t, mustUser(t, e, "alice").PaymentInProgress)

	clock.Advance(time.Minute)
	require.NoError(t, e.ResolveStuckPayment(admin, id, nil))
	assert.Equal(t, uint64(100_000_000), mustUser(t, e, "alice").WithdrawableE8s)
}

func TestClaimReward_DetachesFromCallerContext(t *testing.T) {
	e, _, l := newTestEngine(t)
	e.transferTimeout = time.Minute
	mustCreateUser(t, e, "alice")
	require.NoError(t, e.SetDepositAddress("alice", depositAddress("alice-wallet")))
	winRound(t, e, "alice")
	l.index = 9

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	index, err := e.ClaimReward(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(9), index)

	require.Len(t, l.ctxErrs, 1)
	assert.NoError(t, l.ctxErrs[0])
	assert.True(t, l.deadlines[0])
}
