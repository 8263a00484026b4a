package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"round_dao/internal/domain"
	"round_dao/internal/ledger"
)

// StagePayment reserves caller's whole balance for withdrawal. The balance is
// zeroed and the payment flag set; the returned intent must be passed to
// ReconcilePayment once the transfer outcome is known.
func (e *Engine) StagePayment(caller string) (domain.Withdrawal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	u, err := e.mutableUser(caller)
	if err != nil {
		return domain.Withdrawal{}, err
	}
	if u.WithdrawableE8s == 0 {
		return domain.Withdrawal{}, domain.ErrNoWithdrawable
	}
	if u.DepositAddress == nil {
		return domain.Withdrawal{}, domain.ErrNoDepositAddress
	}
	if u.PaymentInProgress {
		return domain.Withdrawal{}, domain.ErrPaymentInProgress
	}

	e.state.NextPaymentSeq++
	w := domain.Withdrawal{
		Seq:            e.state.NextPaymentSeq,
		UserID:         u.ID,
		Amount:         u.WithdrawableE8s,
		DepositAddress: *u.DepositAddress,
		StagedAt:       e.now(),
	}
	u.WithdrawableE8s = 0
	u.PaymentInProgress = true
	pending := w
	u.PendingWithdrawal = &pending

	e.log.WithFields(logrus.Fields{
		"user_id": w.UserID,
		"amount":  ledger.Tokens(w.Amount).String(),
		"to":      w.DepositAddress,
	}).Info("Payment staged")
	return w, nil
}

// ReconcilePayment settles a staged withdrawal from the transfer outcome. On
// success the payment is recorded; on any failure the staged amount goes back
// to the balance. Either way the payment flag is cleared. An intent that is no
// longer pending was already resolved by an admin and leaves the balance alone.
func (e *Engine) ReconcilePayment(w domain.Withdrawal, blockIndex uint64, transferErr error) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	u, ok := e.state.Users.GetByID(w.UserID)
	if !ok {
		return 0, domain.ErrUserNotFound
	}
	if !u.PaymentInProgress || u.PendingWithdrawal == nil || u.PendingWithdrawal.Seq != w.Seq {
		return e.reconcileResolved(w, blockIndex, transferErr)
	}
	now := e.now()
	u.LastUpdated = now
	u.PaymentInProgress = false
	u.PendingWithdrawal = nil

	fields := logrus.Fields{
		"user_id": w.UserID,
		"amount":  ledger.Tokens(w.Amount).String(),
		"to":      w.DepositAddress,
	}
	if transferErr == nil {
		e.state.PaymentHistory = append(e.state.PaymentHistory, domain.Payment{
			BlockIndex: blockIndex,
			UserID:     w.UserID,
			Amount:     w.Amount,
			Time:       now,
		})
		fields["block_index"] = blockIndex
		e.log.WithFields(fields).Info("Payment settled")
		return blockIndex, nil
	}

	u.WithdrawableE8s += w.Amount
	fields["error"] = transferErr.Error()
	var rejected *ledger.RejectedError
	var callErr *ledger.CallError
	switch {
	case errors.As(transferErr, &rejected):
		fields["kind"] = rejected.Kind
		e.log.WithFields(fields).Warn("Payment rejected by ledger, balance restored")
	case errors.As(transferErr, &callErr):
		fields["code"] = callErr.Code
		e.log.WithFields(fields).Error("Ledger call failed, balance restored")
	default:
		e.log.WithFields(fields).Error("Payment failed, balance restored")
	}
	return 0, fmt.Errorf("%w: %s", domain.ErrTransferFailed, transferErr.Error())
}

// reconcileResolved reports a transfer outcome that arrived after its intent
// was resolved. The state is not touched.
func (e *Engine) reconcileResolved(w domain.Withdrawal, blockIndex uint64, transferErr error) (uint64, error) {
	fields := logrus.Fields{
		"user_id": w.UserID,
		"amount":  ledger.Tokens(w.Amount).String(),
		"seq":     w.Seq,
	}
	if transferErr != nil {
		fields["error"] = transferErr.Error()
		e.log.WithFields(fields).Warn("Transfer failed after payment was resolved")
		return 0, fmt.Errorf("%w: %s (payment already resolved)", domain.ErrTransferFailed, transferErr.Error())
	}
	fields["block_index"] = blockIndex
	e.log.WithFields(fields).Error("Transfer settled after payment was resolved")
	return blockIndex, nil
}

// ClaimReward withdraws caller's whole balance to their deposit address. The
// engine lock is released while the ledger call runs. The transfer is tried
// once; on failure the funds are restored and the caller may retry.
//
// Cancelling ctx does not abort a transfer that has started: once the request
// is out only the ledger's answer or TransferTimeout decides the outcome.
func (e *Engine) ClaimReward(ctx context.Context, caller string) (uint64, error) {
	w, err := e.StagePayment(caller)
	if err != nil {
		return 0, err
	}
	to, err := ledger.ParseAccountIdentifier(w.DepositAddress)
	if err != nil {
		return e.ReconcilePayment(w, 0, err)
	}
	ctx = context.WithoutCancel(ctx)
	if e.transferTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.transferTimeout)
		defer cancel()
	}
	index, transferErr := e.ledger.Transfer(ctx, ledger.TransferArgs{
		To:     to,
		Amount: w.Amount,
		Fee:    ledger.DefaultFee,
		Memo:   0,
	})
	return e.ReconcilePayment(w, index, transferErr)
}

// ResolveStuckPayment clears a payment flag left behind when reconciliation
// never ran (admin only). Payments staged less than StuckPaymentAge ago are
// refused since their transfer may still complete. With a block index the
// pending withdrawal is recorded as paid; without one the pending amount is
// returned to the balance.
func (e *Engine) ResolveStuckPayment(caller string, userID uint32, blockIndex *uint64) error {
	if err := e.checkAdmin(caller); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	u, ok := e.state.Users.GetByID(userID)
	if !ok {
		return domain.ErrUserNotFound
	}
	if !u.PaymentInProgress {
		return domain.ErrNoPaymentInProgress
	}
	now := e.now()
	if u.PendingWithdrawal != nil && now.Sub(u.PendingWithdrawal.StagedAt) < e.stuckAge {
		return domain.ErrPaymentTooRecent
	}
	var amount uint64
	if u.PendingWithdrawal != nil {
		amount = u.PendingWithdrawal.Amount
	}
	if blockIndex != nil {
		e.state.PaymentHistory = append(e.state.PaymentHistory, domain.Payment{
			BlockIndex: *blockIndex,
			UserID:     userID,
			Amount:     amount,
			Time:       now,
		})
	} else {
		u.WithdrawableE8s += amount
	}
	u.PaymentInProgress = false
	u.PendingWithdrawal = nil
	u.LastUpdated = now

	e.log.WithFields(logrus.Fields{
		"user_id":   userID,
		"amount":    ledger.Tokens(amount).String(),
		"settled":   blockIndex != nil,
		"timestamp": now.Format(time.RFC3339),
	}).Warn("Stuck payment resolved")
	return nil
}

// Payments returns the payment history
func (e *Engine) Payments() []domain.Payment {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.Payment{}, e.state.PaymentHistory...)
}
