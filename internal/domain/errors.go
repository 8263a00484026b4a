package domain

import "errors"

var (
	ErrContentTooLong           = errors.New("content too long")
	ErrNoPermission             = errors.New("no permission")
	ErrUserExists               = errors.New("user exists already")
	ErrUserNotFound             = errors.New("user does not exist")
	ErrProposalNotFound         = errors.New("proposal does not exist")
	ErrProposalLimitReached     = errors.New("proposal limit reached")
	ErrUserProposalLimitReached = errors.New("user proposal limit reached")
	ErrNoWithdrawable           = errors.New("nothing to withdraw")
	ErrPaymentInProgress        = errors.New("payment already in progress")
	ErrNoDepositAddress         = errors.New("no deposit address")
	ErrTransferFailed           = errors.New("transfer failed")
	ErrRoundResultNotFound      = errors.New("round result does not exist")
	ErrUsernameTooLong          = errors.New("username too long")
	ErrInvalidDepositAddress    = errors.New("invalid deposit address")
	ErrNoPaymentInProgress      = errors.New("no payment in progress")
	ErrPaymentTooRecent         = errors.New("payment may still be in flight")
)
