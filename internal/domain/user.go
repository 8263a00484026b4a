package domain

import "time"

// LoginMethod names the identity provider behind a user's identity.
// Values other than the constants below are free-form provider names.
type LoginMethod string

const (
	LoginTwitter          LoginMethod = "twitter"           // Default for accounts created by the admin
	LoginInternetIdentity LoginMethod = "internet_identity" // Self-custodied identity
)

// VerificationStatus is set by the admin after reviewing an account
type VerificationStatus string

const (
	Unverified VerificationStatus = "unverified" // Initial status
	Verified   VerificationStatus = "verified"   // Reviewed human
	Bot        VerificationStatus = "bot"        // Flagged automation
)

// Badge is an achievement marker attached to an account
type Badge string

const (
	BadgeOG      Badge = "og"      // One of the first accounts
	BadgeDonated Badge = "donated" // Donated to the treasury
)

// EarlyMemberLimit is how many accounts receive the og badge
const EarlyMemberLimit = 1000

// MaxUserNameLength bounds display names, in characters
const MaxUserNameLength = 15

// PendingIdentity is a staged identity migration awaiting confirmation by the new identity
type PendingIdentity struct {
	Identity    string      `json:"identity"`     // Identity the account will move to
	LoginMethod LoginMethod `json:"login_method"` // Login method after the move
}

// Withdrawal is the intent produced by staging a payment. It is carried across
// the external transfer and is the only input reconciliation trusts.
type Withdrawal struct {
	Seq            uint64    `json:"seq"`             // Unique per staging; reconciliation matches on it
	UserID         uint32    `json:"user_id"`         // Beneficiary
	Amount         uint64    `json:"amount"`          // Staged amount in e8s
	DepositAddress string    `json:"deposit_address"` // Destination account identifier (hex)
	StagedAt       time.Time `json:"staged_at"`       // When the balance was reserved
}

// User Model
type User struct {
	ID                uint32             `json:"id"`                           // Stable numeric id
	Identity          string             `json:"identity"`                     // External identity
	UserName          *string            `json:"user_name,omitempty"`          // Optional display name
	LoginMethod       LoginMethod        `json:"login_method"`                 // Identity provider
	Badges            []Badge            `json:"badges"`                       // Achievement markers
	PendingIdentity   *PendingIdentity   `json:"pending_identity,omitempty"`   // Staged migration target
	Karma             int32              `json:"karma"`                        // Reputation, may go negative
	WithdrawableE8s   uint64             `json:"withdrawable_e8s"`             // Owed rewards
	DepositAddress    *string            `json:"deposit_address,omitempty"`    // Withdrawal destination
	PaymentInProgress bool               `json:"payment_in_progress"`          // Set between stage and reconcile
	PendingWithdrawal *Withdrawal        `json:"pending_withdrawal,omitempty"` // Intent of the in-flight payment
	Upvotes           Set[uint32]        `json:"upvotes"`                      // Proposals upvoted this round
	Downvotes         Set[uint32]        `json:"downvotes"`                    // Proposals downvoted this round
	Verification      VerificationStatus `json:"verification_status"`          // Admin review result
	LastUpdated       time.Time          `json:"last_updated"`                 // Last mutation, drives backups
	PostsThisRound    uint32             `json:"posts_this_round"`             // Proposals created this round
}

// Clone returns a deep copy that shares nothing with u
func (u *User) Clone() User {
	c := *u
	c.Badges = append([]Badge{}, u.Badges...)
	c.Upvotes = u.Upvotes.Clone()
	c.Downvotes = u.Downvotes.Clone()
	if u.UserName != nil {
		name := *u.UserName
		c.UserName = &name
	}
	if u.DepositAddress != nil {
		addr := *u.DepositAddress
		c.DepositAddress = &addr
	}
	if u.PendingIdentity != nil {
		p := *u.PendingIdentity
		c.PendingIdentity = &p
	}
	if u.PendingWithdrawal != nil {
		w := *u.PendingWithdrawal
		c.PendingWithdrawal = &w
	}
	return c
}

// HasBadge reports whether the badge is attached
func (u User) HasBadge(b Badge) bool {
	for _, have := range u.Badges {
		if have == b {
			return true
		}
	}
	return false
}
