package domain

import "time"

// Content is a proposal payload: plain text, optionally with an image reference
type Content struct {
	Text      string `json:"text"`                 // Proposal text
	ImagePath string `json:"image_path,omitempty"` // Optional image reference
}

// HasImage reports whether the content carries an image reference
func (c Content) HasImage() bool { return c.ImagePath != "" }

// String renders the content as it is published
func (c Content) String() string {
	if c.HasImage() {
		return c.Text + " " + c.ImagePath
	}
	return c.Text
}

// Proposal Model
type Proposal struct {
	ID          uint32      `json:"id"`            // Monotonic id
	Content     Content     `json:"content"`       // Payload
	Points      int32       `json:"points"`        // Score
	CreatedByID uint32      `json:"created_by_id"` // Author's numeric id
	CreatedAt   time.Time   `json:"created_at"`    // Creation time
	Reports     Set[string] `json:"reports"`       // Identities that reported it
}

// Clone returns a copy detached from the live store
func (p *Proposal) Clone() Proposal {
	c := *p
	c.Reports = p.Reports.Clone()
	return c
}

// Vote is the direction of a vote action
type Vote string

const (
	Upvote   Vote = "upvote"
	Downvote Vote = "downvote"
)

// Valid reports whether v is a known direction
func (v Vote) Valid() bool { return v == Upvote || v == Downvote }

// VoteStatus is a viewer's current vote on a proposal
type VoteStatus string

const (
	Upvoted   VoteStatus = "upvoted"
	Downvoted VoteStatus = "downvoted"
	NotVoted  VoteStatus = "not_voted"
)

// ProposalInfo is a proposal as seen by one viewer
type ProposalInfo struct {
	ID           uint32     `json:"id"`            // Proposal id
	Content      Content    `json:"content"`       // Payload
	Points       int32      `json:"points"`        // Score
	CreatedBy    uint32     `json:"created_by"`    // Author's numeric id
	CreatedAt    time.Time  `json:"created_at"`    // Creation time
	UpvoteStatus VoteStatus `json:"upvote_status"` // Viewer's vote
	NrOfReports  uint32     `json:"nr_of_reports"` // Report count
	Reported     bool       `json:"reported"`      // Viewer has reported it
}

// RoundResult is an archived round winner
type RoundResult struct {
	RoundID         uint32   `json:"round_id"`         // Sequential round id
	WinningProposal Proposal `json:"winning_proposal"` // Snapshot of the winner
	Published       bool     `json:"published"`        // Announced externally
}

// UnpublishedResult points at the next round result awaiting announcement
type UnpublishedResult struct {
	Index   int     `json:"index"`   // Position in the round log
	Content Content `json:"content"` // Winning content
}
