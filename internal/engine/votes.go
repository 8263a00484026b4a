package engine

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"round_dao/internal/domain"
)

// VoteState is one user's vote on one proposal
type VoteState int

const (
	VoteNone VoteState = iota
	VoteUp
	VoteDown
)

// UpvoteTransition toggles an upvote and returns the score delta
func UpvoteTransition(s VoteState) (int32, VoteState) {
	switch s {
	case VoteUp:
		return -1, VoteNone
	case VoteDown:
		return 2, VoteUp
	default:
		return 1, VoteUp
	}
}

// DownvoteTransition toggles a downvote and returns the score delta
func DownvoteTransition(s VoteState) (int32, VoteState) {
	switch s {
	case VoteDown:
		return 1, VoteNone
	case VoteUp:
		return -2, VoteDown
	default:
		return -1, VoteDown
	}
}

func voteStateOf(u *domain.User, proposalID uint32) VoteState {
	switch {
	case u.Upvotes.Has(proposalID):
		return VoteUp
	case u.Downvotes.Has(proposalID):
		return VoteDown
	}
	return VoteNone
}

// setVoteState keeps the id in at most one of the two sets
func setVoteState(u *domain.User, proposalID uint32, s VoteState) {
	u.Upvotes.Remove(proposalID)
	u.Downvotes.Remove(proposalID)
	switch s {
	case VoteUp:
		u.Upvotes.Add(proposalID)
	case VoteDown:
		u.Downvotes.Add(proposalID)
	}
}

// applyVote moves voter's state on p and propagates the delta. The score
// always moves by the delta. The creator's karma moves by the delta on an
// upvote and against it on a downvote, so a fresh downvote raises karma.
func (e *Engine) applyVote(voter *domain.User, p *domain.Proposal, vote domain.Vote) error {
	creator, ok := e.state.Users.GetByID(p.CreatedByID)
	if !ok {
		return domain.ErrUserNotFound
	}
	var (
		delta int32
		next  VoteState
	)
	prev := voteStateOf(voter, p.ID)
	if vote == domain.Upvote {
		delta, next = UpvoteTransition(prev)
	} else {
		delta, next = DownvoteTransition(prev)
	}
	setVoteState(voter, p.ID, next)
	p.Points += delta
	if vote == domain.Upvote {
		creator.Karma += delta
	} else {
		creator.Karma -= delta
	}
	return nil
}

// Vote casts or toggles caller's vote on a proposal
func (e *Engine) Vote(caller string, proposalID uint32, vote domain.Vote) error {
	if !vote.Valid() {
		return fmt.Errorf("unknown vote %q", vote)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.state.Proposals[proposalID]
	if !ok {
		return domain.ErrProposalNotFound
	}
	voter, err := e.mutableUser(caller)
	if err != nil {
		return err
	}
	if err := e.applyVote(voter, p, vote); err != nil {
		return err
	}
	e.log.WithFields(logrus.Fields{
		"proposal_id": proposalID,
		"voter_id":    voter.ID,
		"vote":        vote,
		"points":      p.Points,
	}).Debug("Vote applied")
	return nil
}
