package engine

import (
	"time"

	"github.com/sirupsen/logrus"

	"round_dao/internal/domain"
)

// WinnerKarmaBonus is added to the round winner's karma on top of the reward
const WinnerKarmaBonus = 10

// ConcludeRound settles the current round. The highest-scoring proposal wins,
// ties going to the lowest id. The winner is archived and its author paid;
// votes and post counters are cleared; proposals below one point are dropped
// and the rest carried over at one point, upvoted by their creator. The round
// end time always advances, even when there was nothing to settle.
func (e *Engine) ConcludeRound() (domain.RoundResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	e.state.RoundEndTime = now.Add(e.state.Settings.RoundDuration())

	var winner *domain.Proposal
	for _, p := range e.sortedProposals() {
		if winner == nil || p.Points > winner.Points {
			winner = p
		}
	}
	if winner == nil {
		e.log.WithField("round_end_time", e.state.RoundEndTime.Format(time.RFC3339)).Info("Round concluded without proposals")
		return domain.RoundResult{}, false
	}

	delete(e.state.Proposals, winner.ID)
	result := domain.RoundResult{
		RoundID:         uint32(len(e.state.RoundResults)),
		WinningProposal: winner.Clone(),
		Published:       false,
	}
	e.state.RoundResults = append(e.state.RoundResults, result)

	if author, ok := e.state.Users.GetByID(winner.CreatedByID); ok {
		author.WithdrawableE8s += e.state.Settings.RewardPerRoundE8s
		author.Karma += WinnerKarmaBonus
		author.LastUpdated = now
	}

	e.state.Users.ResetRound()
	e.carryOverProposals()

	e.log.WithFields(logrus.Fields{
		"round_id":       result.RoundID,
		"proposal_id":    winner.ID,
		"author_id":      winner.CreatedByID,
		"points":         winner.Points,
		"reward_e8s":     e.state.Settings.RewardPerRoundE8s,
		"carried_over":   len(e.state.Proposals),
		"round_end_time": e.state.RoundEndTime.Format(time.RFC3339),
	}).Info("Round concluded")
	return result, true
}

// carryOverProposals runs after ResetRound: it drops proposals under one point
// and re-seeds survivors at one point with their creator's upvote.
func (e *Engine) carryOverProposals() {
	for id, p := range e.state.Proposals {
		if p.Points < 1 {
			delete(e.state.Proposals, id)
			continue
		}
		p.Points = 1
		if creator, ok := e.state.Users.GetByID(p.CreatedByID); ok {
			creator.Upvotes.Add(id)
		}
	}
}

// RoundEndTime returns when the current round ends
func (e *Engine) RoundEndTime() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.RoundEndTime
}

// NextRoundIn returns the time left in the current round, never negative
func (e *Engine) NextRoundIn() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return max(e.state.RoundEndTime.Sub(e.now()), 0)
}

// RoundResults returns the archived round log
func (e *Engine) RoundResults() []domain.RoundResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.RoundResult, len(e.state.RoundResults))
	for i, r := range e.state.RoundResults {
		r.WinningProposal = r.WinningProposal.Clone()
		out[i] = r
	}
	return out
}

// PublishRound marks a round result as announced (admin only)
func (e *Engine) PublishRound(caller string, index int) error {
	if err := e.checkAdmin(caller); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= len(e.state.RoundResults) {
		return domain.ErrRoundResultNotFound
	}
	e.state.RoundResults[index].Published = true
	e.log.WithField("round_index", index).Info("Round result published")
	return nil
}

// NextUnpublished returns the oldest round result not yet announced
func (e *Engine) NextUnpublished() (domain.UnpublishedResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, r := range e.state.RoundResults {
		if !r.Published {
			return domain.UnpublishedResult{Index: i, Content: r.WinningProposal.Content}, true
		}
	}
	return domain.UnpublishedResult{}, false
}
