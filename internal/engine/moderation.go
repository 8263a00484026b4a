package engine

import (
	"github.com/sirupsen/logrus"

	"round_dao/internal/domain"
)

// ReportProposal flags a proposal on behalf of caller. Reporting twice is a no-op.
func (e *Engine) ReportProposal(caller string, proposalID uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.Users.InUse(caller) {
		return domain.ErrUserNotFound
	}
	p, ok := e.state.Proposals[proposalID]
	if !ok {
		return domain.ErrProposalNotFound
	}
	if p.Reports.Has(caller) {
		return nil
	}
	p.Reports.Add(caller)
	e.log.WithFields(logrus.Fields{
		"proposal_id": proposalID,
		"reports":     len(p.Reports),
	}).Warn("Proposal reported")
	return nil
}
