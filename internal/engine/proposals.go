package engine

import (
	"cmp"
	"slices"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"round_dao/internal/domain"
)

// MaxContentChars is the hard limit on proposal text, in characters. The
// configured MaxContentLength is advertised to clients but does not tighten it.
const MaxContentChars = 280

// CreateProposal stores a new proposal by caller and applies the author's own
// upvote, so it starts at one point.
func (e *Engine) CreateProposal(caller string, content domain.Content) (uint32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if uint32(len(e.state.Proposals)) >= e.state.Settings.MaxProposalsPerRound {
		return 0, domain.ErrProposalLimitReached
	}
	author, ok := e.state.Users.Get(caller)
	if !ok {
		return 0, domain.ErrUserNotFound
	}
	if author.PostsThisRound >= e.state.Settings.MaxProposalsPerUser {
		return 0, domain.ErrUserProposalLimitReached
	}
	if utf8.RuneCountInString(content.Text) > MaxContentChars {
		return 0, domain.ErrContentTooLong
	}

	author.LastUpdated = e.now()
	id := e.state.NextProposalID
	p := &domain.Proposal{
		ID:          id,
		Content:     content,
		Points:      0,
		CreatedByID: author.ID,
		CreatedAt:   e.now(),
		Reports:     domain.NewSet[string](),
	}
	e.state.Proposals[id] = p
	e.state.NextProposalID++
	author.PostsThisRound++
	if err := e.applyVote(author, p, domain.Upvote); err != nil {
		return 0, err
	}

	e.log.WithFields(logrus.Fields{
		"proposal_id": id,
		"author_id":   author.ID,
		"has_image":   content.HasImage(),
	}).Info("Proposal created")
	return id, nil
}

// DeleteProposal removes a proposal. Only its author may delete it.
func (e *Engine) DeleteProposal(caller string, proposalID uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.state.Proposals[proposalID]
	if !ok {
		return domain.ErrProposalNotFound
	}
	u, ok := e.state.Users.Get(caller)
	if !ok {
		return domain.ErrUserNotFound
	}
	if p.CreatedByID != u.ID {
		return domain.ErrNoPermission
	}
	delete(e.state.Proposals, proposalID)
	e.state.Users.forgetProposal(proposalID)

	e.log.WithFields(logrus.Fields{
		"proposal_id": proposalID,
		"author_id":   u.ID,
	}).Info("Proposal deleted")
	return nil
}

// sortedProposals returns live proposals ordered by id
func (e *Engine) sortedProposals() []*domain.Proposal {
	out := make([]*domain.Proposal, 0, len(e.state.Proposals))
	for _, p := range e.state.Proposals {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *domain.Proposal) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Proposals lists every live proposal
func (e *Engine) Proposals() []domain.Proposal {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Proposal, 0, len(e.state.Proposals))
	for _, p := range e.sortedProposals() {
		out = append(out, p.Clone())
	}
	return out
}

// ProposalInfos lists live proposals as seen by viewer. Unknown or anonymous
// viewers see every proposal as not voted.
func (e *Engine) ProposalInfos(viewer string) []domain.ProposalInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	u, known := e.state.Users.Get(viewer)
	out := make([]domain.ProposalInfo, 0, len(e.state.Proposals))
	for _, p := range e.sortedProposals() {
		status := domain.NotVoted
		if known {
			switch voteStateOf(u, p.ID) {
			case VoteUp:
				status = domain.Upvoted
			case VoteDown:
				status = domain.Downvoted
			}
		}
		out = append(out, domain.ProposalInfo{
			ID:           p.ID,
			Content:      p.Content,
			Points:       p.Points,
			CreatedBy:    p.CreatedByID,
			CreatedAt:    p.CreatedAt,
			UpvoteStatus: status,
			NrOfReports:  uint32(len(p.Reports)),
			Reported:     viewer != "" && p.Reports.Has(viewer),
		})
	}
	return out
}
