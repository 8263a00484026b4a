package engine

import (
	"time"

	"round_dao/internal/domain"
)

// State is the aggregate owned by an Engine. It is serialized as one unit.
type State struct {
	NextUserID     uint32                      `json:"next_user_id"`
	Users          *Registry                   `json:"users"`
	NextProposalID uint32                      `json:"next_proposal_id"`
	Proposals      map[uint32]*domain.Proposal `json:"proposals"`
	RoundResults   []domain.RoundResult        `json:"round_results"`
	PaymentHistory []domain.Payment            `json:"payment_history"`
	NextPaymentSeq uint64                      `json:"next_payment_seq"`
	Settings       domain.Settings             `json:"settings"`
	RoundEndTime   time.Time                   `json:"round_end_time"`
	LastUserBackup time.Time                   `json:"last_user_backup"`
}

// NewState returns the initial state: user ids start at 1, proposal ids at 0,
// and the first round ends one round duration after now.
func NewState(now time.Time, settings domain.Settings) *State {
	return &State{
		NextUserID:     1,
		Users:          NewRegistry(),
		NextProposalID: 0,
		Proposals:      make(map[uint32]*domain.Proposal),
		RoundResults:   []domain.RoundResult{},
		PaymentHistory: []domain.Payment{},
		Settings:       settings,
		RoundEndTime:   now.Add(settings.RoundDuration()),
	}
}

// normalize fills collections a decoded snapshot may have left nil
func (s *State) normalize() {
	if s.Users == nil {
		s.Users = NewRegistry()
	}
	if s.Proposals == nil {
		s.Proposals = make(map[uint32]*domain.Proposal)
	}
	for _, p := range s.Proposals {
		if p.Reports == nil {
			p.Reports = domain.NewSet[string]()
		}
	}
	if s.RoundResults == nil {
		s.RoundResults = []domain.RoundResult{}
	}
	if s.PaymentHistory == nil {
		s.PaymentHistory = []domain.Payment{}
	}
}
