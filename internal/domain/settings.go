package domain

import "time"

// Settings are the admin-tunable round parameters
type Settings struct {
	RoundDurationSeconds uint64 `json:"round_duration_seconds"`  // Round length
	RewardPerRoundE8s    uint64 `json:"reward_per_round_e8s"`    // Paid to each round winner
	MaxProposalsPerRound uint32 `json:"max_proposals_per_round"` // Cap on live proposals
	MaxProposalsPerUser  uint32 `json:"max_proposals_per_user"`  // Cap per user per round
	MaxContentLength     uint32 `json:"max_content_length"`      // Advertised content length
}

// RoundDuration returns the round length as a time.Duration
func (s Settings) RoundDuration() time.Duration {
	return time.Duration(s.RoundDurationSeconds) * time.Second
}

// DefaultSettings returns the settings a fresh state starts with
func DefaultSettings() Settings {
	return Settings{
		RoundDurationSeconds: 12 * 3600,   // 12 hours
		RewardPerRoundE8s:    100_000_000, // 1 token
		MaxProposalsPerRound: 1500,
		MaxProposalsPerUser:  5,
		MaxContentLength:     280,
	}
}
