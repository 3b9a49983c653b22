package models

import (
	"time"
)

// Poll is a multiple-choice poll in a conference. Votes holds one entry per participant.
type Poll struct {
	ID           string         `json:"id"`
	ConferenceID string         `json:"conferenceId"`
	CreatedBy    string         `json:"createdBy"`
	Question     string         `json:"question"`
	Options      []string       `json:"options"`
	Votes        map[string]int `json:"votes"`
	IsActive     bool           `json:"isActive"`
	CreatedAt    time.Time      `json:"createdAt"`
	EndedAt      *time.Time     `json:"endedAt,omitempty"`
}

// Tally returns the number of votes per option.
func (p Poll) Tally() []int {
	out := make([]int, len(p.Options))
	for _, idx := range p.Votes {
		if idx >= 0 && idx < len(out) {
			out[idx]++
		}
	}
	return out
}

// Clone returns a deep copy of the poll.
func (p Poll) Clone() Poll {
	out := p
	out.Options = append([]string(nil), p.Options...)
	out.Votes = make(map[string]int, len(p.Votes))
	for k, v := range p.Votes {
		out.Votes[k] = v
	}
	if p.EndedAt != nil {
		t := *p.EndedAt
		out.EndedAt = &t
	}
	return out
}
