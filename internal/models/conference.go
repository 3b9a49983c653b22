package models

import "time"

// ConferenceState is the lifecycle state of a conference.
type ConferenceState string

const (
	ConferenceCreated ConferenceState = "created"
	ConferenceActive  ConferenceState = "active"
	ConferenceEnded   ConferenceState = "ended"
)

// HostSettings is the host-mutable part of a conference.
type HostSettings struct {
	HostVideoPriority      bool `json:"hostVideoPriority"`
	AllowParticipantDetach bool `json:"allowParticipantDetach"`
}

// Features are per-conference feature flags fixed at creation.
type Features struct {
	HasScreenShare  bool `json:"hasScreenShare"`
	HasChat         bool `json:"hasChat"`
	HasVideoEnabled bool `json:"hasVideoEnabled"`
}

// Conference is one video-call room. EndedAt is set iff Active is false.
type Conference struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	CreatedBy           *string         `json:"createdBy,omitempty"`
	State               ConferenceState `json:"state"`
	Active              bool            `json:"active"`
	IsLocked            bool            `json:"isLocked"`
	MaxParticipants     *int            `json:"maxParticipants,omitempty"`
	CurrentParticipants int             `json:"currentParticipants"`
	HostSettings
	Features
	HasPasscode   bool       `json:"hasPasscode"`
	IsRecording   bool       `json:"isRecording"`
	RecordingBy   string     `json:"recordingBy,omitempty"`
	HostID        string     `json:"hostId,omitempty"`
	TranscriptKey string     `json:"transcriptKey,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	StartedAt     *time.Time `json:"startedAt,omitempty"`
	EndedAt       *time.Time `json:"endedAt,omitempty"`
}

// Clone returns a deep copy safe to hand out of the owning goroutine.
func (c Conference) Clone() Conference {
	out := c
	if c.CreatedBy != nil {
		v := *c.CreatedBy
		out.CreatedBy = &v
	}
	if c.MaxParticipants != nil {
		v := *c.MaxParticipants
		out.MaxParticipants = &v
	}
	if c.StartedAt != nil {
		v := *c.StartedAt
		out.StartedAt = &v
	}
	if c.EndedAt != nil {
		v := *c.EndedAt
		out.EndedAt = &v
	}
	return out
}

// IsCreator reports whether userID is the account that created the conference.
func (c Conference) IsCreator(userID string) bool {
	return userID != "" && c.CreatedBy != nil && *c.CreatedBy == userID
}
