package models

import "time"

// Participant is one connected user-session within a conference.
// ID is connection-scoped; UserID is the account id and is empty for guests.
type Participant struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId,omitempty"`
	Name            string    `json:"name"`
	DeviceInfo      string    `json:"deviceInfo,omitempty"`
	IsAdmin         bool      `json:"isAdmin"`
	IsHost          bool      `json:"isHost"`
	AudioEnabled    bool      `json:"audioEnabled"`
	VideoEnabled    bool      `json:"videoEnabled"`
	IsScreenSharing bool      `json:"isScreenSharing"`
	IsHandRaised    bool      `json:"isHandRaised"`
	IsSpeaking      bool      `json:"isSpeaking"`
	IsRecording     bool      `json:"isRecording"`
	JoinedAt        time.Time `json:"joinedAt"`
}

// Privileged reports whether the participant may use host controls.
func (p Participant) Privileged() bool {
	return p.IsHost || p.IsAdmin
}
