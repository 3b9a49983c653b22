package models

import "time"

// ChatMessage is an append-only chat record scoped to one conference.
type ChatMessage struct {
	ID           string    `json:"id"`
	ConferenceID string    `json:"conferenceId"`
	SenderID     string    `json:"senderId"`
	SenderName   string    `json:"senderName"`
	Message      string    `json:"message"`
	Seq          uint64    `json:"seq"`
	CreatedAt    time.Time `json:"createdAt"`
}
