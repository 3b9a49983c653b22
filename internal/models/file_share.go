package models

import "time"

// FileShare announces a file shared into a conference. The bytes live in object storage.
type FileShare struct {
	ID           string    `json:"id"`
	ConferenceID string    `json:"conferenceId"`
	SenderID     string    `json:"senderId"`
	SenderName   string    `json:"senderName"`
	FileName     string    `json:"fileName"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"contentType,omitempty"`
	Key          string    `json:"key,omitempty"`
	URL          string    `json:"url,omitempty"`
	Seq          uint64    `json:"seq"`
	CreatedAt    time.Time `json:"createdAt"`
}
