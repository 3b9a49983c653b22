package conference

import "github.com/aura-webinar/conference/internal/models"

// Outbound event types.
const (
	EventStateSync            = "state-sync"
	EventParticipantJoined    = "participant-joined"
	EventParticipantLeft      = "participant-left"
	EventHostChanged          = "host-changed"
	EventChat                 = "chat"
	EventWhiteboard           = "whiteboard"
	EventWhiteboardReset      = "whiteboard-reset"
	EventPollCreated          = "poll-created"
	EventPollUpdated          = "poll-updated"
	EventPollEnded            = "poll-ended"
	EventRaiseHand            = "raise-hand"
	EventToggleAudio          = "toggle-audio"
	EventToggleVideo          = "toggle-video"
	EventToggleScreenShare    = "toggle-screen-share"
	EventSpeaking             = "speaking"
	EventShareFile            = "share-file"
	EventHostSetting          = "host-setting"
	EventLock                 = "lock"
	EventRecording            = "recording"
	EventMuteParticipant      = "mute-participant"
	EventKicked               = "kicked"
	EventConferenceTerminated = "conference-terminated"
	EventOffer                = "offer"
	EventAnswer               = "answer"
	EventICECandidate         = "ice-candidate"
)

// Event is one outbound frame. Seq is set on broadcast room events only.
type Event struct {
	Type string `json:"type"`
	Seq  uint64 `json:"seq,omitempty"`
	From string `json:"from,omitempty"`
	Data any    `json:"data,omitempty"`
}

// PollView is a poll as seen by clients, with its current tally.
type PollView struct {
	models.Poll
	Tally []int `json:"tally"`
}

func viewPoll(p *models.Poll) PollView {
	c := p.Clone()
	return PollView{Poll: c, Tally: c.Tally()}
}

// StateSync is pulled by a participant at join time. Replaying Whiteboard and applying
// live events with Seq greater than StateSync.Seq reproduces the view of an early joiner.
type StateSync struct {
	Conference    models.Conference         `json:"conference"`
	Self          models.Participant        `json:"self"`
	Participants  []models.Participant      `json:"participants"`
	Chat          []models.ChatMessage      `json:"chat"`
	ChatTruncated bool                      `json:"chatTruncated"`
	Whiteboard    []models.WhiteboardAction `json:"whiteboard"`
	Polls         []PollView                `json:"polls"`
	Files         []models.FileShare        `json:"files"`
	Seq           uint64                    `json:"seq"`
}

type participantEvent struct {
	Participant models.Participant `json:"participant"`
	Count       int                `json:"currentParticipants"`
	Reason      string             `json:"reason,omitempty"`
}

type mediaEvent struct {
	ParticipantID string `json:"participantId"`
	Enabled       bool   `json:"enabled"`
}
