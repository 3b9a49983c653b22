package realtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pion/webrtc/v3"

	"github.com/aura-webinar/conference/internal/conference"
)

// Inbound message types.
const (
	TypeJoin              = "join"
	TypeOffer             = "offer"
	TypeAnswer            = "answer"
	TypeICECandidate      = "ice-candidate"
	TypeChat              = "chat"
	TypeWhiteboard        = "whiteboard"
	TypeRaiseHand         = "raise-hand"
	TypeToggleAudio       = "toggle-audio"
	TypeToggleVideo       = "toggle-video"
	TypeToggleScreenShare = "toggle-screen-share"
	TypeSpeaking          = "speaking"
	TypeCreatePoll        = "create-poll"
	TypeVotePoll          = "vote-poll"
	TypeEndPoll           = "end-poll"
	TypeShareFile         = "share-file"
	TypeHostSetting       = "host-setting"
	TypeLock              = "lock"
	TypeToggleRecording   = "toggle-recording"
	TypeKick              = "kick"
	TypeMuteParticipant   = "mute-participant"
	TypeTerminate         = "terminate"
	TypeLeave             = "leave"
	TypePing              = "ping"
)

var (
	// ErrMalformed marks an envelope that failed validation.
	ErrMalformed = errors.New("malformed envelope")
	// ErrUnknownType marks an envelope with an unsupported type.
	ErrUnknownType = errors.New("unknown envelope type")
)

// Envelope is the wire frame in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Category groups inbound commands.
type Category int

const (
	CategorySession Category = iota
	CategorySignaling
	CategoryRoomState
	CategoryControl
)

// Command is a validated inbound message. The concrete types below are the only
// implementations.
type Command interface {
	Type() string
	Category() Category
}

type JoinCommand struct {
	Name         string
	DeviceInfo   string
	Role         string
	Passcode     string
	AudioEnabled bool
	VideoEnabled bool
}

type LeaveCommand struct{}

type PingCommand struct{}

// SignalCommand is an offer, answer or ICE candidate addressed to one participant.
type SignalCommand struct {
	Kind      string
	Target    string
	SDP       *webrtc.SessionDescription
	Candidate *webrtc.ICECandidateInit
}

type ChatCommand struct{ Message string }

type WhiteboardCommand struct {
	Action  string
	Element json.RawMessage
}

type RaiseHandCommand struct{ Raised bool }

type MediaCommand struct {
	Kind    string
	Media   conference.Media
	Enabled bool
}

type SpeakingCommand struct{ Speaking bool }

type CreatePollCommand struct {
	Question string
	Options  []string
}

type VotePollCommand struct {
	PollID      string
	OptionIndex int
}

type EndPollCommand struct{ PollID string }

type ShareFileCommand struct {
	FileName    string
	Size        int64
	ContentType string
	Key         string
	URL         string
}

type HostSettingCommand struct{ Patch conference.HostSettingsPatch }

type LockCommand struct{ IsLocked bool }

type RecordingCommand struct{ Recording bool }

type KickCommand struct{ Target string }

type MuteCommand struct{ Target string }

type TerminateCommand struct{}

func (JoinCommand) Type() string         { return TypeJoin }
func (LeaveCommand) Type() string        { return TypeLeave }
func (PingCommand) Type() string         { return TypePing }
func (c SignalCommand) Type() string     { return c.Kind }
func (ChatCommand) Type() string         { return TypeChat }
func (WhiteboardCommand) Type() string   { return TypeWhiteboard }
func (RaiseHandCommand) Type() string    { return TypeRaiseHand }
func (c MediaCommand) Type() string      { return c.Kind }
func (SpeakingCommand) Type() string     { return TypeSpeaking }
func (CreatePollCommand) Type() string   { return TypeCreatePoll }
func (VotePollCommand) Type() string     { return TypeVotePoll }
func (EndPollCommand) Type() string      { return TypeEndPoll }
func (ShareFileCommand) Type() string    { return TypeShareFile }
func (HostSettingCommand) Type() string  { return TypeHostSetting }
func (LockCommand) Type() string         { return TypeLock }
func (RecordingCommand) Type() string    { return TypeToggleRecording }
func (KickCommand) Type() string         { return TypeKick }
func (MuteCommand) Type() string         { return TypeMuteParticipant }
func (TerminateCommand) Type() string    { return TypeTerminate }

func (JoinCommand) Category() Category        { return CategorySession }
func (LeaveCommand) Category() Category       { return CategorySession }
func (PingCommand) Category() Category        { return CategorySession }
func (SignalCommand) Category() Category      { return CategorySignaling }
func (ChatCommand) Category() Category        { return CategoryRoomState }
func (WhiteboardCommand) Category() Category  { return CategoryRoomState }
func (RaiseHandCommand) Category() Category   { return CategoryRoomState }
func (MediaCommand) Category() Category       { return CategoryRoomState }
func (SpeakingCommand) Category() Category    { return CategoryRoomState }
func (CreatePollCommand) Category() Category  { return CategoryRoomState }
func (VotePollCommand) Category() Category    { return CategoryRoomState }
func (EndPollCommand) Category() Category     { return CategoryRoomState }
func (ShareFileCommand) Category() Category   { return CategoryRoomState }
func (HostSettingCommand) Category() Category { return CategoryControl }
func (LockCommand) Category() Category        { return CategoryControl }
func (RecordingCommand) Category() Category   { return CategoryControl }
func (KickCommand) Category() Category        { return CategoryControl }
func (MuteCommand) Category() Category        { return CategoryControl }
func (TerminateCommand) Category() Category   { return CategoryControl }

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// decodeData strictly decodes an envelope payload into v. A missing payload decodes as {}.
func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return malformed("%v", err)
	}
	return nil
}

func requireBool(name string, v *bool) (bool, error) {
	if v == nil {
		return false, malformed("%s is required", name)
	}
	return *v, nil
}

func requireString(name, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", malformed("%s is required", name)
	}
	return v, nil
}

// Decode validates a raw frame into a Command. Errors wrap ErrMalformed or ErrUnknownType.
func Decode(raw []byte) (Command, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, malformed("%v", err)
	}
	switch env.Type {
	case TypeJoin:
		var d struct {
			Name         string `json:"name"`
			DeviceInfo   string `json:"deviceInfo"`
			Role         string `json:"role"`
			Passcode     string `json:"passcode"`
			AudioEnabled bool   `json:"audioEnabled"`
			VideoEnabled bool   `json:"videoEnabled"`
		}
		if err := decodeData(env.Data, &d); err != nil {
			return nil, err
		}
		name, err := requireString("name", d.Name)
		if err != nil {
			return nil, err
		}
		if d.Role != "" && d.Role != "host" && d.Role != "participant" {
			return nil, malformed("unknown role %q", d.Role)
		}
		return JoinCommand{Name: name, DeviceInfo: d.DeviceInfo, Role: d.Role, Passcode: d.Passcode, AudioEnabled: d.AudioEnabled, VideoEnabled: d.VideoEnabled}, nil

	case TypeLeave:
		return LeaveCommand{}, nil

	case TypePing:
		return PingCommand{}, nil

	case TypeTerminate:
		return TerminateCommand{}, nil

	case TypeOffer, TypeAnswer:
		var d struct {
			Target string                     `json:"target"`
			SDP    *webrtc.SessionDescription `json:"sdp"`
		}
		if err := decodeData(env.Data, &d); err != nil {
			return nil, err
		}
		target, err := requireString("target", d.Target)
		if err != nil {
			return nil, err
		}
		if d.SDP == nil {
			return nil, malformed("sdp is required")
		}
		if err := validateSDP(env.Type, d.SDP); err != nil {
			return nil, err
		}
		return SignalCommand{Kind: env.Type, Target: target, SDP: d.SDP}, nil

	case TypeICECandidate:
		var d struct {
			Target    string                   `json:"target"`
			Candidate *webrtc.ICECandidateInit `json:"candidate"`
		}
		if err := decodeData(env.Data, &d); err != nil {
			return nil, err
		}
		target, err := requireString("target", d.Target)
		if err != nil {
			return nil, err
		}
		if d.Candidate == nil {
			return nil, malformed("candidate is required")
		}
		return SignalCommand{Kind: TypeICECandidate, Target: target, Candidate: d.Candidate}, nil

	case TypeChat:
		var d struct {
			Message string `json:"message"`
		}
		if err := decodeData(env.Data, &d); err != nil {
			return nil, err
		}
		return ChatCommand{Message: d.Message}, nil

	case TypeWhiteboard:
		var d struct {
			Action  string          `json:"action"`
			Element json.RawMessage `json:"element"`
		}
		if err := decodeData(env.Data, &d); err != nil {
			return nil, err
		}
		action, err := requireString("action", d.Action)
		if err != nil {
			return nil, err
		}
		el := d.Element
		if string(el) == "null" {
			el = nil
		}
		return WhiteboardCommand{Action: action, Element: el}, nil

	case TypeRaiseHand:
		var d struct {
			Raised *bool `json:"raised"`
		}
		if err := decodeData(env.Data, &d); err != nil {
			return nil, err
		}
		v, err := requireBool("raised", d.Raised)
		if err != nil {
			return nil, err
		}
		return RaiseHandCommand{Raised: v}, nil

	case TypeToggleAudio, TypeToggleVideo, TypeToggleScreenShare:
		var d struct {
			Enabled *bool `json:"enabled"`
		}
		if err := decodeData(env.Data, &d); err != nil {
			return nil, err
		}
		v, err := requireBool("enabled", d.Enabled)
		if err != nil {
			return nil, err
		}
		media := conference.MediaAudio
		switch env.Type {
		case TypeToggleVideo:
			media = conference.MediaVideo
		case TypeToggleScreenShare:
			media = conference.MediaScreen
		}
		return MediaCommand{Kind: env.Type, Media: media, Enabled: v}, nil

	case TypeSpeaking:
		var d struct {
			Speaking *bool `json:"speaking"`
		}
		if err := decodeData(env.Data, &d); err != nil {
			return nil, err
		}
		v, err := requireBool("speaking", d.Speaking)
		if err != nil {
			return nil, err
		}
		return SpeakingCommand{Speaking: v}, nil

	case TypeCreatePoll:
		var d struct {
			Question string   `json:"question"`
			Options  []string `json:"options"`
		}
		if err := decodeData(env.Data, &d); err != nil {
			return nil, err
		}
		return CreatePollCommand{Question: d.Question, Options: d.Options}, nil

	case TypeVotePoll:
		var d struct {
			PollID      string `json:"pollId"`
			OptionIndex *int   `json:"optionIndex"`
		}
		if err := decodeData(env.Data, &d); err != nil {
			return nil, err
		}
		id, err := requireString("pollId", d.PollID)
		if err != nil {
			return nil, err
		}
		if d.OptionIndex == nil {
			return nil, malformed("optionIndex is required")
		}
		return VotePollCommand{PollID: id, OptionIndex: *d.OptionIndex}, nil

	case TypeEndPoll:
		var d struct {
			PollID string `json:"pollId"`
		}
		if err := decodeData(env.Data, &d); err != nil {
			return nil, err
		}
		id, err := requireString("pollId", d.PollID)
		if err != nil {
			return nil, err
		}
		return EndPollCommand{PollID: id}, nil

	case TypeShareFile:
		var d struct {
			FileName    string `json:"fileName"`
			Size        int64  `json:"size"`
			ContentType string `json:"contentType"`
			Key         string `json:"key"`
			URL         string `json:"url"`
		}
		if err := decodeData(env.Data, &d); err != nil {
			return nil, err
		}
		return ShareFileCommand{FileName: d.FileName, Size: d.Size, ContentType: d.ContentType, Key: d.Key, URL: d.URL}, nil

	case TypeHostSetting:
		var d conference.HostSettingsPatch
		if err := decodeData(env.Data, &d); err != nil {
			return nil, err
		}
		return HostSettingCommand{Patch: d}, nil

	case TypeLock:
		var d struct {
			IsLocked *bool `json:"isLocked"`
		}
		if err := decodeData(env.Data, &d); err != nil {
			return nil, err
		}
		v, err := requireBool("isLocked", d.IsLocked)
		if err != nil {
			return nil, err
		}
		return LockCommand{IsLocked: v}, nil

	case TypeToggleRecording:
		var d struct {
			Recording *bool `json:"recording"`
		}
		if err := decodeData(env.Data, &d); err != nil {
			return nil, err
		}
		v, err := requireBool("recording", d.Recording)
		if err != nil {
			return nil, err
		}
		return RecordingCommand{Recording: v}, nil

	case TypeKick, TypeMuteParticipant:
		var d struct {
			Target string `json:"target"`
		}
		if err := decodeData(env.Data, &d); err != nil {
			return nil, err
		}
		target, err := requireString("target", d.Target)
		if err != nil {
			return nil, err
		}
		if env.Type == TypeKick {
			return KickCommand{Target: target}, nil
		}
		return MuteCommand{Target: target}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
}

// validateSDP checks that the description type matches the message and that the SDP parses.
func validateSDP(kind string, sd *webrtc.SessionDescription) error {
	switch kind {
	case TypeOffer:
		if sd.Type != webrtc.SDPTypeOffer {
			return malformed("offer carries sdp of type %s", sd.Type)
		}
	case TypeAnswer:
		if sd.Type != webrtc.SDPTypeAnswer && sd.Type != webrtc.SDPTypePranswer {
			return malformed("answer carries sdp of type %s", sd.Type)
		}
	}
	if _, err := sd.Unmarshal(); err != nil {
		return malformed("invalid sdp: %v", err)
	}
	return nil
}
