package conference

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/conference/internal/models"
	"github.com/aura-webinar/conference/pkg/utils"
)

const (
	maxChatLength     = 4000
	maxPollOptions    = 10
	maxPollQuestion   = 500
	maxFileNameLength = 255
)

// Actor identifies the caller of a privileged operation. Signaling callers set
// ParticipantID; HTTP callers set the account fields only.
type Actor struct {
	ParticipantID string
	UserID        string
	IsAdmin       bool
}

// HostSettingsPatch holds the host settings to change; nil fields are left alone.
type HostSettingsPatch struct {
	HostVideoPriority      *bool `json:"hostVideoPriority,omitempty"`
	AllowParticipantDetach *bool `json:"allowParticipantDetach,omitempty"`
}

// Media is a participant media channel.
type Media string

const (
	MediaAudio  Media = "audio"
	MediaVideo  Media = "video"
	MediaScreen Media = "screen"
)

// Room owns the state of one conference. Every operation runs as a command on the
// room goroutine, so mutations of one conference never interleave.
type Room struct {
	id     string
	cmds   chan func()
	done   chan struct{}
	st     *roomState
	final  models.Conference
	fx     effects
	opts   Options
	logger *zap.Logger
}

type roomState struct {
	conf         models.Conference
	passcodeHash string
	reg          *registry
	chat         *ring[models.ChatMessage]
	board        *whiteboard
	polls        []*models.Poll
	files        *ring[models.FileShare]
	seq          uint64
	hostClaimed  bool
	stopped      bool
}

// effects receives side effects of applied commands. Implementations must not block.
type effects interface {
	conferenceChanged(c models.Conference)
	participantJoined(conferenceID string, p models.Participant)
	participantLeft(conferenceID string, p models.Participant)
	chatAppended(m models.ChatMessage)
	published(conferenceID string, frame []byte)
	ended(c models.Conference)
}

func newRoom(conf models.Conference, passcodeHash string, opts Options, fx effects, logger *zap.Logger) *Room {
	r := &Room{
		id:   conf.ID,
		cmds: make(chan func()),
		done: make(chan struct{}),
		st: &roomState{
			conf:         conf,
			passcodeHash: passcodeHash,
			reg:          newRegistry(),
			chat:         newRing[models.ChatMessage](opts.ChatHistoryLimit),
			board:        &whiteboard{limit: opts.WhiteboardLogLimit},
			files:        newRing[models.FileShare](opts.FileShareLimit),
			hostClaimed:  conf.CreatedBy != nil,
		},
		fx:     fx,
		opts:   opts,
		logger: logger.With(zap.String("conference_id", conf.ID)),
	}
	go r.loop()
	return r
}

// ID returns the conference id.
func (r *Room) ID() string { return r.id }

func (r *Room) loop() {
	for fn := range r.cmds {
		fn()
		if r.st.stopped {
			r.final = r.st.conf.Clone()
			close(r.done)
			return
		}
	}
}

// exec runs fn on the room goroutine and waits for its result.
func (r *Room) exec(ctx context.Context, fn func(s *roomState) error) error {
	errc := make(chan error, 1)
	select {
	case r.cmds <- func() { errc <- fn(r.st) }:
	case <-r.done:
		return ErrConferenceNotFound
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the conference has ended or the room was shut down.
func (r *Room) Done() <-chan struct{} { return r.done }

func (r *Room) now() time.Time {
	if r.opts.Now != nil {
		return r.opts.Now()
	}
	return time.Now().UTC()
}

// emit assigns a sequence number to broadcast events, fans ev out and closes every
// connection that could not take the frame.
func (r *Room) emit(s *roomState, ev Event, target string) {
	d := deliveryFor(ev.Type)
	if d != ToTarget {
		s.seq++
		ev.Seq = s.seq
	}
	targets := route(s.reg, d, ev.From, target)
	frame, dropped, err := fanout(targets, ev)
	if err != nil {
		r.logger.Error("fanout", zap.String("event", ev.Type), zap.Error(err))
		return
	}
	for _, m := range dropped {
		r.logger.Warn("send buffer full, disconnecting", zap.String("participant_id", m.p.ID))
		m.conn.Close()
	}
	if d != ToTarget {
		r.fx.published(s.conf.ID, frame)
	}
}

func (r *Room) sendTo(m *member, ev Event) {
	frame, err := json.Marshal(ev)
	if err != nil {
		r.logger.Error("encode", zap.String("event", ev.Type), zap.Error(err))
		return
	}
	if !m.conn.TrySend(frame) {
		m.conn.Close()
	}
}

func (s *roomState) member(id string) (*member, error) {
	if m := s.reg.get(id); m != nil {
		return m, nil
	}
	return nil, ErrParticipantNotFound
}

// authorize checks that a may use host controls.
func (s *roomState) authorize(a Actor) error {
	if a.ParticipantID != "" {
		m := s.reg.get(a.ParticipantID)
		if m == nil {
			return ErrParticipantNotFound
		}
		if m.p.Privileged() {
			return nil
		}
	}
	if a.IsAdmin || s.conf.IsCreator(a.UserID) {
		return nil
	}
	return ErrForbidden
}

func (s *roomState) syncFor(m *member) StateSync {
	polls := make([]PollView, 0, len(s.polls))
	for _, p := range s.polls {
		polls = append(polls, viewPoll(p))
	}
	return StateSync{
		Conference:    s.conf.Clone(),
		Self:          m.p,
		Participants:  s.reg.list(),
		Chat:          s.chat.items(),
		ChatTruncated: s.chat.truncated(),
		Whiteboard:    s.board.snapshot(),
		Polls:         polls,
		Files:         s.files.items(),
		Seq:           s.seq,
	}
}

// Snapshot returns the current conference record.
func (r *Room) Snapshot(ctx context.Context) (models.Conference, error) {
	var out models.Conference
	err := r.exec(ctx, func(s *roomState) error {
		out = s.conf.Clone()
		return nil
	})
	if errors.Is(err, ErrConferenceNotFound) {
		return r.final.Clone(), nil
	}
	return out, err
}

// Participants returns the registry snapshot ordered by join time.
func (r *Room) Participants(ctx context.Context) ([]models.Participant, error) {
	var out []models.Participant
	err := r.exec(ctx, func(s *roomState) error {
		out = s.reg.list()
		return nil
	})
	return out, err
}

// Chat returns the buffered chat history, oldest first.
func (r *Room) Chat(ctx context.Context) ([]models.ChatMessage, error) {
	var out []models.ChatMessage
	err := r.exec(ctx, func(s *roomState) error {
		out = s.chat.items()
		return nil
	})
	return out, err
}

// preflight runs the join checks without registering anybody.
func (r *Room) preflight(ctx context.Context, p models.Participant, passcode string) (models.Conference, error) {
	var out models.Conference
	err := r.exec(ctx, func(s *roomState) error {
		p.IsHost = s.conf.IsCreator(p.UserID)
		if err := s.admissible(p, passcode); err != nil {
			return err
		}
		out = s.conf.Clone()
		return nil
	})
	return out, err
}

func (s *roomState) admissible(p models.Participant, passcode string) error {
	if !s.conf.Active {
		return ErrConferenceNotFound
	}
	if s.passcodeHash != "" && !p.Privileged() && !utils.CheckPasscode(passcode, s.passcodeHash) {
		return ErrInvalidPasscode
	}
	if s.conf.IsLocked && !p.Privileged() {
		return ErrConferenceLocked
	}
	if s.conf.MaxParticipants != nil && *s.conf.MaxParticipants > 0 && s.reg.count() >= *s.conf.MaxParticipants {
		return ErrConferenceFull
	}
	return nil
}

// join registers p on conn. The joiner's state-sync is queued before anybody else hears
// about the join, so no live event can overtake it.
func (r *Room) join(ctx context.Context, p models.Participant, passcode string, wantHost bool, conn Conn) (models.Participant, error) {
	err := r.exec(ctx, func(s *roomState) error {
		p.IsHost = s.conf.IsCreator(p.UserID)
		if err := s.admissible(p, passcode); err != nil {
			return err
		}
		// A claimed host role counts only once the joiner got in like any guest.
		if !p.IsHost && wantHost && s.conf.CreatedBy == nil && !s.hostClaimed {
			p.IsHost = true
		}
		if !s.conf.HasVideoEnabled {
			p.VideoEnabled = false
		}
		p.JoinedAt = r.now()
		if err := s.reg.register(&s.conf, p, conn); err != nil {
			return err
		}
		if p.IsHost {
			s.hostClaimed = true
			s.conf.HostID = p.ID
		}
		if s.conf.State == models.ConferenceCreated {
			now := r.now()
			s.conf.State = models.ConferenceActive
			s.conf.StartedAt = &now
		}
		m := s.reg.get(p.ID)
		r.sendTo(m, Event{Type: EventStateSync, Data: s.syncFor(m)})
		r.emit(s, Event{Type: EventParticipantJoined, From: p.ID, Data: participantEvent{Participant: p, Count: s.conf.CurrentParticipants}}, "")
		r.fx.participantJoined(s.conf.ID, p)
		r.fx.conferenceChanged(s.conf.Clone())
		r.logger.Info("participant joined", zap.String("participant_id", p.ID), zap.Bool("host", p.IsHost), zap.Int("count", s.conf.CurrentParticipants))
		return nil
	})
	return p, err
}

// Leave unregisters a participant. It is a no-op when the participant is already gone.
func (r *Room) Leave(ctx context.Context, participantID string) error {
	err := r.exec(ctx, func(s *roomState) error {
		r.remove(s, participantID, "left")
		return nil
	})
	if errors.Is(err, ErrConferenceNotFound) {
		return nil
	}
	return err
}

func (r *Room) remove(s *roomState, participantID, reason string) bool {
	m, ok := s.reg.unregister(&s.conf, participantID)
	if !ok {
		return false
	}
	if s.conf.HostID == participantID {
		s.conf.HostID = ""
	}
	r.emit(s, Event{Type: EventParticipantLeft, From: participantID, Data: participantEvent{Participant: m.p, Count: s.conf.CurrentParticipants, Reason: reason}}, "")
	if s.conf.IsRecording && s.conf.RecordingBy == participantID {
		s.conf.IsRecording = false
		s.conf.RecordingBy = ""
		r.emit(s, Event{Type: EventRecording, From: participantID, Data: map[string]any{"isRecording": false, "recordingBy": ""}}, "")
	}
	if m.p.IsHost {
		if next := r.opts.HostPolicy.successor(s.reg); next != nil {
			next.p.IsHost = true
			s.conf.HostID = next.p.ID
			r.emit(s, Event{Type: EventHostChanged, Data: map[string]string{"participantId": next.p.ID, "previousId": participantID}}, "")
		}
	}
	r.fx.participantLeft(s.conf.ID, m.p)
	r.fx.conferenceChanged(s.conf.Clone())
	r.logger.Info("participant left", zap.String("participant_id", participantID), zap.String("reason", reason), zap.Int("count", s.conf.CurrentParticipants))
	return true
}

// SendChat appends a chat message and broadcasts it to everyone, the sender included.
func (r *Room) SendChat(ctx context.Context, participantID, text string) (models.ChatMessage, error) {
	var msg models.ChatMessage
	err := r.exec(ctx, func(s *roomState) error {
		m, err := s.member(participantID)
		if err != nil {
			return err
		}
		if !s.conf.HasChat {
			return ErrFeatureDisabled
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return invalidf("chat message is empty")
		}
		if len(text) > maxChatLength {
			return invalidf("chat message exceeds %d bytes", maxChatLength)
		}
		msg = models.ChatMessage{
			ID:           uuid.NewString(),
			ConferenceID: s.conf.ID,
			SenderID:     m.p.ID,
			SenderName:   m.p.Name,
			Message:      text,
			Seq:          s.seq + 1,
			CreatedAt:    r.now(),
		}
		s.chat.push(msg)
		r.emit(s, Event{Type: EventChat, From: m.p.ID, Data: msg}, "")
		r.fx.chatAppended(msg)
		return nil
	})
	return msg, err
}

// ApplyWhiteboard validates and appends a whiteboard action, then broadcasts it.
func (r *Room) ApplyWhiteboard(ctx context.Context, participantID, action string, element json.RawMessage) (models.WhiteboardAction, error) {
	var a models.WhiteboardAction
	err := r.exec(ctx, func(s *roomState) error {
		m, err := s.member(participantID)
		if err != nil {
			return err
		}
		if !models.ValidWhiteboardAction(action) {
			return invalidf("unknown whiteboard action %q", action)
		}
		if action == models.WhiteboardAdd && len(element) == 0 {
			return invalidf("whiteboard add requires an element")
		}
		if action != models.WhiteboardAdd {
			element = nil
		}
		a = models.WhiteboardAction{
			ID:            uuid.NewString(),
			ConferenceID:  s.conf.ID,
			ParticipantID: m.p.ID,
			Action:        action,
			Element:       element,
			Seq:           s.seq + 1,
			CreatedAt:     r.now(),
		}
		compacted, dropped := s.board.append(a)
		r.emit(s, Event{Type: EventWhiteboard, From: m.p.ID, Data: a}, "")
		if compacted {
			r.emit(s, Event{Type: EventWhiteboardReset, Data: map[string]any{"actions": s.board.snapshot()}}, "")
			r.logger.Info("whiteboard compacted", zap.Bool("dropped", dropped))
		}
		return nil
	})
	return a, err
}

// CreatePoll opens a new poll.
func (r *Room) CreatePoll(ctx context.Context, participantID, question string, options []string) (models.Poll, error) {
	var out models.Poll
	err := r.exec(ctx, func(s *roomState) error {
		m, err := s.member(participantID)
		if err != nil {
			return err
		}
		question = strings.TrimSpace(question)
		if question == "" || len(question) > maxPollQuestion {
			return invalidf("poll question must be 1-%d bytes", maxPollQuestion)
		}
		opts := make([]string, 0, len(options))
		for _, o := range options {
			if o = strings.TrimSpace(o); o == "" {
				return invalidf("poll options must not be empty")
			}
			opts = append(opts, o)
		}
		if len(opts) < 2 || len(opts) > maxPollOptions {
			return invalidf("a poll needs 2-%d options", maxPollOptions)
		}
		p := &models.Poll{
			ID:           uuid.NewString(),
			ConferenceID: s.conf.ID,
			CreatedBy:    m.p.ID,
			Question:     question,
			Options:      opts,
			Votes:        make(map[string]int),
			IsActive:     true,
			CreatedAt:    r.now(),
		}
		s.polls = append(s.polls, p)
		out = p.Clone()
		r.emit(s, Event{Type: EventPollCreated, From: m.p.ID, Data: viewPoll(p)}, "")
		return nil
	})
	return out, err
}

func (s *roomState) poll(id string) (*models.Poll, error) {
	for _, p := range s.polls {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, ErrPollNotFound
}

// VotePoll records the participant's choice. A later vote overwrites an earlier one.
func (r *Room) VotePoll(ctx context.Context, participantID, pollID string, optionIndex int) error {
	return r.exec(ctx, func(s *roomState) error {
		m, err := s.member(participantID)
		if err != nil {
			return err
		}
		p, err := s.poll(pollID)
		if err != nil {
			return err
		}
		if !p.IsActive {
			return ErrPollClosed
		}
		if optionIndex < 0 || optionIndex >= len(p.Options) {
			return invalidf("option index %d out of range [0,%d)", optionIndex, len(p.Options))
		}
		p.Votes[m.p.ID] = optionIndex
		r.emit(s, Event{Type: EventPollUpdated, From: m.p.ID, Data: viewPoll(p)}, "")
		return nil
	})
}

// EndPoll closes a poll. Allowed for its creator, the host and admins.
func (r *Room) EndPoll(ctx context.Context, participantID, pollID string) error {
	return r.exec(ctx, func(s *roomState) error {
		m, err := s.member(participantID)
		if err != nil {
			return err
		}
		p, err := s.poll(pollID)
		if err != nil {
			return err
		}
		if p.CreatedBy != m.p.ID && !m.p.Privileged() {
			return ErrForbidden
		}
		if !p.IsActive {
			return ErrPollClosed
		}
		now := r.now()
		p.IsActive = false
		p.EndedAt = &now
		r.emit(s, Event{Type: EventPollEnded, From: m.p.ID, Data: viewPoll(p)}, "")
		return nil
	})
}

// SetHostSettings applies patch. Host or admin only.
func (r *Room) SetHostSettings(ctx context.Context, a Actor, patch HostSettingsPatch) (models.HostSettings, error) {
	var out models.HostSettings
	err := r.exec(ctx, func(s *roomState) error {
		if err := s.authorize(a); err != nil {
			return err
		}
		if patch.HostVideoPriority == nil && patch.AllowParticipantDetach == nil {
			return invalidf("no host setting given")
		}
		if patch.HostVideoPriority != nil {
			s.conf.HostVideoPriority = *patch.HostVideoPriority
		}
		if patch.AllowParticipantDetach != nil {
			s.conf.AllowParticipantDetach = *patch.AllowParticipantDetach
		}
		out = s.conf.HostSettings
		r.emit(s, Event{Type: EventHostSetting, From: a.ParticipantID, Data: out}, "")
		r.fx.conferenceChanged(s.conf.Clone())
		return nil
	})
	return out, err
}

// SetLock locks or unlocks the conference. Host or admin only.
func (r *Room) SetLock(ctx context.Context, a Actor, locked bool) error {
	return r.exec(ctx, func(s *roomState) error {
		if err := s.authorize(a); err != nil {
			return err
		}
		s.conf.IsLocked = locked
		r.emit(s, Event{Type: EventLock, From: a.ParticipantID, Data: map[string]bool{"isLocked": locked}}, "")
		r.fx.conferenceChanged(s.conf.Clone())
		return nil
	})
}

// SetRecording starts or stops recording. Host or admin only.
func (r *Room) SetRecording(ctx context.Context, a Actor, on bool) error {
	return r.exec(ctx, func(s *roomState) error {
		if err := s.authorize(a); err != nil {
			return err
		}
		if s.conf.IsRecording == on {
			return nil
		}
		if prev := s.reg.get(s.conf.RecordingBy); prev != nil {
			prev.p.IsRecording = false
		}
		s.conf.IsRecording = on
		s.conf.RecordingBy = ""
		if on {
			s.conf.RecordingBy = a.ParticipantID
			if m := s.reg.get(a.ParticipantID); m != nil {
				m.p.IsRecording = true
			}
		}
		r.emit(s, Event{Type: EventRecording, From: a.ParticipantID, Data: map[string]any{"isRecording": on, "recordingBy": s.conf.RecordingBy}}, "")
		r.fx.conferenceChanged(s.conf.Clone())
		return nil
	})
}

// RaiseHand sets the participant's hand-raised flag.
func (r *Room) RaiseHand(ctx context.Context, participantID string, raised bool) error {
	return r.exec(ctx, func(s *roomState) error {
		m, err := s.member(participantID)
		if err != nil {
			return err
		}
		m.p.IsHandRaised = raised
		r.emit(s, Event{Type: EventRaiseHand, From: m.p.ID, Data: map[string]any{"participantId": m.p.ID, "raised": raised}}, "")
		return nil
	})
}

// SetMedia records a media toggle and tells everybody but the originator.
func (r *Room) SetMedia(ctx context.Context, participantID string, media Media, enabled bool) error {
	return r.exec(ctx, func(s *roomState) error {
		m, err := s.member(participantID)
		if err != nil {
			return err
		}
		var evType string
		switch media {
		case MediaAudio:
			m.p.AudioEnabled = enabled
			evType = EventToggleAudio
		case MediaVideo:
			if enabled && !s.conf.HasVideoEnabled {
				return ErrFeatureDisabled
			}
			m.p.VideoEnabled = enabled
			evType = EventToggleVideo
		case MediaScreen:
			if enabled && !s.conf.HasScreenShare {
				return ErrFeatureDisabled
			}
			m.p.IsScreenSharing = enabled
			evType = EventToggleScreenShare
		default:
			return invalidf("unknown media %q", media)
		}
		r.emit(s, Event{Type: evType, From: m.p.ID, Data: mediaEvent{ParticipantID: m.p.ID, Enabled: enabled}}, "")
		return nil
	})
}

// SetSpeaking records voice activity for a participant.
func (r *Room) SetSpeaking(ctx context.Context, participantID string, speaking bool) error {
	return r.exec(ctx, func(s *roomState) error {
		m, err := s.member(participantID)
		if err != nil {
			return err
		}
		if m.p.IsSpeaking == speaking {
			return nil
		}
		m.p.IsSpeaking = speaking
		r.emit(s, Event{Type: EventSpeaking, From: m.p.ID, Data: mediaEvent{ParticipantID: m.p.ID, Enabled: speaking}}, "")
		return nil
	})
}

// ShareFile announces a file to the conference.
func (r *Room) ShareFile(ctx context.Context, participantID string, f models.FileShare) (models.FileShare, error) {
	err := r.exec(ctx, func(s *roomState) error {
		m, err := s.member(participantID)
		if err != nil {
			return err
		}
		f.FileName = strings.TrimSpace(f.FileName)
		if f.FileName == "" || len(f.FileName) > maxFileNameLength {
			return invalidf("file name must be 1-%d bytes", maxFileNameLength)
		}
		if f.Size < 0 {
			return invalidf("file size must not be negative")
		}
		if f.Key == "" && f.URL == "" {
			return invalidf("shared file needs a key or url")
		}
		f.ID = uuid.NewString()
		f.ConferenceID = s.conf.ID
		f.SenderID = m.p.ID
		f.SenderName = m.p.Name
		f.Seq = s.seq + 1
		f.CreatedAt = r.now()
		s.files.push(f)
		r.emit(s, Event{Type: EventShareFile, From: m.p.ID, Data: f}, "")
		return nil
	})
	return f, err
}

// MuteParticipant turns off a participant's audio, or everybody's but the hosts' when
// target is "*". Host or admin only.
func (r *Room) MuteParticipant(ctx context.Context, a Actor, target string) error {
	return r.exec(ctx, func(s *roomState) error {
		if err := s.authorize(a); err != nil {
			return err
		}
		var muted []string
		if target == "*" {
			for _, m := range s.reg.order {
				if !m.p.Privileged() && m.p.AudioEnabled {
					m.p.AudioEnabled = false
					muted = append(muted, m.p.ID)
				}
			}
		} else {
			m, err := s.member(target)
			if err != nil {
				return err
			}
			m.p.AudioEnabled = false
			muted = append(muted, m.p.ID)
		}
		r.emit(s, Event{Type: EventMuteParticipant, From: a.ParticipantID, Data: map[string]any{"target": target, "participantIds": muted}}, "")
		return nil
	})
}

// Kick removes target from the conference. Host or admin only; only admins may kick admins.
func (r *Room) Kick(ctx context.Context, a Actor, target string) error {
	return r.exec(ctx, func(s *roomState) error {
		if err := s.authorize(a); err != nil {
			return err
		}
		m, err := s.member(target)
		if err != nil {
			return err
		}
		if target == a.ParticipantID {
			return invalidf("cannot kick yourself")
		}
		if m.p.IsAdmin && !a.IsAdmin {
			return ErrForbidden
		}
		r.sendTo(m, Event{Type: EventKicked, From: a.ParticipantID, Data: map[string]string{"conferenceId": s.conf.ID}})
		m.conn.Close()
		r.remove(s, target, "kicked")
		return nil
	})
}

// Relay forwards a signaling message point-to-point from one participant to another.
func (r *Room) Relay(ctx context.Context, from, target, eventType string, payload any) error {
	if deliveryFor(eventType) != ToTarget || eventType == EventKicked || eventType == EventStateSync {
		return invalidf("%q is not a signaling message", eventType)
	}
	return r.exec(ctx, func(s *roomState) error {
		if _, err := s.member(from); err != nil {
			return err
		}
		if target == from {
			return invalidf("cannot signal yourself")
		}
		if _, err := s.member(target); err != nil {
			return err
		}
		r.emit(s, Event{Type: eventType, From: from, Data: payload}, target)
		return nil
	})
}

// Terminate ends the conference: it broadcasts conference-terminated, closes every
// transport and drops the room logs. Host or admin only.
func (r *Room) Terminate(ctx context.Context, a Actor) error {
	return r.exec(ctx, func(s *roomState) error {
		if err := s.authorize(a); err != nil {
			return err
		}
		now := r.now()
		s.conf.Active = false
		s.conf.State = models.ConferenceEnded
		s.conf.EndedAt = &now
		s.conf.IsRecording = false
		s.conf.RecordingBy = ""
		r.emit(s, Event{Type: EventConferenceTerminated, From: a.ParticipantID, Data: map[string]any{"conferenceId": s.conf.ID, "endedAt": now}}, "")
		for _, m := range append([]*member(nil), s.reg.order...) {
			m.conn.Close()
			s.reg.unregister(&s.conf, m.p.ID)
			r.fx.participantLeft(s.conf.ID, m.p)
		}
		s.conf.HostID = ""
		s.chat.reset()
		s.board.reset()
		s.files.reset()
		s.polls = nil
		s.stopped = true
		r.fx.conferenceChanged(s.conf.Clone())
		r.fx.ended(s.conf.Clone())
		r.logger.Info("conference terminated")
		return nil
	})
}

// shutdown closes every transport and stops the room without ending the conference.
func (r *Room) shutdown(ctx context.Context) {
	_ = r.exec(ctx, func(s *roomState) error {
		for _, m := range s.reg.order {
			m.conn.Close()
		}
		s.stopped = true
		return nil
	})
}
