package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"

	"github.com/aura-webinar/conference/internal/auth"
	"github.com/aura-webinar/conference/internal/conference"
	"github.com/aura-webinar/conference/internal/models"
	"github.com/aura-webinar/conference/pkg/response"
	"github.com/aura-webinar/conference/pkg/storage"
)

// Outbound types owned by the transport.
const (
	TypeHello = "hello"
	TypePong  = "pong"
	TypeError = "error"
)

const opTimeout = 5 * time.Second

// TransportConfig tunes the signaling connections.
type TransportConfig struct {
	LivenessTimeout time.Duration
	PingInterval    time.Duration
	WriteTimeout    time.Duration
	SendBuffer      int
	ReadLimit       int64
	ICEServers      []webrtc.ICEServer
	// CheckOrigin vets the browser origin of the upgrade; nil accepts any origin.
	CheckOrigin     func(r *http.Request) bool
}

func (c TransportConfig) withDefaults() TransportConfig {
	if c.LivenessTimeout <= 0 {
		c.LivenessTimeout = 60 * time.Second
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.LivenessTimeout {
		c.PingInterval = c.LivenessTimeout * 9 / 10
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 256
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = 65536
	}
	if c.CheckOrigin == nil {
		c.CheckOrigin = func(*http.Request) bool { return true }
	}
	return c
}

// TokenValidator resolves a bearer token to a user id and role.
type TokenValidator func(token string) (userID, role string, err error)

type hello struct {
	ParticipantID string             `json:"participantId"`
	ConferenceID  string             `json:"conferenceId"`
	ICEServers    []webrtc.ICEServer `json:"iceServers"`
}

type errorReply struct {
	Code    string `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Request string `json:"request,omitempty"`
}

type signalPayload struct {
	SDP       *webrtc.SessionDescription `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
}

// Client is one signaling connection. It implements conference.Conn.
type Client struct {
	ID           string
	ConferenceID string
	UserID       string
	IsAdmin      bool

	manager *conference.Manager
	conn    *websocket.Conn
	cfg     TransportConfig
	logger  *zap.Logger

	// Only touched by the read loop.
	room *conference.Room

	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

// TrySend queues a frame without blocking.
func (c *Client) TrySend(frame []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close stops the connection. Queued frames are still flushed.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

func (c *Client) actor() conference.Actor {
	return conference.Actor{ParticipantID: c.ID, UserID: c.UserID, IsAdmin: c.IsAdmin}
}

// ServeWs upgrades GET /ws?conference_id=<id>[&token=<jwt>] and runs the connection.
// Without a token the caller joins as a guest.
func ServeWs(manager *conference.Manager, cfg TransportConfig, validate TokenValidator, logger *zap.Logger) gin.HandlerFunc {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     cfg.CheckOrigin,
	}
	return func(c *gin.Context) {
		conferenceID := c.Query("conference_id")
		if conferenceID == "" {
			response.BadRequest(c, "conference_id required")
			return
		}
		var userID, role string
		if token := c.Query("token"); token != "" {
			if validate == nil {
				response.Unauthorized(c, "invalid token")
				return
			}
			var err error
			if userID, role, err = validate(token); err != nil {
				response.Unauthorized(c, "invalid token")
				return
			}
		}
		if _, err := manager.Room(conferenceID); err != nil {
			response.Fail(c, conference.StatusOf(err), conference.CodeOf(err), err.Error())
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:           uuid.NewString(),
			ConferenceID: conferenceID,
			UserID:       userID,
			IsAdmin:      role == auth.RoleAdmin,
			manager:      manager,
			conn:         conn,
			cfg:          cfg,
			send:         make(chan []byte, cfg.SendBuffer),
			closed:       make(chan struct{}),
		}
		client.logger = logger.With(
			zap.String("client_id", client.ID),
			zap.String("conference_id", conferenceID),
		)
		client.reply(TypeHello, hello{ParticipantID: client.ID, ConferenceID: conferenceID, ICEServers: cfg.ICEServers})
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		if c.room != nil {
			leaveCtx, done := context.WithTimeout(context.Background(), opTimeout)
			if err := c.room.Leave(leaveCtx, c.ID); err != nil {
				c.logger.Debug("leave on disconnect", zap.Error(err))
			}
			done()
		}
		c.Close()
	}()

	c.conn.SetReadLimit(c.cfg.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.LivenessTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.LivenessTimeout))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("connection lost", zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.LivenessTimeout))
		if !c.handle(ctx, data) {
			return
		}
	}
}

// writePump owns all writes. On Close it flushes what is queued, sends a close frame and
// tears the socket down, which also ends the read loop.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			if err := c.write(websocket.TextMessage, frame); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.closed:
			for {
				select {
				case frame := <-c.send:
					if err := c.write(websocket.TextMessage, frame); err != nil {
						return
					}
				default:
					_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return c.conn.WriteMessage(messageType, data)
}

// reply queues a transport-level frame for this connection only.
func (c *Client) reply(eventType string, data any) {
	frame, err := json.Marshal(conference.Event{Type: eventType, Data: data})
	if err != nil {
		c.logger.Error("encode reply", zap.String("type", eventType), zap.Error(err))
		return
	}
	if !c.TrySend(frame) {
		c.Close()
	}
}

func (c *Client) fail(request string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	msg := err.Error()
	kind := conference.KindOf(err)
	if kind == conference.KindInternal {
		c.logger.Error("signaling command failed", zap.String("request", request), zap.Error(err))
		msg = "internal error"
	}
	c.reply(TypeError, errorReply{Code: conference.CodeOf(err), Kind: kind.String(), Message: msg, Request: request})
}

// handle processes one inbound frame. It returns false when the connection should end.
func (c *Client) handle(ctx context.Context, data []byte) bool {
	cmd, err := Decode(data)
	if err != nil {
		c.logger.Warn("dropping envelope", zap.Error(err))
		return true
	}

	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	switch cmd := cmd.(type) {
	case PingCommand:
		c.reply(TypePong, nil)
		return true
	case JoinCommand:
		if c.room != nil {
			c.fail(cmd.Type(), conference.ErrAlreadyJoined)
			return true
		}
		_, room, err := c.manager.Join(opCtx, c.ConferenceID, conference.JoinRequest{
			ParticipantID: c.ID,
			UserID:        c.UserID,
			Name:          cmd.Name,
			DeviceInfo:    cmd.DeviceInfo,
			IsAdmin:       c.IsAdmin,
			RequestedRole: cmd.Role,
			Passcode:      cmd.Passcode,
			AudioEnabled:  cmd.AudioEnabled,
			VideoEnabled:  cmd.VideoEnabled,
		}, c)
		if err != nil {
			c.fail(cmd.Type(), err)
			return true
		}
		c.room = room
		c.logger.Info("participant joined")
		return true
	}

	if c.room == nil {
		c.fail(cmd.Type(), conference.ErrParticipantNotFound)
		return true
	}
	if _, ok := cmd.(LeaveCommand); ok {
		if err := c.room.Leave(opCtx, c.ID); err != nil {
			c.fail(cmd.Type(), err)
		}
		c.room = nil
		return false
	}
	if err := c.dispatch(opCtx, cmd); err != nil {
		c.fail(cmd.Type(), err)
	}
	return true
}

func (c *Client) dispatch(ctx context.Context, cmd Command) error {
	r, pid := c.room, c.ID
	switch cmd := cmd.(type) {
	case SignalCommand:
		return r.Relay(ctx, pid, cmd.Target, cmd.Kind, signalPayload{SDP: cmd.SDP, Candidate: cmd.Candidate})
	case ChatCommand:
		_, err := r.SendChat(ctx, pid, cmd.Message)
		return err
	case WhiteboardCommand:
		_, err := r.ApplyWhiteboard(ctx, pid, cmd.Action, cmd.Element)
		return err
	case RaiseHandCommand:
		return r.RaiseHand(ctx, pid, cmd.Raised)
	case MediaCommand:
		return r.SetMedia(ctx, pid, cmd.Media, cmd.Enabled)
	case SpeakingCommand:
		return r.SetSpeaking(ctx, pid, cmd.Speaking)
	case CreatePollCommand:
		_, err := r.CreatePoll(ctx, pid, cmd.Question, cmd.Options)
		return err
	case VotePollCommand:
		return r.VotePoll(ctx, pid, cmd.PollID, cmd.OptionIndex)
	case EndPollCommand:
		return r.EndPoll(ctx, pid, cmd.PollID)
	case ShareFileCommand:
		if cmd.Key != "" && !strings.HasPrefix(cmd.Key, storage.SharePrefix(c.ConferenceID)) {
			return conference.ErrInvalidAction
		}
		_, err := r.ShareFile(ctx, pid, models.FileShare{
			FileName:    cmd.FileName,
			Size:        cmd.Size,
			ContentType: cmd.ContentType,
			Key:         cmd.Key,
			URL:         cmd.URL,
		})
		return err
	case HostSettingCommand:
		_, err := r.SetHostSettings(ctx, c.actor(), cmd.Patch)
		return err
	case LockCommand:
		return r.SetLock(ctx, c.actor(), cmd.IsLocked)
	case RecordingCommand:
		return r.SetRecording(ctx, c.actor(), cmd.Recording)
	case KickCommand:
		return r.Kick(ctx, c.actor(), cmd.Target)
	case MuteCommand:
		return r.MuteParticipant(ctx, c.actor(), cmd.Target)
	case TerminateCommand:
		return r.Terminate(ctx, c.actor())
	}
	return conference.ErrInvalidAction
}
