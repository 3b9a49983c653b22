package conference

import (
	"context"
	"crypto/rand"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/conference/internal/models"
	"github.com/aura-webinar/conference/pkg/utils"
)

const (
	dispatchBuffer  = 1024
	dispatchTimeout = 5 * time.Second
	purgeInterval   = time.Minute
	maxNameLength   = 200
)

// Options tunes conference behavior.
type Options struct {
	ChatHistoryLimit       int
	WhiteboardLogLimit     int
	FileShareLimit         int
	DefaultMaxParticipants int
	HostPolicy             HostPolicy
	EndedRetention         time.Duration
	Now                    func() time.Time
}

// Journal persists conference state changes. It is called off the room goroutine.
type Journal interface {
	ConferenceChanged(ctx context.Context, c models.Conference) error
	ParticipantJoined(ctx context.Context, conferenceID string, p models.Participant) error
	ParticipantLeft(ctx context.Context, conferenceID string, p models.Participant) error
	ChatAppended(ctx context.Context, m models.ChatMessage) error
}

// Publisher forwards encoded room events to external consumers.
type Publisher interface {
	PublishConferenceEvent(ctx context.Context, conferenceID string, frame []byte) error
}

// Lease grants this process exclusive ownership of a conference id.
type Lease interface {
	Acquire(ctx context.Context, conferenceID string) (bool, error)
	Release(ctx context.Context, conferenceID string) error
}

// EndHandler is called after a conference has been terminated.
type EndHandler func(ctx context.Context, c models.Conference) error

// CreateRequest describes a new conference.
type CreateRequest struct {
	OwnerID         *string
	Name            string
	MaxParticipants *int
	HostSettings    models.HostSettings
	Features        *models.Features
	Passcode        string
}

// JoinRequest describes a participant asking to join.
type JoinRequest struct {
	ParticipantID string
	UserID        string
	Name          string
	DeviceInfo    string
	IsAdmin       bool
	RequestedRole string
	Passcode      string
	AudioEnabled  bool
	VideoEnabled  bool
}

// Manager creates, finds and ends conferences. Each conference is owned by one Room.
type Manager struct {
	opts   Options
	logger *zap.Logger

	mu        sync.RWMutex
	rooms     map[string]*Room
	journal   Journal
	publisher Publisher
	lease     Lease
	onEnd     EndHandler

	jobs     chan func(ctx context.Context) error
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewManager creates a manager and starts its background dispatcher.
func NewManager(opts Options, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.HostPolicy == "" {
		opts.HostPolicy = HostPolicyNone
	}
	m := &Manager{
		opts:   opts,
		logger: logger,
		rooms:  make(map[string]*Room),
		jobs:   make(chan func(ctx context.Context) error, dispatchBuffer),
		stop:   make(chan struct{}),
	}
	m.wg.Add(1)
	go m.run()
	return m
}

// SetJournal sets the persistence journal.
func (m *Manager) SetJournal(j Journal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.journal = j
}

// SetPublisher sets the external event publisher.
func (m *Manager) SetPublisher(p Publisher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publisher = p
}

// SetLease sets the ownership lease.
func (m *Manager) SetLease(l Lease) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lease = l
}

// SetEndHandler sets the callback run after a conference ends.
func (m *Manager) SetEndHandler(fn EndHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEnd = fn
}

// Create allocates a room code and starts a conference in the Created state.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (models.Conference, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > maxNameLength {
		return models.Conference{}, invalidf("conference name must be 1-%d bytes", maxNameLength)
	}
	maxP := req.MaxParticipants
	if maxP == nil && m.opts.DefaultMaxParticipants > 0 {
		v := m.opts.DefaultMaxParticipants
		maxP = &v
	}
	if maxP != nil && *maxP < 1 {
		return models.Conference{}, invalidf("maxParticipants must be at least 1")
	}
	features := models.Features{HasScreenShare: true, HasChat: true, HasVideoEnabled: true}
	if req.Features != nil {
		features = *req.Features
	}
	var hash string
	if req.Passcode != "" {
		h, err := utils.HashPasscode(req.Passcode)
		if err != nil {
			return models.Conference{}, fmt.Errorf("hash passcode: %w", err)
		}
		hash = h
	}

	m.mu.RLock()
	lease := m.lease
	m.mu.RUnlock()

	id, err := m.allocateID(ctx, lease)
	if err != nil {
		return models.Conference{}, err
	}
	conf := models.Conference{
		ID:              id,
		Name:            name,
		CreatedBy:       req.OwnerID,
		State:           models.ConferenceCreated,
		Active:          true,
		MaxParticipants: maxP,
		HostSettings:    req.HostSettings,
		Features:        features,
		HasPasscode:     hash != "",
		CreatedAt:       m.now(),
	}
	room := newRoom(conf, hash, m.opts, m, m.logger)

	m.mu.Lock()
	m.rooms[id] = room
	m.mu.Unlock()

	m.conferenceChanged(conf.Clone())
	m.logger.Info("conference created", zap.String("conference_id", id), zap.String("name", name))
	return conf.Clone(), nil
}

func (m *Manager) allocateID(ctx context.Context, lease Lease) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		id, err := newRoomCode()
		if err != nil {
			return "", fmt.Errorf("room code: %w", err)
		}
		m.mu.RLock()
		_, taken := m.rooms[id]
		m.mu.RUnlock()
		if taken {
			continue
		}
		if lease == nil {
			return id, nil
		}
		ok, err := lease.Acquire(ctx, id)
		if err != nil {
			return "", &Error{Kind: KindTransient, Code: ErrUnavailable.Code, Message: "acquire conference lease: " + err.Error()}
		}
		if ok {
			return id, nil
		}
	}
	return "", ErrOwnedElsewhere
}

// Room returns the room of a conference, live or recently ended.
func (m *Manager) Room(id string) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, ErrConferenceNotFound
	}
	return r, nil
}

// Get returns the conference record.
func (m *Manager) Get(ctx context.Context, id string) (models.Conference, error) {
	r, err := m.Room(id)
	if err != nil {
		return models.Conference{}, err
	}
	return r.Snapshot(ctx)
}

// List returns the live conferences of this instance ordered by creation time.
func (m *Manager) List(ctx context.Context) ([]models.Conference, error) {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()
	out := make([]models.Conference, 0, len(rooms))
	for _, r := range rooms {
		select {
		case <-r.done:
			continue
		default:
		}
		c, err := r.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		if c.Active {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func participantFrom(req JoinRequest) models.Participant {
	id := req.ParticipantID
	if id == "" {
		id = uuid.NewString()
	}
	return models.Participant{
		ID:           id,
		UserID:       req.UserID,
		Name:         strings.TrimSpace(req.Name),
		DeviceInfo:   req.DeviceInfo,
		IsAdmin:      req.IsAdmin,
		AudioEnabled: req.AudioEnabled,
		VideoEnabled: req.VideoEnabled,
	}
}

// CheckJoin runs the join checks for a conference without registering anybody.
func (m *Manager) CheckJoin(ctx context.Context, id string, req JoinRequest) (models.Conference, error) {
	r, err := m.Room(id)
	if err != nil {
		return models.Conference{}, err
	}
	return r.preflight(ctx, participantFrom(req), req.Passcode)
}

// Join registers a participant on conn. The host flag is computed here: the creator and
// admins always win, the requested role only counts for guest-created conferences.
func (m *Manager) Join(ctx context.Context, id string, req JoinRequest, conn Conn) (models.Participant, *Room, error) {
	p := participantFrom(req)
	if p.Name == "" {
		return models.Participant{}, nil, invalidf("participant name is required")
	}
	r, err := m.Room(id)
	if err != nil {
		return models.Participant{}, nil, err
	}
	p, err = r.join(ctx, p, req.Passcode, req.RequestedRole == "host", conn)
	if err != nil {
		return models.Participant{}, nil, err
	}
	return p, r, nil
}

// Leave unregisters a participant; it is idempotent.
func (m *Manager) Leave(ctx context.Context, id, participantID string) error {
	r, err := m.Room(id)
	if err != nil {
		return nil
	}
	return r.Leave(ctx, participantID)
}

// Terminate ends a conference. Host or admin only.
func (m *Manager) Terminate(ctx context.Context, id string, a Actor) error {
	r, err := m.Room(id)
	if err != nil {
		return err
	}
	return r.Terminate(ctx, a)
}

// Kick removes target from a conference. Host or admin only.
func (m *Manager) Kick(ctx context.Context, id string, a Actor, target string) error {
	r, err := m.Room(id)
	if err != nil {
		return err
	}
	return r.Kick(ctx, a, target)
}

// Evict stops serving a conference this instance no longer owns. Transports are closed
// and the conference is forgotten without being ended.
func (m *Manager) Evict(ctx context.Context, id string) {
	m.mu.Lock()
	r, ok := m.rooms[id]
	delete(m.rooms, id)
	m.mu.Unlock()
	if !ok {
		return
	}
	r.shutdown(ctx)
	m.logger.Warn("conference evicted", zap.String("conference_id", id))
}

// Close shuts every room down, closing all transports, and drains pending side effects.
func (m *Manager) Close(ctx context.Context) {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()
	for _, r := range rooms {
		r.shutdown(ctx)
	}
	m.stopOnce.Do(func() { close(m.stop) })
	m.wg.Wait()
}

func (m *Manager) now() time.Time {
	if m.opts.Now != nil {
		return m.opts.Now()
	}
	return time.Now().UTC()
}

func (m *Manager) run() {
	defer m.wg.Done()
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case job := <-m.jobs:
			m.runJob(job)
		case <-ticker.C:
			m.purge()
		case <-m.stop:
			for {
				select {
				case job := <-m.jobs:
					m.runJob(job)
				default:
					return
				}
			}
		}
	}
}

func (m *Manager) runJob(job func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()
	if err := job(ctx); err != nil {
		m.logger.Warn("conference side effect failed", zap.Error(err))
	}
}

// async queues job for the dispatcher without blocking. Jobs are dropped when the
// queue is full.
func (m *Manager) async(name string, job func(ctx context.Context) error) {
	select {
	case m.jobs <- job:
	default:
		m.logger.Warn("dispatch queue full, dropping side effect", zap.String("job", name))
	}
}

// purge forgets ended conferences older than the retention window.
func (m *Manager) purge() {
	cutoff := m.now().Add(-m.opts.EndedRetention)
	m.mu.Lock()
	var purged []string
	for id, r := range m.rooms {
		select {
		case <-r.done:
		default:
			continue
		}
		if r.final.EndedAt != nil && r.final.EndedAt.Before(cutoff) {
			delete(m.rooms, id)
			purged = append(purged, id)
		}
	}
	m.mu.Unlock()
	for _, id := range purged {
		m.logger.Debug("purged ended conference", zap.String("conference_id", id))
	}
}

func (m *Manager) conferenceChanged(c models.Conference) {
	m.mu.RLock()
	j := m.journal
	m.mu.RUnlock()
	if j == nil {
		return
	}
	m.async("conference_changed", func(ctx context.Context) error { return j.ConferenceChanged(ctx, c) })
}

func (m *Manager) participantJoined(conferenceID string, p models.Participant) {
	m.mu.RLock()
	j := m.journal
	m.mu.RUnlock()
	if j == nil {
		return
	}
	m.async("participant_joined", func(ctx context.Context) error { return j.ParticipantJoined(ctx, conferenceID, p) })
}

func (m *Manager) participantLeft(conferenceID string, p models.Participant) {
	m.mu.RLock()
	j := m.journal
	m.mu.RUnlock()
	if j == nil {
		return
	}
	m.async("participant_left", func(ctx context.Context) error { return j.ParticipantLeft(ctx, conferenceID, p) })
}

func (m *Manager) chatAppended(msg models.ChatMessage) {
	m.mu.RLock()
	j := m.journal
	m.mu.RUnlock()
	if j == nil {
		return
	}
	m.async("chat_appended", func(ctx context.Context) error { return j.ChatAppended(ctx, msg) })
}

func (m *Manager) published(conferenceID string, frame []byte) {
	m.mu.RLock()
	p := m.publisher
	m.mu.RUnlock()
	if p == nil {
		return
	}
	m.async("publish", func(ctx context.Context) error { return p.PublishConferenceEvent(ctx, conferenceID, frame) })
}

func (m *Manager) ended(c models.Conference) {
	m.mu.RLock()
	lease, onEnd := m.lease, m.onEnd
	m.mu.RUnlock()
	if lease != nil {
		m.async("lease_release", func(ctx context.Context) error { return lease.Release(ctx, c.ID) })
	}
	if onEnd != nil {
		m.async("end_handler", func(ctx context.Context) error { return onEnd(ctx, c) })
	}
}

const roomCodeAlphabet = "abcdefghijkmnpqrstuvwxyz"

// newRoomCode returns a code shaped like "abc-defg-hjk".
func newRoomCode() (string, error) {
	var b [10]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	var sb strings.Builder
	for i, v := range b {
		if i == 3 || i == 7 {
			sb.WriteByte('-')
		}
		sb.WriteByte(roomCodeAlphabet[int(v)%len(roomCodeAlphabet)])
	}
	return sb.String(), nil
}
