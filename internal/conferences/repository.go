package conferences

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-webinar/conference/internal/conference"
	"github.com/aura-webinar/conference/internal/models"
	"github.com/aura-webinar/conference/internal/sessionlog"
)

const conferenceColumns = `id, name, created_by, state, active, is_locked, max_participants, current_participants,
	host_video_priority, allow_participant_detach, has_screen_share, has_chat, has_video_enabled,
	has_passcode, is_recording, COALESCE(host_id, ''), COALESCE(transcript_key, ''), created_at, started_at, ended_at`

// Repository persists conferences and their chat. It is the journal of the conference
// manager and the fallback for conferences this instance no longer holds.
type Repository struct {
	pool     *pgxpool.Pool
	sessions *sessionlog.Repository
}

// NewRepository creates a conference repository.
func NewRepository(pool *pgxpool.Pool, sessions *sessionlog.Repository) *Repository {
	return &Repository{pool: pool, sessions: sessions}
}

// ConferenceChanged upserts the conference row.
func (r *Repository) ConferenceChanged(ctx context.Context, c models.Conference) error {
	var hostID *string
	if c.HostID != "" {
		hostID = &c.HostID
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO conferences (id, name, created_by, state, active, is_locked, max_participants, current_participants,
			host_video_priority, allow_participant_detach, has_screen_share, has_chat, has_video_enabled,
			has_passcode, is_recording, host_id, created_at, started_at, ended_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, state = EXCLUDED.state, active = EXCLUDED.active, is_locked = EXCLUDED.is_locked,
			max_participants = EXCLUDED.max_participants, current_participants = EXCLUDED.current_participants,
			host_video_priority = EXCLUDED.host_video_priority, allow_participant_detach = EXCLUDED.allow_participant_detach,
			is_recording = EXCLUDED.is_recording, host_id = EXCLUDED.host_id,
			started_at = EXCLUDED.started_at, ended_at = EXCLUDED.ended_at, updated_at = NOW()`,
		c.ID, c.Name, c.CreatedBy, string(c.State), c.Active, c.IsLocked, c.MaxParticipants, c.CurrentParticipants,
		c.HostVideoPriority, c.AllowParticipantDetach, c.HasScreenShare, c.HasChat, c.HasVideoEnabled,
		c.HasPasscode, c.IsRecording, hostID, c.CreatedAt, c.StartedAt, c.EndedAt)
	if err != nil {
		return fmt.Errorf("upsert conference %s: %w", c.ID, err)
	}
	return nil
}

// ParticipantJoined opens a session log row.
func (r *Repository) ParticipantJoined(ctx context.Context, conferenceID string, p models.Participant) error {
	return r.sessions.LogJoin(ctx, conferenceID, p)
}

// ParticipantLeft closes the session log row.
func (r *Repository) ParticipantLeft(ctx context.Context, conferenceID string, p models.Participant) error {
	return r.sessions.LogLeave(ctx, conferenceID, p.ID, time.Now().UTC())
}

// ChatAppended archives one chat message.
func (r *Repository) ChatAppended(ctx context.Context, m models.ChatMessage) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO chat_messages (id, conference_id, sender_id, sender_name, message, seq, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (id) DO NOTHING`,
		m.ID, m.ConferenceID, m.SenderID, m.SenderName, m.Message, int64(m.Seq), m.CreatedAt)
	if err != nil {
		return fmt.Errorf("archive chat %s: %w", m.ID, err)
	}
	return nil
}

// GetByID loads a conference record.
func (r *Repository) GetByID(ctx context.Context, id string) (models.Conference, error) {
	var c models.Conference
	var state string
	err := r.pool.QueryRow(ctx, `SELECT `+conferenceColumns+` FROM conferences WHERE id = $1`, id).Scan(
		&c.ID, &c.Name, &c.CreatedBy, &state, &c.Active, &c.IsLocked, &c.MaxParticipants, &c.CurrentParticipants,
		&c.HostVideoPriority, &c.AllowParticipantDetach, &c.HasScreenShare, &c.HasChat, &c.HasVideoEnabled,
		&c.HasPasscode, &c.IsRecording, &c.HostID, &c.TranscriptKey, &c.CreatedAt, &c.StartedAt, &c.EndedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Conference{}, conference.ErrConferenceNotFound
	}
	if err != nil {
		return models.Conference{}, fmt.Errorf("get conference %s: %w", id, err)
	}
	c.State = models.ConferenceState(state)
	return c, nil
}

// ListMessages returns up to limit archived messages with seq below before, newest first.
// before <= 0 starts from the newest message.
func (r *Repository) ListMessages(ctx context.Context, conferenceID string, before int64, limit int) ([]models.ChatMessage, error) {
	const q = `SELECT id, conference_id, sender_id, sender_name, message, seq, created_at
		FROM chat_messages WHERE conference_id = $1 AND ($2::BIGINT <= 0 OR seq < $2)
		ORDER BY seq DESC LIMIT $3`
	return r.queryMessages(ctx, q, conferenceID, before, limit)
}

// ListTranscript returns every archived message of a conference in order.
func (r *Repository) ListTranscript(ctx context.Context, conferenceID string) ([]models.ChatMessage, error) {
	const q = `SELECT id, conference_id, sender_id, sender_name, message, seq, created_at
		FROM chat_messages WHERE conference_id = $1 ORDER BY seq ASC`
	return r.queryMessages(ctx, q, conferenceID)
}

func (r *Repository) queryMessages(ctx context.Context, q string, args ...any) ([]models.ChatMessage, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.ChatMessage{}
	for rows.Next() {
		var m models.ChatMessage
		var seq int64
		if err := rows.Scan(&m.ID, &m.ConferenceID, &m.SenderID, &m.SenderName, &m.Message, &seq, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Seq = uint64(seq)
		list = append(list, m)
	}
	return list, rows.Err()
}

// SetTranscriptKey records where the archived transcript lives.
func (r *Repository) SetTranscriptKey(ctx context.Context, conferenceID, key string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE conferences SET transcript_key = $2, updated_at = NOW() WHERE id = $1`, conferenceID, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return conference.ErrConferenceNotFound
	}
	return nil
}
