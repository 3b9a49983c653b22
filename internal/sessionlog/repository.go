package sessionlog

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-webinar/conference/internal/models"
)

// AttendeeRow is one row for GET /conferences/:id/attendees.
type AttendeeRow struct {
	ParticipantID   string     `json:"participantId"`
	UserID          *string    `json:"userId,omitempty"`
	Name            string     `json:"name"`
	IsHost          bool       `json:"isHost"`
	JoinedAt        time.Time  `json:"joinedAt"`
	LeftAt          *time.Time `json:"leftAt,omitempty"`
	DurationSeconds int64      `json:"durationSeconds"`
}

// Repository handles participant_sessions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a session log repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LogJoin opens a session row for a participant.
func (r *Repository) LogJoin(ctx context.Context, conferenceID string, p models.Participant) error {
	var userID *string
	if p.UserID != "" {
		userID = &p.UserID
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO participant_sessions (conference_id, participant_id, user_id, name, is_host, joined_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (conference_id, participant_id) WHERE left_at IS NULL DO NOTHING`,
		conferenceID, p.ID, userID, p.Name, p.IsHost, p.JoinedAt)
	return err
}

// LogLeave closes the open session of a participant.
func (r *Repository) LogLeave(ctx context.Context, conferenceID, participantID string, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE participant_sessions SET left_at = $3,
		        duration_seconds = GREATEST(0, EXTRACT(EPOCH FROM ($3 - joined_at))::BIGINT)
		 WHERE conference_id = $1 AND participant_id = $2 AND left_at IS NULL`,
		conferenceID, participantID, at)
	return err
}

// Aggregates holds the summed attendance of a conference.
type Aggregates struct {
	TotalSeconds         int64 `json:"totalSeconds"`
	DistinctParticipants int   `json:"distinctParticipants"`
}

// GetAggregates returns total attended time and distinct participants for closed sessions.
func (r *Repository) GetAggregates(ctx context.Context, conferenceID string) (*Aggregates, error) {
	const q = `SELECT COALESCE(SUM(duration_seconds), 0), COUNT(DISTINCT participant_id)
	           FROM participant_sessions WHERE conference_id = $1 AND left_at IS NOT NULL`
	var agg Aggregates
	if err := r.pool.QueryRow(ctx, q, conferenceID).Scan(&agg.TotalSeconds, &agg.DistinctParticipants); err != nil {
		return nil, err
	}
	return &agg, nil
}

// ListByConference returns the sessions of a conference, newest first.
func (r *Repository) ListByConference(ctx context.Context, conferenceID string) ([]AttendeeRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT participant_id, user_id, name, is_host, joined_at, left_at, duration_seconds
		 FROM participant_sessions WHERE conference_id = $1 ORDER BY joined_at DESC`,
		conferenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []AttendeeRow{}
	for rows.Next() {
		var row AttendeeRow
		if err := rows.Scan(&row.ParticipantID, &row.UserID, &row.Name, &row.IsHost, &row.JoinedAt, &row.LeftAt, &row.DurationSeconds); err != nil {
			return nil, err
		}
		list = append(list, row)
	}
	return list, rows.Err()
}
