package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/aura-webinar/conference/internal/models"
	"github.com/aura-webinar/conference/pkg/queue"
	"github.com/aura-webinar/conference/pkg/storage"
)

// TranscriptStore reads archived chat and records the transcript key.
type TranscriptStore interface {
	GetByID(ctx context.Context, id string) (models.Conference, error)
	ListTranscript(ctx context.Context, conferenceID string) ([]models.ChatMessage, error)
	SetTranscriptKey(ctx context.Context, conferenceID, key string) error
}

// Uploader stores transcript objects, implemented by *storage.S3.
type Uploader interface {
	Upload(ctx context.Context, bucket, key, contentType string, body io.Reader, contentLength int64) (string, error)
	TranscriptsBucket() string
}

// JobQueue is the job source, implemented by *queue.Queue.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, string, error)
	Retry(ctx context.Context, key string, job *queue.Job) error
}

// Transcript is the archived document.
type Transcript struct {
	ConferenceID string               `json:"conferenceId"`
	Name         string               `json:"name"`
	StartedAt    *time.Time           `json:"startedAt,omitempty"`
	EndedAt      *time.Time           `json:"endedAt,omitempty"`
	ArchivedAt   time.Time            `json:"archivedAt"`
	Messages     []models.ChatMessage `json:"messages"`
}

// TranscriptProcessor archives the chat of ended conferences to S3.
type TranscriptProcessor struct {
	store   TranscriptStore
	s3      Uploader
	queue   JobQueue
	backoff time.Duration
	logger  *zap.Logger
}

// NewTranscriptProcessor creates a transcript archive processor.
func NewTranscriptProcessor(store TranscriptStore, s3 Uploader, q JobQueue, logger *zap.Logger) *TranscriptProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptProcessor{store: store, s3: s3, queue: q, backoff: queue.RetryBackoff, logger: logger}
}

// Process executes one transcript archive job. Conferences that already have a
// transcript are skipped.
func (p *TranscriptProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeTranscriptArchive {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.TranscriptArchivePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	conf, err := p.store.GetByID(ctx, payload.ConferenceID)
	if err != nil {
		return fmt.Errorf("load conference %s: %w", payload.ConferenceID, err)
	}
	if conf.TranscriptKey != "" {
		p.logger.Info("transcript already archived", zap.String("conference_id", conf.ID))
		return nil
	}
	messages, err := p.store.ListTranscript(ctx, conf.ID)
	if err != nil {
		return fmt.Errorf("load chat: %w", err)
	}

	body, err := json.Marshal(Transcript{
		ConferenceID: conf.ID,
		Name:         conf.Name,
		StartedAt:    conf.StartedAt,
		EndedAt:      conf.EndedAt,
		ArchivedAt:   time.Now().UTC(),
		Messages:     messages,
	})
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	key := storage.TranscriptKey(conf.ID)
	if _, err := p.s3.Upload(ctx, p.s3.TranscriptsBucket(), key, "application/json", bytes.NewReader(body), int64(len(body))); err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}
	if err := p.store.SetTranscriptKey(ctx, conf.ID, key); err != nil {
		return fmt.Errorf("update db: %w", err)
	}

	p.logger.Info("transcript archived",
		zap.String("conference_id", conf.ID),
		zap.String("s3_key", key),
		zap.Int("messages", len(messages)),
	)
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *TranscriptProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("transcript worker stopping")
			return
		default:
		}

		job, key, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, key, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *TranscriptProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
