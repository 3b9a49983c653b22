package files

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/conference/internal/conference"
	"github.com/aura-webinar/conference/internal/models"
	"github.com/aura-webinar/conference/pkg/response"
	"github.com/aura-webinar/conference/pkg/storage"
)

// Presigner issues signed object URLs, implemented by *storage.S3.
type Presigner interface {
	GeneratePresignedUploadURL(ctx context.Context, bucket, key, contentType string, expires time.Duration) (string, error)
	GeneratePresignedDownloadURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
	PresignExpire() time.Duration
	FilesBucket() string
	TranscriptsBucket() string
	PublicObjectURL(bucket, key string) string
}

// Rooms resolves live conferences, implemented by *conference.Manager.
type Rooms interface {
	Room(id string) (*conference.Room, error)
}

// UploadURLRequest is the body for POST /conferences/:id/files/upload-url.
type UploadURLRequest struct {
	ParticipantID string `json:"participantId" binding:"required"`
	FileName      string `json:"fileName" binding:"required"`
	Size          int64  `json:"size" binding:"required"`
	ContentType   string `json:"contentType"`
}

// UploadURLResponse tells the client where to PUT the file and what to share afterwards.
type UploadURLResponse struct {
	UploadURL string    `json:"uploadUrl"`
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Handler serves file share uploads and transcript downloads.
type Handler struct {
	s3     Presigner
	rooms  Rooms
	logger *zap.Logger
}

// NewHandler creates a files handler.
func NewHandler(s3 Presigner, rooms Rooms, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{s3: s3, rooms: rooms, logger: logger}
}

func (h *Handler) participantOf(ctx context.Context, conferenceID, participantID string) error {
	room, err := h.rooms.Room(conferenceID)
	if err != nil {
		return err
	}
	list, err := room.Participants(ctx)
	if err != nil {
		return err
	}
	for _, p := range list {
		if p.ID == participantID {
			return nil
		}
	}
	return conference.ErrParticipantNotFound
}

// UploadURL handles POST /conferences/:id/files/upload-url. Only live participants may upload.
func (h *Handler) UploadURL(c *gin.Context) {
	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := storage.ValidateShareFile(req.FileName, req.Size); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	id := c.Param("id")
	if err := h.participantOf(c.Request.Context(), id, req.ParticipantID); err != nil {
		response.Fail(c, conference.StatusOf(err), conference.CodeOf(err), err.Error())
		return
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := storage.ShareKey(id, uuid.NewString(), req.FileName)
	expires := h.s3.PresignExpire()
	uploadURL, err := h.s3.GeneratePresignedUploadURL(c.Request.Context(), h.s3.FilesBucket(), key, contentType, expires)
	if err != nil {
		h.logger.Error("presign upload failed", zap.String("conference_id", id), zap.Error(err))
		response.Internal(c, "failed to create upload url")
		return
	}
	response.OK(c, UploadURLResponse{
		UploadURL: uploadURL,
		Key:       key,
		URL:       h.s3.PublicObjectURL(h.s3.FilesBucket(), key),
		ExpiresAt: time.Now().Add(expires).UTC(),
	})
}

// Transcript handles GET /conferences/:id/transcript. It expects the conference record
// under "conference", set by the access check in front of it.
func (h *Handler) Transcript(c *gin.Context) {
	v, _ := c.Get("conference")
	conf, ok := v.(models.Conference)
	if !ok {
		response.Internal(c, "conference not resolved")
		return
	}
	if conf.TranscriptKey == "" {
		response.NotFound(c, "transcript not archived yet")
		return
	}
	url, err := h.s3.GeneratePresignedDownloadURL(c.Request.Context(), h.s3.TranscriptsBucket(), conf.TranscriptKey, h.s3.PresignExpire())
	if err != nil {
		h.logger.Error("presign download failed", zap.String("conference_id", conf.ID), zap.Error(err))
		response.Internal(c, "failed to create download url")
		return
	}
	response.OK(c, gin.H{"url": url, "key": conf.TranscriptKey})
}
