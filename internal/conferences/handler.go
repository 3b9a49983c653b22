package conferences

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aura-webinar/conference/internal/auth"
	"github.com/aura-webinar/conference/internal/conference"
	"github.com/aura-webinar/conference/internal/middleware"
	"github.com/aura-webinar/conference/internal/models"
	"github.com/aura-webinar/conference/pkg/response"
)

const (
	defaultMessagePage = 50
	maxMessagePage     = 200
)

// Service is the live conference registry, implemented by *conference.Manager.
type Service interface {
	Create(ctx context.Context, req conference.CreateRequest) (models.Conference, error)
	Get(ctx context.Context, id string) (models.Conference, error)
	List(ctx context.Context) ([]models.Conference, error)
	CheckJoin(ctx context.Context, id string, req conference.JoinRequest) (models.Conference, error)
	Room(id string) (*conference.Room, error)
	Terminate(ctx context.Context, id string, a conference.Actor) error
}

// Store is the durable side, implemented by *Repository.
type Store interface {
	GetByID(ctx context.Context, id string) (models.Conference, error)
	ListMessages(ctx context.Context, conferenceID string, before int64, limit int) ([]models.ChatMessage, error)
}

// CreateRequest is the body for POST /conferences.
type CreateRequest struct {
	Name                   string `json:"name" binding:"required"`
	MaxParticipants        *int   `json:"maxParticipants"`
	HostVideoPriority      bool   `json:"hostVideoPriority"`
	AllowParticipantDetach bool   `json:"allowParticipantDetach"`
	HasScreenShare         *bool  `json:"hasScreenShare"`
	HasChat                *bool  `json:"hasChat"`
	HasVideoEnabled        *bool  `json:"hasVideoEnabled"`
	Passcode               string `json:"passcode"`
}

// JoinRequest is the body for POST /conferences/:id/join.
type JoinRequest struct {
	Name       string `json:"name" binding:"required"`
	DeviceInfo string `json:"deviceInfo"`
	Passcode   string `json:"passcode"`
}

// LockRequest is the body for PATCH /conferences/:id/lock.
type LockRequest struct {
	IsLocked *bool `json:"isLocked" binding:"required"`
}

// Handler handles conference HTTP endpoints.
type Handler struct {
	svc    Service
	store  Store
	logger *zap.Logger
}

// NewHandler creates a conference handler. store may be nil when persistence is off.
func NewHandler(svc Service, store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, store: store, logger: logger}
}

func actor(c *gin.Context) conference.Actor {
	return conference.Actor{UserID: middleware.UserID(c), IsAdmin: middleware.IsAdmin(c)}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := conference.StatusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("conference request failed", zap.String("path", c.FullPath()), zap.Error(err))
		msg = "internal error"
	}
	response.Fail(c, status, conference.CodeOf(err), msg)
}

// lookup returns the live record, falling back to the stored one for conferences this
// instance has purged.
func (h *Handler) lookup(ctx context.Context, id string) (models.Conference, error) {
	conf, err := h.svc.Get(ctx, id)
	if errors.Is(err, conference.ErrConferenceNotFound) && h.store != nil {
		return h.store.GetByID(ctx, id)
	}
	return conf, err
}

// Create handles POST /conferences.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	features := models.Features{HasScreenShare: true, HasChat: true, HasVideoEnabled: true}
	if req.HasScreenShare != nil {
		features.HasScreenShare = *req.HasScreenShare
	}
	if req.HasChat != nil {
		features.HasChat = *req.HasChat
	}
	if req.HasVideoEnabled != nil {
		features.HasVideoEnabled = *req.HasVideoEnabled
	}
	var owner *string
	if uid := middleware.UserID(c); uid != "" {
		owner = &uid
	}
	conf, err := h.svc.Create(c.Request.Context(), conference.CreateRequest{
		OwnerID:         owner,
		Name:            req.Name,
		MaxParticipants: req.MaxParticipants,
		HostSettings: models.HostSettings{
			HostVideoPriority:      req.HostVideoPriority,
			AllowParticipantDetach: req.AllowParticipantDetach,
		},
		Features: &features,
		Passcode: req.Passcode,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, gin.H{"conference": conf})
}

// List handles GET /conferences (admin only): live conferences on this instance.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"conferences": list})
}

// Get handles GET /conferences/:id.
func (h *Handler) Get(c *gin.Context) {
	conf, err := h.lookup(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"conference": conf})
}

// Join handles POST /conferences/:id/join. It runs the admission checks only; the
// participant is registered when the signaling transport sends join.
func (h *Handler) Join(c *gin.Context) {
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	conf, err := h.svc.CheckJoin(c.Request.Context(), c.Param("id"), conference.JoinRequest{
		UserID:     middleware.UserID(c),
		Name:       req.Name,
		DeviceInfo: req.DeviceInfo,
		IsAdmin:    middleware.IsAdmin(c),
		Passcode:   req.Passcode,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"conference": conf})
}

// UpdateHostSettings handles PATCH /conferences/:id/host-settings.
func (h *Handler) UpdateHostSettings(c *gin.Context) {
	var patch conference.HostSettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	room, err := h.svc.Room(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	settings, err := room.SetHostSettings(c.Request.Context(), actor(c), patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"hostSettings": settings})
}

// UpdateLock handles PATCH /conferences/:id/lock.
func (h *Handler) UpdateLock(c *gin.Context) {
	var req LockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	room, err := h.svc.Room(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := room.SetLock(c.Request.Context(), actor(c), *req.IsLocked); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"isLocked": *req.IsLocked})
}

// Terminate handles POST /conferences/:id/terminate.
func (h *Handler) Terminate(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.Terminate(c.Request.Context(), id, actor(c)); err != nil {
		h.fail(c, err)
		return
	}
	conf, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"conference": conf})
}

// Participants handles GET /conferences/:id/participants. Mounted behind RequireManager.
func (h *Handler) Participants(c *gin.Context) {
	room, err := h.svc.Room(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	list, err := room.Participants(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"participants": list})
}

// Messages handles GET /conferences/:id/messages?before=<seq>&limit=<n>, newest first.
// Mounted behind RequireManager, which also resolves the conference.
func (h *Handler) Messages(c *gin.Context) {
	before, err := strconv.ParseInt(c.DefaultQuery("before", "0"), 10, 64)
	if err != nil || before < 0 {
		response.BadRequest(c, "invalid before")
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultMessagePage)))
	if err != nil || limit < 1 {
		response.BadRequest(c, "invalid limit")
		return
	}
	if limit > maxMessagePage {
		limit = maxMessagePage
	}
	id := c.Param("id")
	if h.store == nil {
		response.ServiceUnavailable(c, "chat archive unavailable")
		return
	}
	list, err := h.store.ListMessages(c.Request.Context(), id, before, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"messages": list})
}

// RequireManager allows the creator of the conference and admins through. It also
// stores the conference record under "conference" for the next handler.
func (h *Handler) RequireManager() gin.HandlerFunc {
	return func(c *gin.Context) {
		conf, err := h.lookup(c.Request.Context(), c.Param("id"))
		if err != nil {
			h.fail(c, err)
			c.Abort()
			return
		}
		if !middleware.IsAdmin(c) && !conf.IsCreator(middleware.UserID(c)) {
			h.fail(c, conference.ErrForbidden)
			c.Abort()
			return
		}
		c.Set("conference", conf)
		c.Next()
	}
}

// RegisterRoutes mounts the conference routes on g. optionalAuth validates bearer tokens
// when present, requireAuth rejects guests.
func (h *Handler) RegisterRoutes(g *gin.RouterGroup, optionalAuth, requireAuth gin.HandlerFunc) {
	g.POST("", optionalAuth, h.Create)
	g.GET("", requireAuth, middleware.RequireRole(auth.RoleAdmin), h.List)
	g.GET("/:id", h.Get)
	g.POST("/:id/join", optionalAuth, h.Join)
	g.PATCH("/:id/host-settings", requireAuth, h.UpdateHostSettings)
	g.PATCH("/:id/lock", requireAuth, h.UpdateLock)
	g.POST("/:id/terminate", requireAuth, h.Terminate)
	g.GET("/:id/participants", requireAuth, h.RequireManager(), h.Participants)
	g.GET("/:id/messages", requireAuth, h.RequireManager(), h.Messages)
}
