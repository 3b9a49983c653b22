package sessionlog

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/aura-webinar/conference/pkg/response"
)

// Store is the read side used by the handler.
type Store interface {
	ListByConference(ctx context.Context, conferenceID string) ([]AttendeeRow, error)
	GetAggregates(ctx context.Context, conferenceID string) (*Aggregates, error)
}

// Handler handles GET /conferences/:id/attendees.
type Handler struct {
	store Store
}

// NewHandler creates a session log handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// GetAttendees lists who attended a conference and for how long. Access is checked by
// the route.
func (h *Handler) GetAttendees(c *gin.Context) {
	id := c.Param("id")
	list, err := h.store.ListByConference(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to list attendees")
		return
	}
	agg, err := h.store.GetAggregates(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to aggregate attendance")
		return
	}
	response.OK(c, gin.H{"attendees": list, "summary": agg})
}
