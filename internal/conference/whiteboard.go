package conference

import (
	"github.com/google/uuid"

	"github.com/aura-webinar/conference/internal/models"
)

// whiteboard is the append-only action log of one conference, compacted on overflow.
type whiteboard struct {
	log   []models.WhiteboardAction
	limit int
}

// append adds a to the log. When the log outgrows its limit it is replaced by one add per
// visible element, keeping at most limit/2 of the newest elements. dropped reports whether
// any visible element was lost, in which case clients must reset from the compacted log.
func (w *whiteboard) append(a models.WhiteboardAction) (compacted, dropped bool) {
	w.log = append(w.log, a)
	if w.limit <= 0 || len(w.log) <= w.limit {
		return false, false
	}
	visible := models.ReplayWhiteboard(w.log)
	keep := w.limit / 2
	if keep < 1 {
		keep = 1
	}
	if len(visible) > keep {
		visible = visible[len(visible)-keep:]
		dropped = true
	}
	out := make([]models.WhiteboardAction, 0, len(visible))
	for _, el := range visible {
		out = append(out, models.WhiteboardAction{
			ID:            uuid.NewString(),
			ConferenceID:  a.ConferenceID,
			ParticipantID: a.ParticipantID,
			Action:        models.WhiteboardAdd,
			Element:       el,
			Seq:           a.Seq,
			CreatedAt:     a.CreatedAt,
		})
	}
	w.log = out
	return true, dropped
}

func (w *whiteboard) snapshot() []models.WhiteboardAction {
	return append([]models.WhiteboardAction(nil), w.log...)
}

func (w *whiteboard) reset() { w.log = nil }
