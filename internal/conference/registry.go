package conference

import "github.com/aura-webinar/conference/internal/models"

type member struct {
	p    models.Participant
	conn Conn
}

// registry maps participant ids to connections for one conference, kept in join order.
// It is owned by the room goroutine and is not safe for concurrent use.
type registry struct {
	order []*member
	byID  map[string]*member
}

func newRegistry() *registry {
	return &registry{byID: make(map[string]*member)}
}

// register admits p after the active, lock and capacity checks and keeps
// conf.CurrentParticipants equal to the registry size.
func (r *registry) register(conf *models.Conference, p models.Participant, conn Conn) error {
	if !conf.Active {
		return ErrConferenceNotFound
	}
	if _, ok := r.byID[p.ID]; ok {
		return ErrAlreadyJoined
	}
	if conf.IsLocked && !p.Privileged() {
		return ErrConferenceLocked
	}
	if conf.MaxParticipants != nil && *conf.MaxParticipants > 0 && len(r.order) >= *conf.MaxParticipants {
		return ErrConferenceFull
	}
	m := &member{p: p, conn: conn}
	r.order = append(r.order, m)
	r.byID[p.ID] = m
	conf.CurrentParticipants = len(r.order)
	return nil
}

// unregister is idempotent; ok is false when id was not registered.
func (r *registry) unregister(conf *models.Conference, id string) (*member, bool) {
	m, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	delete(r.byID, id)
	for i, o := range r.order {
		if o == m {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	conf.CurrentParticipants = len(r.order)
	return m, true
}

func (r *registry) get(id string) *member { return r.byID[id] }

func (r *registry) count() int { return len(r.order) }

// list returns a snapshot ordered by join time.
func (r *registry) list() []models.Participant {
	out := make([]models.Participant, 0, len(r.order))
	for _, m := range r.order {
		out = append(out, m.p)
	}
	return out
}
