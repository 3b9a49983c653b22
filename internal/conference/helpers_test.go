package conference

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aura-webinar/conference/internal/models"
)

type frame struct {
	Type string          `json:"type"`
	Seq  uint64          `json:"seq"`
	From string          `json:"from"`
	Data json.RawMessage `json:"data"`
}

// fakeConn records queued frames. When refuse is set it behaves like a full send buffer.
type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
	refuse bool
}

func (c *fakeConn) TrySend(b []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.refuse {
		return false
	}
	c.frames = append(c.frames, append([]byte(nil), b...))
	return true
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) setRefuse(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refuse = v
}

func (c *fakeConn) events(t *testing.T) []frame {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]frame, 0, len(c.frames))
	for _, b := range c.frames {
		var f frame
		require.NoError(t, json.Unmarshal(b, &f))
		out = append(out, f)
	}
	return out
}

func (c *fakeConn) types(t *testing.T) []string {
	t.Helper()
	var out []string
	for _, f := range c.events(t) {
		out = append(out, f.Type)
	}
	return out
}

func (c *fakeConn) last(t *testing.T) frame {
	t.Helper()
	evs := c.events(t)
	require.NotEmpty(t, evs)
	return evs[len(evs)-1]
}

func newTestManager(t *testing.T, opts Options) *Manager {
	t.Helper()
	m := NewManager(opts, zap.NewNop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		m.Close(ctx)
	})
	return m
}

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func createConference(t *testing.T, m *Manager, req CreateRequest) models.Conference {
	t.Helper()
	if req.Name == "" {
		req.Name = "Standup"
	}
	conf, err := m.Create(context.Background(), req)
	require.NoError(t, err)
	return conf
}

func joinAs(t *testing.T, m *Manager, conferenceID string, req JoinRequest) (models.Participant, *Room, *fakeConn) {
	t.Helper()
	conn := &fakeConn{}
	if req.ParticipantID == "" {
		req.ParticipantID = req.Name
	}
	p, r, err := m.Join(context.Background(), conferenceID, req, conn)
	require.NoError(t, err)
	return p, r, conn
}

func decodeSync(t *testing.T, f frame) StateSync {
	t.Helper()
	require.Equal(t, EventStateSync, f.Type)
	var s StateSync
	require.NoError(t, json.Unmarshal(f.Data, &s))
	return s
}
