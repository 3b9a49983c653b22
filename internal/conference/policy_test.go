package conference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-webinar/conference/internal/models"
)

func TestParseHostPolicy(t *testing.T) {
	p, err := ParseHostPolicy("")
	require.NoError(t, err)
	assert.Equal(t, HostPolicyNone, p)

	p, err = ParseHostPolicy("next-joined")
	require.NoError(t, err)
	assert.Equal(t, HostPolicyNextJoined, p)

	_, err = ParseHostPolicy("random")
	assert.Error(t, err)
}

func TestSuccessor(t *testing.T) {
	conf := &models.Conference{Active: true}
	reg := newRegistry()
	assert.Nil(t, HostPolicyNextJoined.successor(reg))

	require.NoError(t, reg.register(conf, models.Participant{ID: "a"}, &fakeConn{}))
	require.NoError(t, reg.register(conf, models.Participant{ID: "b"}, &fakeConn{}))
	assert.Nil(t, HostPolicyNone.successor(reg))
	assert.Equal(t, "a", HostPolicyNextJoined.successor(reg).p.ID)

	reg.get("b").p.IsHost = true
	assert.Nil(t, HostPolicyNextJoined.successor(reg), "a host is still present")
}

func TestRegistry(t *testing.T) {
	conf := &models.Conference{Active: true, MaxParticipants: intPtr(2)}
	reg := newRegistry()

	require.NoError(t, reg.register(conf, models.Participant{ID: "a"}, &fakeConn{}))
	assert.ErrorIs(t, reg.register(conf, models.Participant{ID: "a"}, &fakeConn{}), ErrAlreadyJoined)
	require.NoError(t, reg.register(conf, models.Participant{ID: "b"}, &fakeConn{}))
	assert.ErrorIs(t, reg.register(conf, models.Participant{ID: "c"}, &fakeConn{}), ErrConferenceFull)
	assert.Equal(t, 2, conf.CurrentParticipants)

	_, ok := reg.unregister(conf, "a")
	assert.True(t, ok)
	_, ok = reg.unregister(conf, "a")
	assert.False(t, ok)
	assert.Equal(t, 1, conf.CurrentParticipants)
	assert.Equal(t, "b", reg.list()[0].ID)

	conf.IsLocked = true
	assert.ErrorIs(t, reg.register(conf, models.Participant{ID: "c"}, &fakeConn{}), ErrConferenceLocked)
	require.NoError(t, reg.register(conf, models.Participant{ID: "h", IsHost: true}, &fakeConn{}))

	conf.Active = false
	assert.ErrorIs(t, reg.register(conf, models.Participant{ID: "d", IsAdmin: true}, &fakeConn{}), ErrConferenceNotFound)
}
