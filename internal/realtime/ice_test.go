package realtime

import (
	"testing"

	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestICEServers(t *testing.T) {
	servers, err := ICEServers([]string{"stun:stun.example.com:3478", " turn:turn.example.com:3478?transport=udp ", ""}, "user", "secret")
	require.NoError(t, err)
	require.Len(t, servers, 2)
	assert.Equal(t, []string{"stun:stun.example.com:3478"}, servers[0].URLs)
	assert.Empty(t, servers[0].Username)
	assert.Equal(t, []string{"turn:turn.example.com:3478?transport=udp"}, servers[1].URLs)
	assert.Equal(t, "user", servers[1].Username)
	assert.Equal(t, webrtc.ICECredentialTypePassword, servers[1].CredentialType)
}

func TestICEServers_Rejected(t *testing.T) {
	_, err := ICEServers([]string{"http://stun.example.com"}, "", "")
	assert.Error(t, err)

	_, err = ICEServers([]string{"turns:turn.example.com:5349"}, "", "")
	assert.Error(t, err)

	servers, err := ICEServers(nil, "", "")
	require.NoError(t, err)
	assert.Empty(t, servers)
}
