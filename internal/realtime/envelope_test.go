package realtime

import (
	"encoding/json"
	"testing"

	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-webinar/conference/internal/conference"
)

const testSDP = "v=0\r\no=- 0 0 IN IP4 127.0.0.1\r\ns=-\r\nt=0 0\r\n"

func envelope(t *testing.T, typ string, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"type": typ, "data": data})
	require.NoError(t, err)
	return raw
}

func TestDecode_Join(t *testing.T) {
	cmd, err := Decode(envelope(t, TypeJoin, map[string]any{"name": " Alice ", "role": "host", "audioEnabled": true}))
	require.NoError(t, err)
	join, ok := cmd.(JoinCommand)
	require.True(t, ok)
	assert.Equal(t, "Alice", join.Name)
	assert.Equal(t, "host", join.Role)
	assert.True(t, join.AudioEnabled)
	assert.Equal(t, CategorySession, cmd.Category())

	_, err = Decode(envelope(t, TypeJoin, map[string]any{"name": ""}))
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = Decode(envelope(t, TypeJoin, map[string]any{"name": "a", "role": "owner"}))
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = Decode(envelope(t, TypeJoin, map[string]any{"name": "a", "colour": "red"}))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecode_Offer(t *testing.T) {
	cmd, err := Decode(envelope(t, TypeOffer, map[string]any{
		"target": "bob",
		"sdp":    map[string]string{"type": "offer", "sdp": testSDP},
	}))
	require.NoError(t, err)
	sig := cmd.(SignalCommand)
	assert.Equal(t, TypeOffer, sig.Type())
	assert.Equal(t, "bob", sig.Target)
	require.NotNil(t, sig.SDP)
	assert.Equal(t, webrtc.SDPTypeOffer, sig.SDP.Type)
	assert.Equal(t, CategorySignaling, sig.Category())
}

func TestDecode_SignalRejected(t *testing.T) {
	cases := map[string][]byte{
		"type mismatch": envelope(t, TypeAnswer, map[string]any{"target": "bob", "sdp": map[string]string{"type": "offer", "sdp": testSDP}}),
		"bad sdp":       envelope(t, TypeOffer, map[string]any{"target": "bob", "sdp": map[string]string{"type": "offer", "sdp": "garbage"}}),
		"no sdp":        envelope(t, TypeOffer, map[string]any{"target": "bob"}),
		"no target":     envelope(t, TypeOffer, map[string]any{"sdp": map[string]string{"type": "offer", "sdp": testSDP}}),
		"no candidate":  envelope(t, TypeICECandidate, map[string]any{"target": "bob"}),
	}
	for name, raw := range cases {
		_, err := Decode(raw)
		assert.ErrorIs(t, err, ErrMalformed, name)
	}
}

func TestDecode_ICECandidate(t *testing.T) {
	cmd, err := Decode(envelope(t, TypeICECandidate, map[string]any{
		"target":    "bob",
		"candidate": map[string]any{"candidate": "candidate:1 1 udp 2122260223 10.0.0.1 54321 typ host", "sdpMid": "0", "sdpMLineIndex": 0},
	}))
	require.NoError(t, err)
	sig := cmd.(SignalCommand)
	require.NotNil(t, sig.Candidate)
	require.NotNil(t, sig.Candidate.SDPMid)
	assert.Equal(t, "0", *sig.Candidate.SDPMid)
}

func TestDecode_RequiredBools(t *testing.T) {
	for _, typ := range []string{TypeRaiseHand, TypeToggleAudio, TypeSpeaking, TypeLock, TypeToggleRecording} {
		_, err := Decode(envelope(t, typ, map[string]any{}))
		assert.ErrorIs(t, err, ErrMalformed, typ)
	}

	cmd, err := Decode(envelope(t, TypeToggleScreenShare, map[string]any{"enabled": false}))
	require.NoError(t, err)
	media := cmd.(MediaCommand)
	assert.Equal(t, conference.MediaScreen, media.Media)
	assert.False(t, media.Enabled)
	assert.Equal(t, TypeToggleScreenShare, media.Type())
}

func TestDecode_RoomState(t *testing.T) {
	cmd, err := Decode(envelope(t, TypeWhiteboard, map[string]any{"action": "clear", "element": nil}))
	require.NoError(t, err)
	wb := cmd.(WhiteboardCommand)
	assert.Equal(t, "clear", wb.Action)
	assert.Nil(t, wb.Element)

	cmd, err = Decode(envelope(t, TypeVotePoll, map[string]any{"pollId": "p1", "optionIndex": 0}))
	require.NoError(t, err)
	assert.Equal(t, VotePollCommand{PollID: "p1", OptionIndex: 0}, cmd)

	_, err = Decode(envelope(t, TypeVotePoll, map[string]any{"pollId": "p1"}))
	assert.ErrorIs(t, err, ErrMalformed)

	cmd, err = Decode(envelope(t, TypeHostSetting, map[string]any{"hostVideoPriority": true}))
	require.NoError(t, err)
	hs := cmd.(HostSettingCommand)
	require.NotNil(t, hs.Patch.HostVideoPriority)
	assert.Nil(t, hs.Patch.AllowParticipantDetach)
	assert.Equal(t, CategoryControl, hs.Category())

	cmd, err = Decode(envelope(t, TypeMuteParticipant, map[string]any{"target": "*"}))
	require.NoError(t, err)
	assert.Equal(t, MuteCommand{Target: "*"}, cmd)
}

func TestDecode_NoPayload(t *testing.T) {
	cmd, err := Decode([]byte(`{"type":"ping"}`))
	require.NoError(t, err)
	assert.Equal(t, PingCommand{}, cmd)

	cmd, err = Decode([]byte(`{"type":"terminate","data":null}`))
	require.NoError(t, err)
	assert.Equal(t, TerminateCommand{}, cmd)
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Decode([]byte(`{"type":"teleport"}`))
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = Decode([]byte(`{"type":"chat","data":{"message":1}}`))
	assert.ErrorIs(t, err, ErrMalformed)
}
