package conference

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-webinar/conference/internal/models"
)

// standup creates a conference owned by u-alice and joins alice (host) and bob.
func standup(t *testing.T, opts Options) (*Manager, *Room, *fakeConn, *fakeConn) {
	t.Helper()
	m := newTestManager(t, opts)
	conf := createConference(t, m, CreateRequest{OwnerID: strPtr("u-alice")})
	_, r, alice := joinAs(t, m, conf.ID, JoinRequest{Name: "alice", UserID: "u-alice", AudioEnabled: true})
	_, _, bob := joinAs(t, m, conf.ID, JoinRequest{Name: "bob", AudioEnabled: true})
	return m, r, alice, bob
}

func TestJoin_StateSyncBeforeBroadcast(t *testing.T) {
	_, r, alice, bob := standup(t, Options{})
	ctx := context.Background()

	bobEvents := bob.events(t)
	require.Len(t, bobEvents, 1)
	sync := decodeSync(t, bobEvents[0])
	assert.Equal(t, "bob", sync.Self.ID)
	require.Len(t, sync.Participants, 2)
	assert.Equal(t, "alice", sync.Participants[0].ID)
	assert.True(t, sync.Participants[0].IsHost)
	assert.Equal(t, "bob", sync.Participants[1].ID)
	assert.False(t, sync.Participants[1].IsHost)
	assert.Equal(t, uint64(1), sync.Seq)

	aliceEvents := alice.events(t)
	require.Len(t, aliceEvents, 2)
	assert.Equal(t, EventStateSync, aliceEvents[0].Type)
	assert.Equal(t, EventParticipantJoined, aliceEvents[1].Type)
	assert.Equal(t, uint64(2), aliceEvents[1].Seq)
	assert.Equal(t, "bob", aliceEvents[1].From)

	conf, err := r.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ConferenceActive, conf.State)
	assert.NotNil(t, conf.StartedAt)
	assert.Equal(t, "alice", conf.HostID)
	assert.Equal(t, 2, conf.CurrentParticipants)
}

func TestJoin_DuplicateParticipant(t *testing.T) {
	m, r, _, _ := standup(t, Options{})
	_, _, err := m.Join(context.Background(), r.ID(), JoinRequest{ParticipantID: "bob", Name: "bob"}, &fakeConn{})
	assert.ErrorIs(t, err, ErrAlreadyJoined)
}

func TestJoin_NameRequired(t *testing.T) {
	m := newTestManager(t, Options{})
	conf := createConference(t, m, CreateRequest{})
	_, _, err := m.Join(context.Background(), conf.ID, JoinRequest{Name: "  "}, &fakeConn{})
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestJoin_Locked(t *testing.T) {
	m, r, _, bob := standup(t, Options{})
	ctx := context.Background()

	require.NoError(t, r.SetLock(ctx, Actor{ParticipantID: "alice"}, true))
	assert.Equal(t, EventLock, bob.last(t).Type)

	_, _, err := m.Join(ctx, r.ID(), JoinRequest{ParticipantID: "carol", Name: "carol"}, &fakeConn{})
	assert.ErrorIs(t, err, ErrConferenceLocked)
	assert.Equal(t, 423, StatusOf(err))

	_, err = m.CheckJoin(ctx, r.ID(), JoinRequest{Name: "carol"})
	assert.ErrorIs(t, err, ErrConferenceLocked)

	p, _, err := m.Join(ctx, r.ID(), JoinRequest{ParticipantID: "root", Name: "root", IsAdmin: true}, &fakeConn{})
	require.NoError(t, err)
	assert.True(t, p.IsAdmin)
}

func TestJoin_Full(t *testing.T) {
	m := newTestManager(t, Options{})
	conf := createConference(t, m, CreateRequest{MaxParticipants: intPtr(1)})
	joinAs(t, m, conf.ID, JoinRequest{Name: "alice"})

	_, _, err := m.Join(context.Background(), conf.ID, JoinRequest{ParticipantID: "bob", Name: "bob"}, &fakeConn{})
	assert.ErrorIs(t, err, ErrConferenceFull)
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestJoin_Passcode(t *testing.T) {
	m := newTestManager(t, Options{})
	conf := createConference(t, m, CreateRequest{OwnerID: strPtr("u-alice"), Passcode: "1234"})
	assert.True(t, conf.HasPasscode)
	ctx := context.Background()

	_, _, err := m.Join(ctx, conf.ID, JoinRequest{ParticipantID: "bob", Name: "bob", Passcode: "0000"}, &fakeConn{})
	assert.ErrorIs(t, err, ErrInvalidPasscode)

	_, err = m.CheckJoin(ctx, conf.ID, JoinRequest{Name: "bob"})
	assert.ErrorIs(t, err, ErrInvalidPasscode)

	_, err = m.CheckJoin(ctx, conf.ID, JoinRequest{Name: "alice", UserID: "u-alice"})
	assert.NoError(t, err)

	joinAs(t, m, conf.ID, JoinRequest{Name: "alice", UserID: "u-alice"})
	joinAs(t, m, conf.ID, JoinRequest{Name: "bob", Passcode: "1234"})
}

func TestJoin_GuestConferenceHostClaim(t *testing.T) {
	m := newTestManager(t, Options{})
	conf := createConference(t, m, CreateRequest{})

	first, _, _ := joinAs(t, m, conf.ID, JoinRequest{Name: "first", RequestedRole: "host"})
	assert.True(t, first.IsHost)

	second, _, _ := joinAs(t, m, conf.ID, JoinRequest{Name: "second", RequestedRole: "host"})
	assert.False(t, second.IsHost)
}

func TestJoin_GuestHostClaimNeedsPasscode(t *testing.T) {
	m := newTestManager(t, Options{})
	conf := createConference(t, m, CreateRequest{Passcode: "1234"})
	ctx := context.Background()

	_, _, err := m.Join(ctx, conf.ID, JoinRequest{ParticipantID: "mallory", Name: "mallory", RequestedRole: "host", Passcode: "wrong"}, &fakeConn{})
	assert.ErrorIs(t, err, ErrInvalidPasscode)

	got, err := m.Get(ctx, conf.ID)
	require.NoError(t, err)
	assert.Zero(t, got.CurrentParticipants)
	assert.Empty(t, got.HostID)

	first, _, _ := joinAs(t, m, conf.ID, JoinRequest{Name: "first", RequestedRole: "host", Passcode: "1234"})
	assert.True(t, first.IsHost)
}

func TestJoin_RequestedHostIgnoredWhenOwned(t *testing.T) {
	m := newTestManager(t, Options{})
	conf := createConference(t, m, CreateRequest{OwnerID: strPtr("u-alice")})

	p, _, _ := joinAs(t, m, conf.ID, JoinRequest{Name: "mallory", RequestedRole: "host"})
	assert.False(t, p.IsHost)
}

func TestJoin_VideoFeatureDisabled(t *testing.T) {
	m := newTestManager(t, Options{})
	conf := createConference(t, m, CreateRequest{Features: &models.Features{HasChat: true}})

	p, r, _ := joinAs(t, m, conf.ID, JoinRequest{Name: "alice", VideoEnabled: true})
	assert.False(t, p.VideoEnabled)

	ctx := context.Background()
	assert.ErrorIs(t, r.SetMedia(ctx, "alice", MediaVideo, true), ErrFeatureDisabled)
	assert.ErrorIs(t, r.SetMedia(ctx, "alice", MediaScreen, true), ErrFeatureDisabled)
	assert.NoError(t, r.SetMedia(ctx, "alice", MediaVideo, false))
}

func TestSeq_MonotonicAcrossBroadcasts(t *testing.T) {
	_, r, alice, _ := standup(t, Options{})
	ctx := context.Background()

	_, err := r.SendChat(ctx, "bob", "hello")
	require.NoError(t, err)
	require.NoError(t, r.RaiseHand(ctx, "bob", true))
	_, err = r.ApplyWhiteboard(ctx, "alice", models.WhiteboardAdd, json.RawMessage(`{"id":1}`))
	require.NoError(t, err)
	require.NoError(t, r.SetLock(ctx, Actor{ParticipantID: "alice"}, true))

	var last uint64
	for _, f := range alice.events(t) {
		if f.Type == EventStateSync {
			continue
		}
		assert.Greater(t, f.Seq, last, f.Type)
		last = f.Seq
	}
	assert.Equal(t, uint64(6), last)
}

func TestSendChat_ReachesEveryoneIncludingSender(t *testing.T) {
	_, r, alice, bob := standup(t, Options{})

	msg, err := r.SendChat(context.Background(), "alice", "  hi all ")
	require.NoError(t, err)
	assert.Equal(t, "hi all", msg.Message)
	assert.Equal(t, "alice", msg.SenderName)

	for _, c := range []*fakeConn{alice, bob} {
		f := c.last(t)
		assert.Equal(t, EventChat, f.Type)
		assert.Equal(t, msg.Seq, f.Seq)
		var got models.ChatMessage
		require.NoError(t, json.Unmarshal(f.Data, &got))
		assert.Equal(t, msg.ID, got.ID)
	}
}

func TestSendChat_Invalid(t *testing.T) {
	_, r, _, _ := standup(t, Options{})
	ctx := context.Background()

	_, err := r.SendChat(ctx, "alice", "   ")
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = r.SendChat(ctx, "ghost", "hi")
	assert.ErrorIs(t, err, ErrParticipantNotFound)
}

func TestSendChat_FeatureDisabled(t *testing.T) {
	m := newTestManager(t, Options{})
	conf := createConference(t, m, CreateRequest{Features: &models.Features{HasVideoEnabled: true}})
	_, r, _ := joinAs(t, m, conf.ID, JoinRequest{Name: "alice"})

	_, err := r.SendChat(context.Background(), "alice", "hi")
	assert.ErrorIs(t, err, ErrFeatureDisabled)
}

func TestChatHistory_TruncatedForLateJoiner(t *testing.T) {
	m := newTestManager(t, Options{ChatHistoryLimit: 2})
	conf := createConference(t, m, CreateRequest{})
	_, r, _ := joinAs(t, m, conf.ID, JoinRequest{Name: "alice"})
	ctx := context.Background()
	for _, text := range []string{"one", "two", "three"} {
		_, err := r.SendChat(ctx, "alice", text)
		require.NoError(t, err)
	}

	_, _, late := joinAs(t, m, conf.ID, JoinRequest{Name: "late"})
	sync := decodeSync(t, late.events(t)[0])
	require.Len(t, sync.Chat, 2)
	assert.Equal(t, "two", sync.Chat[0].Message)
	assert.Equal(t, "three", sync.Chat[1].Message)
	assert.True(t, sync.ChatTruncated)

	hist, err := r.Chat(ctx)
	require.NoError(t, err)
	assert.Len(t, hist, 2)
}

func TestSetMedia_SkipsOriginator(t *testing.T) {
	_, r, alice, bob := standup(t, Options{})
	before := len(bob.events(t))

	require.NoError(t, r.SetMedia(context.Background(), "bob", MediaAudio, false))

	assert.Len(t, bob.events(t), before)
	f := alice.last(t)
	assert.Equal(t, EventToggleAudio, f.Type)
	assert.Equal(t, "bob", f.From)

	ps, err := r.Participants(context.Background())
	require.NoError(t, err)
	assert.False(t, ps[1].AudioEnabled)
}

func TestSetMedia_UnknownMedia(t *testing.T) {
	_, r, _, _ := standup(t, Options{})
	assert.ErrorIs(t, r.SetMedia(context.Background(), "bob", Media("smell"), true), ErrInvalidAction)
}

func TestSetSpeaking_NoopWhenUnchanged(t *testing.T) {
	_, r, alice, _ := standup(t, Options{})
	ctx := context.Background()

	require.NoError(t, r.SetSpeaking(ctx, "bob", true))
	n := len(alice.events(t))
	require.NoError(t, r.SetSpeaking(ctx, "bob", true))
	assert.Len(t, alice.events(t), n)
	assert.Equal(t, EventSpeaking, alice.last(t).Type)
}

func TestRelay_PointToPoint(t *testing.T) {
	m, r, alice, bob := standup(t, Options{})
	_, _, carol := joinAs(t, m, r.ID(), JoinRequest{Name: "carol"})
	ctx := context.Background()
	carolBefore := len(carol.events(t))
	aliceBefore := len(alice.events(t))

	require.NoError(t, r.Relay(ctx, "alice", "bob", EventOffer, map[string]string{"sdp": "v=0"}))

	f := bob.last(t)
	assert.Equal(t, EventOffer, f.Type)
	assert.Equal(t, "alice", f.From)
	assert.Zero(t, f.Seq)
	assert.Len(t, carol.events(t), carolBefore)
	assert.Len(t, alice.events(t), aliceBefore)
}

func TestRelay_Rejected(t *testing.T) {
	_, r, _, _ := standup(t, Options{})
	ctx := context.Background()

	assert.ErrorIs(t, r.Relay(ctx, "alice", "ghost", EventAnswer, nil), ErrParticipantNotFound)
	assert.ErrorIs(t, r.Relay(ctx, "alice", "alice", EventAnswer, nil), ErrInvalidAction)
	assert.ErrorIs(t, r.Relay(ctx, "alice", "bob", EventChat, nil), ErrInvalidAction)
	assert.ErrorIs(t, r.Relay(ctx, "alice", "bob", EventKicked, nil), ErrInvalidAction)
}

func TestHostControls_Forbidden(t *testing.T) {
	_, r, alice, bob := standup(t, Options{})
	ctx := context.Background()
	bobActor := Actor{ParticipantID: "bob"}
	aliceBefore, bobBefore := len(alice.events(t)), len(bob.events(t))

	assert.ErrorIs(t, r.SetLock(ctx, bobActor, true), ErrForbidden)
	assert.ErrorIs(t, r.SetRecording(ctx, bobActor, true), ErrForbidden)
	assert.ErrorIs(t, r.MuteParticipant(ctx, bobActor, "alice"), ErrForbidden)
	assert.ErrorIs(t, r.Kick(ctx, bobActor, "alice"), ErrForbidden)
	assert.ErrorIs(t, r.Terminate(ctx, bobActor), ErrForbidden)
	_, err := r.SetHostSettings(ctx, bobActor, HostSettingsPatch{HostVideoPriority: boolPtr(true)})
	assert.ErrorIs(t, err, ErrForbidden)

	assert.Len(t, alice.events(t), aliceBefore)
	assert.Len(t, bob.events(t), bobBefore)

	conf, err := r.Snapshot(ctx)
	require.NoError(t, err)
	assert.False(t, conf.IsLocked)
}

func TestHostControls_CreatorAndAdminOverHTTP(t *testing.T) {
	_, r, _, _ := standup(t, Options{})
	ctx := context.Background()

	settings, err := r.SetHostSettings(ctx, Actor{UserID: "u-alice"}, HostSettingsPatch{AllowParticipantDetach: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, settings.AllowParticipantDetach)
	assert.False(t, settings.HostVideoPriority)

	require.NoError(t, r.SetLock(ctx, Actor{UserID: "u-root", IsAdmin: true}, true))
	assert.ErrorIs(t, r.SetLock(ctx, Actor{UserID: "u-bob"}, false), ErrForbidden)

	_, err = r.SetHostSettings(ctx, Actor{UserID: "u-alice"}, HostSettingsPatch{})
	assert.ErrorIs(t, err, ErrInvalidAction)

	assert.ErrorIs(t, r.SetLock(ctx, Actor{ParticipantID: "ghost"}, true), ErrParticipantNotFound)
}

func TestSetRecording(t *testing.T) {
	_, r, alice, bob := standup(t, Options{})
	ctx := context.Background()
	host := Actor{ParticipantID: "alice"}

	require.NoError(t, r.SetRecording(ctx, host, true))
	assert.Equal(t, EventRecording, bob.last(t).Type)
	n := len(alice.events(t))
	require.NoError(t, r.SetRecording(ctx, host, true))
	assert.Len(t, alice.events(t), n)

	conf, err := r.Snapshot(ctx)
	require.NoError(t, err)
	assert.True(t, conf.IsRecording)
	assert.Equal(t, "alice", conf.RecordingBy)

	ps, err := r.Participants(ctx)
	require.NoError(t, err)
	assert.True(t, ps[0].IsRecording)

	require.NoError(t, r.SetRecording(ctx, host, false))
	ps, err = r.Participants(ctx)
	require.NoError(t, err)
	assert.False(t, ps[0].IsRecording)
}

func TestSetRecording_StopsWhenRecorderLeaves(t *testing.T) {
	_, r, _, bob := standup(t, Options{})
	ctx := context.Background()

	require.NoError(t, r.SetRecording(ctx, Actor{ParticipantID: "alice"}, true))
	require.NoError(t, r.Leave(ctx, "alice"))

	types := bob.types(t)
	require.GreaterOrEqual(t, len(types), 2)
	assert.Equal(t, []string{EventParticipantLeft, EventRecording}, types[len(types)-2:])
	last := bob.last(t)
	assert.Equal(t, "alice", last.From)
	assert.JSONEq(t, `{"isRecording":false,"recordingBy":""}`, string(last.Data))

	conf, err := r.Snapshot(ctx)
	require.NoError(t, err)
	assert.False(t, conf.IsRecording)
	assert.Empty(t, conf.RecordingBy)
}

func TestMuteParticipant_All(t *testing.T) {
	m, r, _, _ := standup(t, Options{})
	joinAs(t, m, r.ID(), JoinRequest{Name: "carol", AudioEnabled: true})
	ctx := context.Background()

	require.NoError(t, r.MuteParticipant(ctx, Actor{ParticipantID: "alice"}, "*"))

	ps, err := r.Participants(ctx)
	require.NoError(t, err)
	require.Len(t, ps, 3)
	assert.True(t, ps[0].AudioEnabled)
	assert.False(t, ps[1].AudioEnabled)
	assert.False(t, ps[2].AudioEnabled)

	assert.ErrorIs(t, r.MuteParticipant(ctx, Actor{ParticipantID: "alice"}, "ghost"), ErrParticipantNotFound)
}

func TestKick(t *testing.T) {
	_, r, alice, bob := standup(t, Options{})
	ctx := context.Background()

	require.NoError(t, r.Kick(ctx, Actor{ParticipantID: "alice"}, "bob"))

	assert.Equal(t, EventKicked, bob.last(t).Type)
	assert.True(t, bob.isClosed())

	f := alice.last(t)
	assert.Equal(t, EventParticipantLeft, f.Type)
	var ev participantEvent
	require.NoError(t, json.Unmarshal(f.Data, &ev))
	assert.Equal(t, "bob", ev.Participant.ID)
	assert.Equal(t, "kicked", ev.Reason)
	assert.Equal(t, 1, ev.Count)

	assert.ErrorIs(t, r.Kick(ctx, Actor{ParticipantID: "alice"}, "bob"), ErrParticipantNotFound)
	assert.ErrorIs(t, r.Kick(ctx, Actor{ParticipantID: "alice"}, "alice"), ErrInvalidAction)
}

func TestKick_AdminOnlyByAdmin(t *testing.T) {
	m, r, _, _ := standup(t, Options{})
	joinAs(t, m, r.ID(), JoinRequest{Name: "root", IsAdmin: true})
	ctx := context.Background()

	assert.ErrorIs(t, r.Kick(ctx, Actor{ParticipantID: "alice"}, "root"), ErrForbidden)
	assert.NoError(t, r.Kick(ctx, Actor{UserID: "u-other", IsAdmin: true}, "root"))
}

func TestLeave_Idempotent(t *testing.T) {
	_, r, alice, _ := standup(t, Options{})
	ctx := context.Background()

	require.NoError(t, r.Leave(ctx, "bob"))
	n := len(alice.events(t))
	require.NoError(t, r.Leave(ctx, "bob"))
	assert.Len(t, alice.events(t), n)

	f := alice.last(t)
	assert.Equal(t, EventParticipantLeft, f.Type)
	var ev participantEvent
	require.NoError(t, json.Unmarshal(f.Data, &ev))
	assert.Equal(t, "left", ev.Reason)
}

func TestHostPolicy_NextJoined(t *testing.T) {
	m, r, _, bob := standup(t, Options{HostPolicy: HostPolicyNextJoined})
	joinAs(t, m, r.ID(), JoinRequest{Name: "carol"})
	ctx := context.Background()

	require.NoError(t, r.Leave(ctx, "alice"))

	evs := bob.events(t)
	require.GreaterOrEqual(t, len(evs), 2)
	left, changed := evs[len(evs)-2], evs[len(evs)-1]
	assert.Equal(t, EventParticipantLeft, left.Type)
	assert.Equal(t, EventHostChanged, changed.Type)
	assert.Greater(t, changed.Seq, left.Seq)
	var data map[string]string
	require.NoError(t, json.Unmarshal(changed.Data, &data))
	assert.Equal(t, "bob", data["participantId"])
	assert.Equal(t, "alice", data["previousId"])

	conf, err := r.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bob", conf.HostID)

	require.NoError(t, r.SetLock(ctx, Actor{ParticipantID: "bob"}, true))
}

func TestHostPolicy_None(t *testing.T) {
	_, r, _, bob := standup(t, Options{})
	ctx := context.Background()

	require.NoError(t, r.Leave(ctx, "alice"))
	assert.Equal(t, EventParticipantLeft, bob.last(t).Type)

	conf, err := r.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, conf.HostID)
	assert.ErrorIs(t, r.SetLock(ctx, Actor{ParticipantID: "bob"}, true), ErrForbidden)
}

func TestSlowConsumer_Disconnected(t *testing.T) {
	_, r, alice, bob := standup(t, Options{})
	bob.setRefuse(true)

	_, err := r.SendChat(context.Background(), "alice", "anyone there?")
	require.NoError(t, err)

	assert.True(t, bob.isClosed())
	assert.False(t, alice.isClosed())
	assert.Equal(t, EventChat, alice.last(t).Type)
}

func TestPolls(t *testing.T) {
	m, r, _, bob := standup(t, Options{})
	joinAs(t, m, r.ID(), JoinRequest{Name: "carol"})
	ctx := context.Background()

	_, err := r.CreatePoll(ctx, "bob", "Lunch?", []string{"pizza"})
	assert.ErrorIs(t, err, ErrInvalidAction)

	poll, err := r.CreatePoll(ctx, "bob", "Lunch?", []string{"pizza", " tacos "})
	require.NoError(t, err)
	assert.Equal(t, []string{"pizza", "tacos"}, poll.Options)
	assert.True(t, poll.IsActive)

	require.NoError(t, r.VotePoll(ctx, "carol", poll.ID, 0))
	require.NoError(t, r.VotePoll(ctx, "carol", poll.ID, 1))
	assert.ErrorIs(t, r.VotePoll(ctx, "carol", poll.ID, 2), ErrInvalidAction)
	assert.ErrorIs(t, r.VotePoll(ctx, "carol", "nope", 0), ErrPollNotFound)

	f := bob.last(t)
	assert.Equal(t, EventPollUpdated, f.Type)
	var view PollView
	require.NoError(t, json.Unmarshal(f.Data, &view))
	assert.Equal(t, []int{0, 1}, view.Tally)

	assert.ErrorIs(t, r.EndPoll(ctx, "carol", poll.ID), ErrForbidden)
	require.NoError(t, r.EndPoll(ctx, "bob", poll.ID))
	assert.Equal(t, EventPollEnded, bob.last(t).Type)
	assert.ErrorIs(t, r.EndPoll(ctx, "alice", poll.ID), ErrPollClosed)
	assert.ErrorIs(t, r.VotePoll(ctx, "carol", poll.ID, 0), ErrPollClosed)
}

func TestWhiteboard_Actions(t *testing.T) {
	_, r, alice, bob := standup(t, Options{})
	ctx := context.Background()

	_, err := r.ApplyWhiteboard(ctx, "alice", "erase", nil)
	assert.ErrorIs(t, err, ErrInvalidAction)
	_, err = r.ApplyWhiteboard(ctx, "alice", models.WhiteboardAdd, nil)
	assert.ErrorIs(t, err, ErrInvalidAction)

	a, err := r.ApplyWhiteboard(ctx, "bob", models.WhiteboardUndo, json.RawMessage(`{"ignored":true}`))
	require.NoError(t, err)
	assert.Nil(t, a.Element)

	_, err = r.ApplyWhiteboard(ctx, "alice", models.WhiteboardAdd, json.RawMessage(`{"id":1}`))
	require.NoError(t, err)
	assert.Equal(t, EventWhiteboard, alice.last(t).Type)
	assert.Equal(t, EventWhiteboard, bob.last(t).Type)
}

func TestWhiteboard_CompactionKeepsLateJoinerInSync(t *testing.T) {
	m := newTestManager(t, Options{WhiteboardLogLimit: 4})
	conf := createConference(t, m, CreateRequest{})
	_, r, early := joinAs(t, m, conf.ID, JoinRequest{Name: "early"})
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		el, _ := json.Marshal(map[string]int{"id": i})
		_, err := r.ApplyWhiteboard(ctx, "early", models.WhiteboardAdd, el)
		require.NoError(t, err)
	}

	reset := early.last(t)
	require.Equal(t, EventWhiteboardReset, reset.Type)
	var payload struct {
		Actions []models.WhiteboardAction `json:"actions"`
	}
	require.NoError(t, json.Unmarshal(reset.Data, &payload))
	earlyView := models.ReplayWhiteboard(payload.Actions)

	_, _, late := joinAs(t, m, conf.ID, JoinRequest{Name: "late"})
	sync := decodeSync(t, late.events(t)[0])
	lateView := models.ReplayWhiteboard(sync.Whiteboard)

	require.Len(t, lateView, 2)
	assert.JSONEq(t, `{"id":4}`, string(lateView[0]))
	assert.JSONEq(t, `{"id":5}`, string(lateView[1]))
	require.Len(t, earlyView, len(lateView))
	for i := range lateView {
		assert.JSONEq(t, string(earlyView[i]), string(lateView[i]))
	}
}

func TestShareFile(t *testing.T) {
	_, r, alice, _ := standup(t, Options{})
	ctx := context.Background()

	_, err := r.ShareFile(ctx, "bob", models.FileShare{FileName: "notes.pdf"})
	assert.ErrorIs(t, err, ErrInvalidAction)
	_, err = r.ShareFile(ctx, "bob", models.FileShare{FileName: " ", URL: "https://example.com/a"})
	assert.ErrorIs(t, err, ErrInvalidAction)

	f, err := r.ShareFile(ctx, "bob", models.FileShare{FileName: "notes.pdf", URL: "https://example.com/notes.pdf", Size: 10})
	require.NoError(t, err)
	assert.NotEmpty(t, f.ID)
	assert.Equal(t, "bob", f.SenderID)
	assert.Equal(t, EventShareFile, alice.last(t).Type)
}

func TestTerminate(t *testing.T) {
	m, r, alice, bob := standup(t, Options{})
	ended := make(chan models.Conference, 1)
	m.SetEndHandler(func(_ context.Context, c models.Conference) error {
		ended <- c
		return nil
	})
	ctx := context.Background()

	require.NoError(t, r.Terminate(ctx, Actor{ParticipantID: "alice"}))

	for _, c := range []*fakeConn{alice, bob} {
		assert.Equal(t, EventConferenceTerminated, c.last(t).Type)
		assert.True(t, c.isClosed())
	}

	select {
	case c := <-ended:
		assert.False(t, c.Active)
		assert.Equal(t, models.ConferenceEnded, c.State)
	case <-time.After(2 * time.Second):
		t.Fatal("end handler not called")
	}

	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("room did not stop")
	}

	conf, err := m.Get(ctx, r.ID())
	require.NoError(t, err)
	assert.False(t, conf.Active)
	assert.NotNil(t, conf.EndedAt)
	assert.Zero(t, conf.CurrentParticipants)

	_, _, err = m.Join(ctx, r.ID(), JoinRequest{ParticipantID: "carol", Name: "carol"}, &fakeConn{})
	assert.ErrorIs(t, err, ErrConferenceNotFound)
	assert.NoError(t, r.Leave(ctx, "alice"))
	assert.ErrorIs(t, r.Terminate(ctx, Actor{IsAdmin: true}), ErrConferenceNotFound)
}

func boolPtr(b bool) *bool { return &b }
