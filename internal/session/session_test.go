package session

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/synctube/internal/player"
	"github.com/sharetube/synctube/internal/protocol"
	"github.com/sharetube/synctube/internal/room"
	"github.com/sharetube/synctube/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame map[string]any

// fakeRoom accepts websocket clients and answers join with onJoin.
type fakeRoom struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader
	received chan frame
	conns    chan *websocket.Conn
	onJoin   func(r *fakeRoom, conn *websocket.Conn, name string)

	writeMu sync.Mutex
}

func newFakeRoom(t *testing.T, onJoin func(r *fakeRoom, conn *websocket.Conn, name string)) *fakeRoom {
	r := &fakeRoom{
		received: make(chan frame, 64),
		conns:    make(chan *websocket.Conn, 8),
		onJoin:   onJoin,
	}
	r.srv = httptest.NewServer(http.HandlerFunc(r.serve))
	t.Cleanup(r.srv.Close)

	return r
}

func (r *fakeRoom) URL() string {
	return "ws" + strings.TrimPrefix(r.srv.URL, "http") + "/ws/room1"
}

func (r *fakeRoom) serve(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	r.conns <- conn

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		r.received <- f
		if f["type"] == "join" && r.onJoin != nil {
			name, _ := f["display_name"].(string)
			r.onJoin(r, conn, name)
		}
	}
}

func (r *fakeRoom) write(conn *websocket.Conn, v any) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	data, _ := json.Marshal(v)
	_ = conn.WriteMessage(websocket.TextMessage, data)
}

func (r *fakeRoom) writeRaw(conn *websocket.Conn, data string) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	_ = conn.WriteMessage(websocket.TextMessage, []byte(data))
}

func (r *fakeRoom) expect(t *testing.T, typ string) frame {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case f := <-r.received:
			if f["type"] == typ {
				return f
			}
		case <-deadline:
			t.Fatalf("no %s frame received", typ)
			return nil
		}
	}
}

func roomStateFrame(role string, syncState map[string]any) frame {
	return frame{
		"type":    "room_state",
		"room_id": "room1",
		"users": []map[string]any{
			{"user_id": "host1", "display_name": "Hosty", "role": "host", "connected": true},
			{"user_id": "me", "display_name": "Probe", "role": role, "connected": true},
		},
		"queue": []map[string]any{
			{"video_id": "v1", "youtube_id": "yt1", "title": "First", "video_type": "youtube", "added_by": "host1"},
		},
		"sync":         syncState,
		"settings":     map[string]any{"max_videos_per_user": 10, "skip_vote_threshold": 0.5},
		"chat_history": []any{},
		"your_user_id": "me",
		"your_role":    role,
		"server_time":  0,
	}
}

func playingV1(ts float64, playing bool) map[string]any {
	return map[string]any{
		"current_video_id": "v1",
		"youtube_id":       "yt1",
		"timestamp":        ts,
		"is_playing":       playing,
		"last_updated":     0,
		"video_type":       "youtube",
	}
}

type recordingBackend struct {
	mu       sync.Mutex
	kind     protocol.VideoType
	sink     player.EventSink
	loaded   string
	position float64
	playing  bool
}

func (b *recordingBackend) Kind() protocol.VideoType { return b.kind }

func (b *recordingBackend) Load(_ context.Context, m protocol.Media) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loaded = m.Source
	return nil
}

func (b *recordingBackend) Position() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.position
}

func (b *recordingBackend) IsPlaying() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.playing
}

func (b *recordingBackend) State() player.PlayState {
	if b.IsPlaying() {
		return player.PlayStatePlaying
	}
	return player.PlayStatePaused
}

func (b *recordingBackend) Seek(p float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.position = p
}

func (b *recordingBackend) Play()  { b.setPlaying(true) }
func (b *recordingBackend) Pause() { b.setPlaying(false) }
func (b *recordingBackend) Stop()  { b.setPlaying(false) }

func (b *recordingBackend) Close() error { return nil }

func (b *recordingBackend) setPlaying(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.playing = v
}

func (b *recordingBackend) Loaded() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loaded
}

type recordingObserver struct {
	mu        sync.Mutex
	snapshots int
	reports   []Report
}

func (o *recordingObserver) SnapshotApplied(context.Context, room.Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.snapshots++
}

func (o *recordingObserver) ReportSent(_ context.Context, r Report) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reports = append(o.reports, r)
}

func (o *recordingObserver) Reports() []Report {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Report(nil), o.reports...)
}

type fixture struct {
	session  *Session
	backend  *recordingBackend
	observer *recordingObserver
}

func startSession(t *testing.T, url string, reportInterval time.Duration) *fixture {
	t.Helper()

	f := &fixture{
		backend:  &recordingBackend{kind: protocol.VideoTypeStreamed},
		observer: &recordingObserver{},
	}
	playerCfg := player.DefaultConfig()
	playerCfg.LoadSuppression = 20 * time.Millisecond
	playerCfg.CorrectionSuppression = 10 * time.Millisecond

	f.session = New(&Params{
		Config: Config{
			ReportInterval: reportInterval,
			Transport:      transport.Config{URL: url, ReconnectDelay: 20 * time.Millisecond},
			Player:         playerCfg,
		},
		Dialer: transport.NewWSDialer(time.Second, nil),
		Backends: func(sink player.EventSink) []player.Backend {
			f.backend.sink = sink
			return []player.Backend{f.backend}
		},
		Observer: f.observer,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.session.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return f
}

func answerWith(role string, syncState map[string]any) func(r *fakeRoom, conn *websocket.Conn, name string) {
	return func(r *fakeRoom, conn *websocket.Conn, _ string) {
		r.write(conn, roomStateFrame(role, syncState))
	}
}

func TestJoinBootstrapsAndStartsPlayback(t *testing.T) {
	fr := newFakeRoom(t, answerWith("viewer", playingV1(30, true)))
	f := startSession(t, fr.URL(), time.Hour)

	assert.ErrorIs(t, f.session.AddVideo(context.Background(), "dQw4w9WgXcQ"), ErrNotJoined)
	require.NoError(t, f.session.Join(context.Background(), "Probe"))

	join := fr.expect(t, "join")
	assert.Equal(t, "Probe", join["display_name"])

	require.Eventually(t, func() bool {
		return f.session.Snapshot().Bootstrapped() && f.backend.Loaded() == "yt1"
	}, 3*time.Second, 10*time.Millisecond)

	snap := f.session.Snapshot()
	assert.Equal(t, "room1", snap.RoomID)
	assert.True(t, snap.Connected)
	assert.Equal(t, protocol.RoleViewer, snap.LocalRole)
	assert.Equal(t, 30.0, f.backend.Position())
	assert.True(t, f.backend.IsPlaying())
	assert.Equal(t, transport.StateOpen, f.session.TransportState())
}

func TestFollowerJoinsMidPlayback(t *testing.T) {
	const lastUpdated = 1_700_000_000.0
	syncState := playingV1(312, true)
	syncState["last_updated"] = lastUpdated
	fr := newFakeRoom(t, func(r *fakeRoom, conn *websocket.Conn, _ string) {
		state := roomStateFrame("viewer", syncState)
		state["server_time"] = lastUpdated + 300
		r.write(conn, state)
	})
	f := startSession(t, fr.URL(), time.Hour)
	require.NoError(t, f.session.Join(context.Background(), "Probe"))

	conn := <-fr.conns
	fr.expect(t, "join")
	require.Eventually(t, func() bool {
		return f.session.Snapshot().Bootstrapped() && f.backend.Loaded() == "yt1"
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, 312.0, f.backend.Position(), "seeks to the timestamp as sent")

	heartbeat := playingV1(313, true)
	heartbeat["last_updated"] = lastUpdated
	fr.write(conn, frame{"type": "sync", "sync": heartbeat, "server_time": lastUpdated + 301})

	require.Eventually(t, func() bool {
		return f.session.Snapshot().Sync.Timestamp == 313
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, 312.0, f.backend.Position(), "within the drift threshold, no seek")
	assert.True(t, f.backend.IsPlaying())
}

func TestJoinRejectsInvalidName(t *testing.T) {
	fr := newFakeRoom(t, nil)
	f := startSession(t, fr.URL(), time.Hour)

	assert.Error(t, f.session.Join(context.Background(), ""))
	assert.Error(t, f.session.Join(context.Background(), strings.Repeat("x", protocol.MaxDisplayNameLength+1)))
	assert.Equal(t, transport.StateIdle, f.session.TransportState(), "no connection before a name is chosen")
}

func TestRejoinsAfterReconnect(t *testing.T) {
	fr := newFakeRoom(t, answerWith("viewer", playingV1(0, false)))
	f := startSession(t, fr.URL(), time.Hour)
	require.NoError(t, f.session.Join(context.Background(), "Probe"))

	first := <-fr.conns
	fr.expect(t, "join")
	first.Close()

	<-fr.conns
	join := fr.expect(t, "join")
	assert.Equal(t, "Probe", join["display_name"])

	require.Eventually(t, func() bool {
		return f.session.Snapshot().Connected
	}, 3*time.Second, 10*time.Millisecond)
}

func TestHostPauseIsSent(t *testing.T) {
	fr := newFakeRoom(t, answerWith("host", playingV1(40, true)))
	f := startSession(t, fr.URL(), time.Hour)
	require.NoError(t, f.session.Join(context.Background(), "Probe"))

	require.Eventually(t, func() bool {
		return f.session.Snapshot().IsHost() && f.backend.Loaded() == "yt1" && !f.session.PlayerStatus().Suppressed
	}, 3*time.Second, 10*time.Millisecond)

	f.backend.sink(player.Event{Type: player.EventPause, Source: protocol.VideoTypeStreamed, Position: 42.5})

	pause := fr.expect(t, "pause")
	assert.Equal(t, 42.5, pause["timestamp"])
}

func TestFollowerForcePauses(t *testing.T) {
	fr := newFakeRoom(t, answerWith("viewer", playingV1(40, true)))
	f := startSession(t, fr.URL(), time.Hour)
	require.NoError(t, f.session.Join(context.Background(), "Probe"))
	conn := <-fr.conns
	fr.expect(t, "join")

	require.Eventually(t, func() bool { return f.backend.IsPlaying() }, 3*time.Second, 10*time.Millisecond)

	f.backend.sink(player.Event{Type: player.EventPause, Source: protocol.VideoTypeStreamed, Position: 41})
	fr.writeRaw(conn, `not json`)
	fr.write(conn, frame{"type": "some_future_event"})
	fr.write(conn, frame{"type": "sync", "sync": playingV1(42.5, false), "server_time": 1})

	require.Eventually(t, func() bool { return !f.backend.IsPlaying() }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, 42.5, f.backend.Position())
	assert.False(t, f.session.Snapshot().Sync.IsPlaying)

	select {
	case got := <-fr.received:
		t.Fatalf("follower sent %v", got["type"])
	case <-time.After(50 * time.Millisecond):
	}
}

func TestServerErrorBecomesNotice(t *testing.T) {
	fr := newFakeRoom(t, answerWith("viewer", playingV1(0, false)))
	f := startSession(t, fr.URL(), time.Hour)
	require.NoError(t, f.session.Join(context.Background(), "Probe"))
	conn := <-fr.conns
	require.Eventually(t, func() bool { return f.session.Snapshot().Bootstrapped() }, 3*time.Second, 10*time.Millisecond)
	before := f.session.Snapshot()

	fr.write(conn, frame{"type": "error", "code": "NOT_HOST", "message": "Only the host can do that"})

	select {
	case n := <-f.session.Notices():
		assert.Equal(t, "NOT_HOST", n.Code)
		assert.Equal(t, "Only the host can do that", n.Message)
	case <-time.After(3 * time.Second):
		t.Fatal("no notice")
	}
	assert.Equal(t, before, f.session.Snapshot())
}

func TestCommands(t *testing.T) {
	fr := newFakeRoom(t, answerWith("viewer", playingV1(0, true)))
	f := startSession(t, fr.URL(), time.Hour)
	ctx := context.Background()
	require.NoError(t, f.session.Join(ctx, "Probe"))
	conn := <-fr.conns
	require.Eventually(t, func() bool { return f.session.Snapshot().Bootstrapped() }, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, f.session.AddVideo(ctx, "https://youtu.be/dQw4w9WgXcQ"))
	add := fr.expect(t, "add_video")
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", add["url"])

	assert.ErrorIs(t, f.session.AddVideo(ctx, "definitely not a video"), ErrInvalidMedia)

	require.NoError(t, f.session.Chat(ctx, "  hello  "))
	assert.Equal(t, "hello", fr.expect(t, "chat_message")["message"])
	assert.Error(t, f.session.Chat(ctx, strings.Repeat("a", protocol.MaxChatLength+1)))

	require.NoError(t, f.session.ReorderQueue(ctx, []string{"v1"}))
	fr.expect(t, "reorder_queue")
	require.NoError(t, f.session.RemoveVideo(ctx, "v1"))
	fr.expect(t, "remove_video")

	threshold := 0.75
	assert.ErrorIs(t, f.session.UpdateSettings(ctx, protocol.SettingsPatch{SkipVoteThreshold: &threshold}), ErrNotHost)
	assert.ErrorIs(t, f.session.Seek(ctx, 10), ErrNotHost)

	require.NoError(t, f.session.VoteSkip(ctx))
	assert.Equal(t, "v1", fr.expect(t, "skip_vote")["video_id"])

	fr.write(conn, frame{"type": "skip_vote_update", "video_id": "v1", "votes": 2, "required": 2, "voters": []string{"host1", "me"}})
	require.Eventually(t, func() bool { return f.session.Snapshot().HasVoted() }, 3*time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, f.session.VoteSkip(ctx), ErrAlreadyVoted)
	assert.Equal(t, 2, f.session.Snapshot().SkipVote.Votes)

	fr.write(conn, frame{"type": "host_changed", "new_host_id": "me", "new_host_name": "Probe"})
	require.Eventually(t, func() bool { return f.session.Snapshot().IsHost() }, 3*time.Second, 10*time.Millisecond)
	require.NoError(t, f.session.UpdateSettings(ctx, protocol.SettingsPatch{SkipVoteThreshold: &threshold}))
	settings := fr.expect(t, "update_settings")["settings"].(map[string]any)
	assert.Equal(t, 0.75, settings["skip_vote_threshold"])
	assert.NotContains(t, settings, "max_videos_per_user")
}

func TestPeriodicReport(t *testing.T) {
	fr := newFakeRoom(t, answerWith("viewer", playingV1(12, false)))
	f := startSession(t, fr.URL(), 20*time.Millisecond)
	require.NoError(t, f.session.Join(context.Background(), "Probe"))

	report := fr.expect(t, "sync_report")
	assert.Equal(t, 12.0, report["timestamp"])
	assert.Equal(t, "paused", report["state"])

	require.Eventually(t, func() bool { return len(f.observer.Reports()) > 0 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, "room1", f.observer.Reports()[0].RoomID)
}

func TestLeaveStopsReconnecting(t *testing.T) {
	fr := newFakeRoom(t, answerWith("viewer", playingV1(0, false)))
	f := startSession(t, fr.URL(), time.Hour)
	require.NoError(t, f.session.Join(context.Background(), "Probe"))
	<-fr.conns
	require.Eventually(t, func() bool { return f.session.Snapshot().Connected }, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, f.session.Leave(context.Background()))
	assert.False(t, f.session.Snapshot().Connected)

	select {
	case <-fr.conns:
		t.Fatal("reconnected after leave")
	case <-time.After(100 * time.Millisecond):
	}
}
