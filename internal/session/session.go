package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sharetube/synctube/internal/player"
	"github.com/sharetube/synctube/internal/protocol"
	"github.com/sharetube/synctube/internal/room"
	"github.com/sharetube/synctube/internal/transport"
	"github.com/sharetube/synctube/pkg/ctxlogger"
	"github.com/sharetube/synctube/pkg/wsrouter"
	"github.com/sharetube/synctube/pkg/ytvideodata"
)

var (
	ErrNotJoined    = errors.New("not joined to a room")
	ErrAlreadyVoted = errors.New("already voted for this video")
	ErrNoVideo      = errors.New("nothing is playing")
	ErrNotHost      = errors.New("only the host can do this")
	ErrInvalidMedia = errors.New("not a playable video url or id")
	ErrClosed       = errors.New("session is closed")
)

// Observer is told about applied snapshots and sent self-reports. Calls happen
// on the session loop and must not block.
type Observer interface {
	SnapshotApplied(ctx context.Context, snap room.Snapshot)
	ReportSent(ctx context.Context, report Report)
}

type Report struct {
	ID        string              `json:"id"`
	RoomID    string              `json:"room_id"`
	SessionID string              `json:"session_id"`
	Report    protocol.SyncReport `json:"report"`
	Player    player.Status       `json:"player"`
	At        time.Time           `json:"at"`
}

type Notice struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// MetadataClient looks up platform video metadata.
type MetadataClient interface {
	Get(ctx context.Context, videoID string) (*ytvideodata.VideoData, error)
}

type Config struct {
	ReportInterval time.Duration
	Transport      transport.Config
	Player         player.Config
}

type Params struct {
	// ID names the session in logs and the journal; generated when empty.
	ID       string
	Config   Config
	Dialer   transport.Dialer
	Backends func(sink player.EventSink) []player.Backend
	Observer Observer
	Metadata MetadataClient
	Now      func() time.Time
	Logger   *slog.Logger
}

// Session is one participant's connection to one room. Every state change
// happens on the goroutine running Run; other methods post work to it.
type Session struct {
	id         string
	cfg        Config
	logger     *slog.Logger
	observer   Observer
	metadata   MetadataClient
	now        func() time.Time
	transport  *transport.Transport
	controller *player.Controller
	router     *wsrouter.WSRouter

	inbox   chan func(ctx context.Context)
	done    chan struct{}
	notices chan Notice

	// owned by the loop
	snapshot    room.Snapshot
	displayName string

	current      atomic.Pointer[room.Snapshot]
	playerStatus atomic.Pointer[player.Status]
}

func New(params *Params) *Session {
	if params.Config.ReportInterval <= 0 {
		params.Config.ReportInterval = 5 * time.Second
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	id := params.ID
	if id == "" {
		id = uuid.NewString()
	}

	s := &Session{
		id:       id,
		cfg:      params.Config,
		logger:   params.Logger,
		observer: params.Observer,
		metadata: params.Metadata,
		now:      now,
		inbox:    make(chan func(ctx context.Context), 256),
		done:     make(chan struct{}),
		notices:  make(chan Notice, 16),
		snapshot: room.Initial(),
	}

	s.transport = transport.New(params.Config.Transport, params.Dialer, s, params.Logger)
	s.controller = player.NewController(&player.ControllerParams{
		Config:   params.Config.Player,
		Backends: params.Backends(s.onPlayerEvent),
		Emit:     s.emit,
		Now:      now,
		Logger:   params.Logger,
	})
	s.router = s.newRouter()
	s.publish()

	return s
}

func (s *Session) ID() string {
	return s.id
}

// Snapshot returns the latest applied room snapshot.
func (s *Session) Snapshot() room.Snapshot {
	return *s.current.Load()
}

func (s *Session) PlayerStatus() player.Status {
	return *s.playerStatus.Load()
}

func (s *Session) TransportState() transport.State {
	return s.transport.State()
}

// Notices delivers server errors meant for the user. Notices are dropped when
// nobody reads them.
func (s *Session) Notices() <-chan Notice {
	return s.notices
}

// Run processes events until ctx is done, then tears the session down.
func (s *Session) Run(ctx context.Context) error {
	ctx = ctxlogger.AppendCtx(ctx, slog.String("session_id", s.id))
	ticker := time.NewTicker(s.cfg.ReportInterval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "session started")
	defer s.teardown(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case f := <-s.inbox:
			f(s.logCtx(ctx))
			s.publish()
		case <-ticker.C:
			s.report(s.logCtx(ctx))
			s.publish()
		}
	}
}

func (s *Session) teardown(ctx context.Context) {
	close(s.done)
	s.transport.Disconnect()
	if err := s.controller.Close(); err != nil {
		s.logger.WarnContext(ctx, "failed to release player", "error", err)
	}
	s.logger.InfoContext(ctx, "session stopped")
}

func (s *Session) logCtx(ctx context.Context) context.Context {
	if s.snapshot.RoomID == "" {
		return ctx
	}

	return ctxlogger.AppendCtx(ctx, slog.String("room_id", s.snapshot.RoomID))
}

func (s *Session) publish() {
	snap := s.snapshot
	s.current.Store(&snap)
	status := s.controller.Status()
	s.playerStatus.Store(&status)
}

// post queues f on the loop. It gives up once the session is closed.
func (s *Session) post(f func(ctx context.Context)) bool {
	select {
	case s.inbox <- f:
		return true
	case <-s.done:
		return false
	}
}

// call runs f on the loop and waits for its result.
func (s *Session) call(ctx context.Context, f func(ctx context.Context) error) error {
	result := make(chan error, 1)
	if !s.post(func(ctx context.Context) {
		err := f(ctx)
		s.publish()
		result <- err
	}) {
		return ErrClosed
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrClosed
	}
}

// Join sets the display name and enables the transport. The name is sent on
// every successful open.
func (s *Session) Join(ctx context.Context, displayName string) error {
	if err := protocol.Validate(protocol.Join{DisplayName: displayName}); err != nil {
		return fmt.Errorf("invalid display name: %w", err)
	}

	if err := s.call(ctx, func(context.Context) error {
		s.displayName = displayName
		return nil
	}); err != nil {
		return err
	}

	s.transport.Connect()
	return nil
}

// Leave disconnects without reconnecting. Join enables the transport again.
func (s *Session) Leave(ctx context.Context) error {
	s.transport.Disconnect()

	return s.call(ctx, func(context.Context) error {
		s.snapshot = room.WithConnected(s.snapshot, false)
		return nil
	})
}

func (s *Session) OnOpen() {
	s.post(func(ctx context.Context) {
		if s.displayName == "" {
			return
		}
		s.logger.InfoContext(ctx, "channel open, joining", "display_name", s.displayName)
		if err := s.send(ctx, protocol.Join{DisplayName: s.displayName}); err != nil {
			s.logger.WarnContext(ctx, "failed to send join", "error", err)
		}
	})
}

func (s *Session) OnMessage(frame []byte) {
	s.post(func(ctx context.Context) {
		if err := s.router.ServeFrame(ctx, frame); err != nil {
			if errors.Is(err, wsrouter.ErrUnknownType) {
				s.logger.DebugContext(ctx, "ignoring unknown message", "error", err)
				return
			}
			s.logger.DebugContext(ctx, "dropping malformed frame", "error", err)
		}
	})
}

func (s *Session) OnClose() {
	s.post(func(ctx context.Context) {
		s.snapshot = room.WithConnected(s.snapshot, false)
		s.logger.InfoContext(ctx, "channel closed")
	})
}

func (s *Session) onPlayerEvent(ev player.Event) {
	if ev.At.IsZero() {
		ev.At = s.now()
	}
	s.post(func(context.Context) {
		s.controller.HandleEvent(ev)
	})
}

// emit is the controller's outbound path. It runs on the loop.
func (s *Session) emit(cmd protocol.Command) {
	if err := s.send(context.Background(), cmd); err != nil {
		s.logger.Debug("player command dropped", "command", cmd.CommandType(), "error", err)
	}
}

func (s *Session) send(ctx context.Context, cmd protocol.Command) error {
	frame, err := protocol.Encode(cmd)
	if err != nil {
		return err
	}

	if err := s.transport.Send(frame); err != nil {
		s.logger.DebugContext(ctx, "command dropped", "command", cmd.CommandType(), "error", err)
		return fmt.Errorf("failed to send %s: %w", cmd.CommandType(), err)
	}

	return nil
}

func (s *Session) report(ctx context.Context) {
	if !s.snapshot.Bootstrapped() {
		return
	}

	report, ok := s.controller.Report()
	if !ok {
		return
	}
	if err := s.send(ctx, report); err != nil {
		return
	}

	if s.observer != nil {
		s.observer.ReportSent(ctx, Report{
			ID:        uuid.NewString(),
			RoomID:    s.snapshot.RoomID,
			SessionID: s.id,
			Report:    report,
			Player:    s.controller.Status(),
			At:        s.now(),
		})
	}
}
