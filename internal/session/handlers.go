package session

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/sharetube/synctube/internal/protocol"
	"github.com/sharetube/synctube/internal/room"
	"github.com/sharetube/synctube/pkg/ctxlogger"
	"github.com/sharetube/synctube/pkg/wsrouter"
)

func (s *Session) newRouter() *wsrouter.WSRouter {
	r := wsrouter.New()
	r.Use(s.loggerMw())

	wsrouter.Handle(r, string(protocol.EventRoomState), s.handleRoomState)
	wsrouter.Handle(r, string(protocol.EventUserJoined), reduceWith[protocol.UserJoined](s))
	wsrouter.Handle(r, string(protocol.EventUserLeft), reduceWith[protocol.UserLeft](s))
	wsrouter.Handle(r, string(protocol.EventQueueUpdated), reduceWith[protocol.QueueUpdated](s))
	wsrouter.Handle(r, string(protocol.EventSync), s.handleSync)
	wsrouter.Handle(r, string(protocol.EventChatMessage), reduceWith[protocol.Chat](s))
	wsrouter.Handle(r, string(protocol.EventSkipVoteUpdate), reduceWith[protocol.SkipVoteUpdate](s))
	wsrouter.Handle(r, string(protocol.EventHostChanged), reduceWith[protocol.HostChanged](s))
	wsrouter.Handle(r, string(protocol.EventSettingsUpdated), reduceWith[protocol.SettingsUpdated](s))
	wsrouter.Handle(r, string(protocol.EventError), s.handleError)

	return r
}

func (s *Session) loggerMw() wsrouter.Middleware {
	return func(next wsrouter.HandlerFunc[any]) wsrouter.HandlerFunc[any] {
		return func(ctx context.Context, payload any) error {
			ctx = ctxlogger.AppendCtx(ctx, slog.String("message_type", wsrouter.GetMessageTypeFromCtx(ctx)))
			s.logger.DebugContext(ctx, "websocket message received")

			start := time.Now()

			err := next(ctx, payload)

			s.logger.DebugContext(ctx, "websocket message handled",
				"processing_time_us", time.Since(start).Microseconds(),
				"goroutines", runtime.NumGoroutine(),
			)

			return err
		}
	}
}

func reduceWith[T protocol.Event](s *Session) wsrouter.HandlerFunc[T] {
	return func(ctx context.Context, ev T) error {
		s.apply(ctx, ev)
		return nil
	}
}

// apply runs the reducer and lets the controller follow the result before the
// next event is looked at.
func (s *Session) apply(ctx context.Context, ev protocol.Event) room.Snapshot {
	prev := s.snapshot
	s.snapshot = room.Reduce(prev, ev)

	if s.snapshot.IsHost() != prev.IsHost() {
		s.logger.InfoContext(ctx, "local role changed", "role", s.snapshot.LocalRole)
	}
	s.controller.SetHost(s.snapshot.IsHost())

	if s.observer != nil && s.snapshot.Bootstrapped() {
		s.observer.SnapshotApplied(ctx, s.snapshot)
	}

	return s.snapshot
}

func (s *Session) reconcile(ctx context.Context) {
	if !s.snapshot.Bootstrapped() {
		return
	}

	if err := s.controller.Reconcile(ctx, s.snapshot.Sync); err != nil {
		s.logger.WarnContext(ctx, "failed to apply sync state", "error", err)
	}
}

func (s *Session) handleRoomState(ctx context.Context, ev protocol.RoomState) error {
	snap := s.apply(ctx, ev)
	s.logger.InfoContext(ctx, "joined room",
		"room_id", snap.RoomID,
		"user_id", snap.LocalID,
		"role", snap.LocalRole,
		"users", len(snap.Participants),
		"queue", len(snap.Queue),
	)
	s.reconcile(ctx)

	return nil
}

func (s *Session) handleSync(ctx context.Context, ev protocol.Sync) error {
	s.apply(ctx, ev)
	s.reconcile(ctx)

	return nil
}

func (s *Session) handleError(ctx context.Context, ev protocol.Error) error {
	s.logger.WarnContext(ctx, "server error", "code", ev.Code, "message", ev.Message)

	notice := Notice{Code: ev.Code, Message: ev.Message, At: s.now()}
	select {
	case s.notices <- notice:
	default:
		s.logger.DebugContext(ctx, "notice dropped", "code", ev.Code)
	}

	return nil
}
