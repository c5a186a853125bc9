package redis

import (
	"context"
	"log/slog"
	"time"

	"github.com/sharetube/synctube/internal/room"
	"github.com/sharetube/synctube/internal/session"
)

// Journal writes session observations to the repo from its own goroutine so
// the session loop never waits on redis.
type Journal struct {
	repo        *Repo
	sessionID   string
	displayName string
	logger      *slog.Logger
	jobs        chan func(ctx context.Context)
	registered  bool
}

func NewJournal(repo *Repo, sessionID, displayName string, logger *slog.Logger) *Journal {
	return &Journal{
		repo:        repo,
		sessionID:   sessionID,
		displayName: displayName,
		logger:      logger,
		jobs:        make(chan func(ctx context.Context), 128),
	}
}

// Run executes queued writes until ctx is done.
func (j *Journal) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-j.jobs:
			job(ctx)
		}
	}
}

func (j *Journal) enqueue(ctx context.Context, what string, job func(ctx context.Context)) {
	select {
	case j.jobs <- job:
	default:
		j.logger.DebugContext(ctx, "journal busy, dropping write", "what", what)
	}
}

func (j *Journal) SnapshotApplied(ctx context.Context, snap room.Snapshot) {
	j.enqueue(ctx, "snapshot", func(workerCtx context.Context) {
		if err := j.repo.SaveSnapshot(workerCtx, snap); err != nil {
			j.logger.WarnContext(ctx, "failed to save snapshot", "error", err)
			return
		}

		if j.registered {
			return
		}
		if _, err := j.repo.RegisterSession(workerCtx, &SessionInfo{
			SessionID:   j.sessionID,
			RoomID:      snap.RoomID,
			UserID:      snap.LocalID,
			DisplayName: j.displayName,
			StartedAt:   time.Now().Unix(),
		}); err != nil {
			j.logger.WarnContext(ctx, "failed to register session", "error", err)
			return
		}
		j.registered = true
	})
}

func (j *Journal) ReportSent(ctx context.Context, report session.Report) {
	j.enqueue(ctx, "report", func(workerCtx context.Context) {
		if err := j.repo.AppendReport(workerCtx, report); err != nil {
			j.logger.WarnContext(ctx, "failed to append report", "error", err)
		}
		if err := j.repo.SavePlayer(workerCtx, &SavePlayerParams{
			RoomID:    report.RoomID,
			SessionID: report.SessionID,
			Status:    report.Player,
		}); err != nil {
			j.logger.WarnContext(ctx, "failed to save player", "error", err)
		}
	})
}
