package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("not found")

const defaultReportsLimit = 500

// Repo stores what a probe session observed: the last room snapshot, recent
// self-reports and the player status.
type Repo struct {
	rc           *redis.Client
	ttl          time.Duration
	reportsLimit int64
	script       string
	logger       *slog.Logger
}

type Config struct {
	TTL          time.Duration
	ReportsLimit int64
}

func NewRepo(ctx context.Context, rc *redis.Client, cfg *Config, logger *slog.Logger) (*Repo, error) {
	script, err := rc.ScriptLoad(ctx, `
        local key = KEYS[1]
        if redis.call('EXISTS', key) == 0 then
            for i = 1, #ARGV - 1, 2 do
                redis.call('HSET', key, ARGV[i], ARGV[i + 1])
            end
            redis.call('PEXPIRE', key, tonumber(ARGV[#ARGV]))
            return 1
        end
        return 0
    `).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load script: %w", err)
	}

	limit := cfg.ReportsLimit
	if limit <= 0 {
		limit = defaultReportsLimit
	}

	return &Repo{
		rc:           rc,
		ttl:          cfg.TTL,
		reportsLimit: limit,
		script:       script,
		logger:       logger,
	}, nil
}

func (r Repo) getSnapshotKey(roomID string) string {
	return "room:" + roomID + ":snapshot"
}

func (r Repo) getSessionKey(roomID, sessionID string) string {
	return "room:" + roomID + ":session:" + sessionID
}

func (r Repo) getReportsKey(roomID, sessionID string) string {
	return r.getSessionKey(roomID, sessionID) + ":reports"
}

func (r Repo) getPlayerKey(roomID, sessionID string) string {
	return r.getSessionKey(roomID, sessionID) + ":player"
}

func (r Repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				return err
			}
		}

		return err
	}

	return nil
}
