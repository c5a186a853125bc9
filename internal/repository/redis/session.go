package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/sharetube/synctube/internal/session"
	omitnilpointers "github.com/sharetube/synctube/pkg/omit-nil-pointers"
)

type SessionInfo struct {
	SessionID   string `json:"session_id"`
	RoomID      string `json:"room_id"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	StartedAt   int64  `json:"started_at"`
}

// RegisterSession records the session once; later calls keep the first record.
// It reports whether this call created it.
func (r Repo) RegisterSession(ctx context.Context, info *SessionInfo) (bool, error) {
	funcName := "journal.redis.RegisterSession"
	fields := omitnilpointers.FromStruct(info)

	args := make([]any, 0, len(fields)*2+1)
	for k, v := range fields {
		args = append(args, k, fmt.Sprint(v))
	}
	ttl := r.ttl
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	args = append(args, ttl.Milliseconds())

	created, err := r.rc.EvalSha(ctx, r.script, []string{r.getSessionKey(info.RoomID, info.SessionID)}, args...).Int()
	if err != nil {
		r.logger.ErrorContext(ctx, funcName, "error", err)
		return false, err
	}

	return created == 1, nil
}

func (r Repo) GetSession(ctx context.Context, roomID, sessionID string) (map[string]string, error) {
	fields, err := r.rc.HGetAll(ctx, r.getSessionKey(roomID, sessionID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	return fields, nil
}

var _ session.Observer = (*Journal)(nil)
