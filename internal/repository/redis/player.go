package redis

import (
	"context"

	"github.com/sharetube/synctube/internal/player"
	omitnilpointers "github.com/sharetube/synctube/pkg/omit-nil-pointers"
)

type SavePlayerParams struct {
	RoomID    string
	SessionID string
	Status    player.Status
}

// SavePlayer overwrites the player hash with the latest status fields.
func (r Repo) SavePlayer(ctx context.Context, params *SavePlayerParams) error {
	funcName := "journal.redis.SavePlayer"
	key := r.getPlayerKey(params.RoomID, params.SessionID)

	pipe := r.rc.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, omitnilpointers.FromStruct(params.Status))
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.ErrorContext(ctx, funcName, "error", err)
		return err
	}

	return nil
}

func (r Repo) GetPlayer(ctx context.Context, roomID, sessionID string) (map[string]string, error) {
	fields, err := r.rc.HGetAll(ctx, r.getPlayerKey(roomID, sessionID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	return fields, nil
}
