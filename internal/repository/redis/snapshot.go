package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/synctube/internal/room"
)

func (r Repo) SaveSnapshot(ctx context.Context, snap room.Snapshot) error {
	funcName := "journal.redis.SaveSnapshot"
	if !snap.Bootstrapped() {
		return fmt.Errorf("snapshot has no room id")
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := r.rc.Set(ctx, r.getSnapshotKey(snap.RoomID), data, r.ttl).Err(); err != nil {
		r.logger.ErrorContext(ctx, funcName, "error", err)
		return err
	}

	return nil
}

func (r Repo) GetSnapshot(ctx context.Context, roomID string) (room.Snapshot, error) {
	funcName := "journal.redis.GetSnapshot"
	data, err := r.rc.Get(ctx, r.getSnapshotKey(roomID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return room.Snapshot{}, ErrNotFound
		}
		r.logger.ErrorContext(ctx, funcName, "error", err)
		return room.Snapshot{}, err
	}

	var snap room.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return room.Snapshot{}, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return snap, nil
}
