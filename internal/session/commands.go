package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/sharetube/synctube/internal/protocol"
	"github.com/sharetube/synctube/pkg/ytvideodata"
)

// AddVideo enqueues a platform video (id or URL) or a direct media URL.
// Platform videos are checked against the metadata service first when one is
// configured.
func (s *Session) AddVideo(ctx context.Context, raw string) error {
	raw = strings.TrimSpace(raw)

	if id, ok := ytvideodata.ExtractID(raw); ok {
		if s.metadata != nil {
			data, err := s.metadata.Get(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to look up video %s: %w", id, err)
			}
			s.logger.DebugContext(ctx, "video found", "youtube_id", id, "title", data.Title)
		}
	} else if !ytvideodata.IsDirectURL(raw) {
		return ErrInvalidMedia
	}

	return s.joined(ctx, func(ctx context.Context) error {
		return s.send(ctx, protocol.AddVideo{URL: raw})
	})
}

func (s *Session) RemoveVideo(ctx context.Context, videoID string) error {
	return s.joined(ctx, func(ctx context.Context) error {
		return s.send(ctx, protocol.RemoveVideo{VideoID: videoID})
	})
}

func (s *Session) ReorderQueue(ctx context.Context, videoIDs []string) error {
	return s.joined(ctx, func(ctx context.Context) error {
		return s.send(ctx, protocol.ReorderQueue{VideoIDs: videoIDs})
	})
}

// VoteSkip votes to skip the current video. The vote only counts once a
// skip_vote_update lists the local participant among the voters.
func (s *Session) VoteSkip(ctx context.Context) error {
	return s.joined(ctx, func(ctx context.Context) error {
		if !s.snapshot.Sync.HasVideo() {
			return ErrNoVideo
		}
		if s.snapshot.HasVoted() {
			return ErrAlreadyVoted
		}

		return s.send(ctx, protocol.SkipVoteCommand{VideoID: *s.snapshot.Sync.CurrentVideoID})
	})
}

func (s *Session) Chat(ctx context.Context, message string) error {
	message = strings.TrimSpace(message)

	return s.joined(ctx, func(ctx context.Context) error {
		return s.send(ctx, protocol.SendChat{Message: message})
	})
}

func (s *Session) UpdateSettings(ctx context.Context, patch protocol.SettingsPatch) error {
	return s.joined(ctx, func(ctx context.Context) error {
		if !s.snapshot.IsHost() {
			return ErrNotHost
		}

		return s.send(ctx, protocol.UpdateSettings{Settings: patch})
	})
}

// Seek moves playback for the whole room. Host only.
func (s *Session) Seek(ctx context.Context, position float64) error {
	return s.joined(ctx, func(context.Context) error {
		if !s.snapshot.IsHost() {
			return ErrNotHost
		}

		return s.controller.Seek(position)
	})
}

func (s *Session) joined(ctx context.Context, f func(ctx context.Context) error) error {
	return s.call(ctx, func(ctx context.Context) error {
		if !s.snapshot.Bootstrapped() || !s.snapshot.Connected {
			return ErrNotJoined
		}

		return f(ctx)
	})
}
