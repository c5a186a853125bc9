package player

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sharetube/synctube/internal/protocol"
)

type manualClock struct {
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// fakeBackend records every player call in order.
type fakeBackend struct {
	kind     protocol.VideoType
	loaded   protocol.Media
	position float64
	playing  bool
	loadErr  error
	calls    []string
}

func newFakeBackend(kind protocol.VideoType) *fakeBackend {
	return &fakeBackend{kind: kind}
}

func (b *fakeBackend) Kind() protocol.VideoType { return b.kind }

func (b *fakeBackend) Load(_ context.Context, media protocol.Media) error {
	b.calls = append(b.calls, "load "+media.Source)
	if b.loadErr != nil {
		return b.loadErr
	}
	b.loaded = media
	b.position = 0
	b.playing = false
	return nil
}

func (b *fakeBackend) Position() float64 { return b.position }

func (b *fakeBackend) IsPlaying() bool { return b.playing }

func (b *fakeBackend) State() PlayState {
	if b.playing {
		return PlayStatePlaying
	}
	return PlayStatePaused
}

func (b *fakeBackend) Seek(position float64) {
	b.calls = append(b.calls, fmt.Sprintf("seek %g", position))
	b.position = position
}

func (b *fakeBackend) Play() {
	b.calls = append(b.calls, "play")
	b.playing = true
}

func (b *fakeBackend) Pause() {
	b.calls = append(b.calls, "pause")
	b.playing = false
}

func (b *fakeBackend) Stop() {
	b.calls = append(b.calls, "stop")
	b.playing = false
}

func (b *fakeBackend) Close() error {
	b.calls = append(b.calls, "close")
	return nil
}

func (b *fakeBackend) takeCalls() []string {
	calls := b.calls
	b.calls = nil
	return calls
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func streamed(videoID, youtubeID string, ts float64, playing bool) protocol.SyncState {
	return protocol.SyncState{
		CurrentVideoID: strPtr(videoID),
		YoutubeID:      strPtr(youtubeID),
		Timestamp:      ts,
		IsPlaying:      playing,
		VideoType:      protocol.VideoTypeStreamed,
	}
}
