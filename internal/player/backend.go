package player

import (
	"context"
	"errors"
	"time"

	"github.com/sharetube/synctube/internal/protocol"
)

var (
	ErrNotReady         = errors.New("player is not ready")
	ErrUnsupportedMedia = errors.New("no backend for media type")
)

// PlayState is the coarse play state carried by sync reports.
type PlayState string

const (
	PlayStateIdle      PlayState = "idle"
	PlayStatePlaying   PlayState = "playing"
	PlayStatePaused    PlayState = "paused"
	PlayStateBuffering PlayState = "buffering"
	PlayStateEnded     PlayState = "ended"
)

type EventType int

const (
	EventPlay EventType = iota
	EventPause
	EventSeek
	EventEnded
)

func (t EventType) String() string {
	switch t {
	case EventPlay:
		return "play"
	case EventPause:
		return "pause"
	case EventSeek:
		return "seek"
	case EventEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Event is a locally observed player event. At is when it was observed; the
// zero value means when it is handled.
type Event struct {
	Type     EventType
	Source   protocol.VideoType
	Position float64
	At       time.Time
}

// EventSink receives backend events. Backends may call it from any goroutine.
type EventSink func(Event)

// Backend is one concrete media player. All methods except the event sink are
// called from a single goroutine.
type Backend interface {
	Kind() protocol.VideoType
	Load(ctx context.Context, media protocol.Media) error
	Position() float64
	IsPlaying() bool
	State() PlayState
	Seek(position float64)
	Play()
	Pause()
	Stop()
	Close() error
}
