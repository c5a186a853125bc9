package player

import (
	"context"
	"fmt"
	"sync"

	"github.com/sharetube/synctube/internal/protocol"
)

// IFrameState mirrors the embedded player's numeric state codes.
type IFrameState int

const (
	IFrameUnstarted IFrameState = -1
	IFrameEnded     IFrameState = 0
	IFramePlaying   IFrameState = 1
	IFramePaused    IFrameState = 2
	IFrameBuffering IFrameState = 3
	IFrameCued      IFrameState = 5
)

// IFrame is one embedded platform player instance.
type IFrame interface {
	LoadVideoByID(videoID string)
	SeekTo(seconds float64, allowSeekAhead bool)
	PlayVideo()
	PauseVideo()
	StopVideo()
	CurrentTime() float64
	PlayerState() IFrameState
	Destroy()
}

type IFrameCallbacks struct {
	OnReady       func()
	OnStateChange func(IFrameState)
}

// IFrameFactory creates players once the library is available. Callbacks may
// fire before NewPlayer returns.
type IFrameFactory interface {
	NewPlayer(videoID string, cb IFrameCallbacks) (IFrame, error)
}

// Embedded drives an embedded platform player. It reports play, pause and
// ended; seeks are only observable through Controller.Seek.
type Embedded struct {
	library *Library
	factory IFrameFactory
	sink    EventSink

	mu    sync.Mutex
	frame IFrame
}

func NewEmbedded(library *Library, factory IFrameFactory, sink EventSink) *Embedded {
	return &Embedded{
		library: library,
		factory: factory,
		sink:    sink,
	}
}

func (e *Embedded) Kind() protocol.VideoType {
	return protocol.VideoTypeStreamed
}

func (e *Embedded) Load(ctx context.Context, media protocol.Media) error {
	if err := e.library.Wait(ctx); err != nil {
		return fmt.Errorf("failed to load player library: %w", err)
	}

	if frame := e.player(); frame != nil {
		frame.LoadVideoByID(media.Source)
		return nil
	}

	ready := make(chan struct{})
	var readyOnce sync.Once
	frame, err := e.factory.NewPlayer(media.Source, IFrameCallbacks{
		OnReady: func() {
			readyOnce.Do(func() { close(ready) })
		},
		OnStateChange: e.onStateChange,
	})
	if err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}

	select {
	case <-ready:
	case <-ctx.Done():
		frame.Destroy()
		return fmt.Errorf("player never became ready: %w", ctx.Err())
	}

	e.mu.Lock()
	e.frame = frame
	e.mu.Unlock()

	return nil
}

func (e *Embedded) onStateChange(state IFrameState) {
	frame := e.player()
	if frame == nil {
		return
	}

	switch state {
	case IFramePlaying:
		e.sink(Event{Type: EventPlay, Source: e.Kind(), Position: frame.CurrentTime()})
	case IFramePaused:
		e.sink(Event{Type: EventPause, Source: e.Kind(), Position: frame.CurrentTime()})
	case IFrameEnded:
		e.sink(Event{Type: EventEnded, Source: e.Kind(), Position: frame.CurrentTime()})
	}
}

func (e *Embedded) player() IFrame {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.frame
}

func (e *Embedded) Position() float64 {
	if frame := e.player(); frame != nil {
		return frame.CurrentTime()
	}

	return 0
}

// IsPlaying counts buffering as playing.
func (e *Embedded) IsPlaying() bool {
	frame := e.player()
	if frame == nil {
		return false
	}

	state := frame.PlayerState()
	return state == IFramePlaying || state == IFrameBuffering
}

func (e *Embedded) State() PlayState {
	frame := e.player()
	if frame == nil {
		return PlayStateIdle
	}

	switch frame.PlayerState() {
	case IFramePlaying:
		return PlayStatePlaying
	case IFramePaused:
		return PlayStatePaused
	case IFrameBuffering:
		return PlayStateBuffering
	case IFrameEnded:
		return PlayStateEnded
	default:
		return PlayStateIdle
	}
}

func (e *Embedded) Seek(position float64) {
	if frame := e.player(); frame != nil {
		frame.SeekTo(position, true)
	}
}

func (e *Embedded) Play() {
	if frame := e.player(); frame != nil {
		frame.PlayVideo()
	}
}

func (e *Embedded) Pause() {
	if frame := e.player(); frame != nil {
		frame.PauseVideo()
	}
}

func (e *Embedded) Stop() {
	if frame := e.player(); frame != nil {
		frame.StopVideo()
	}
}

func (e *Embedded) Close() error {
	e.mu.Lock()
	frame := e.frame
	e.frame = nil
	e.mu.Unlock()

	if frame != nil {
		frame.Destroy()
	}

	return nil
}
