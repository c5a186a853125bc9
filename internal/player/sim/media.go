package sim

import (
	"errors"
	"sync"

	"github.com/sharetube/synctube/internal/player"
)

var ErrNoSource = errors.New("media element has no source")

// MediaElement simulates a raw media element.
type MediaElement struct {
	DefaultDuration float64
	Durations       map[string]float64

	mu       sync.Mutex
	src      string
	head     playhead
	listener func(player.MediaEvent)
	events   *dispatcher
}

func NewMediaElement(defaultDuration float64) *MediaElement {
	m := &MediaElement{
		DefaultDuration: defaultDuration,
		events:          newDispatcher(),
	}
	m.head.onEnd = m.onEnd

	return m
}

func (m *MediaElement) emitLocked(ev player.MediaEvent) {
	if m.listener == nil {
		return
	}
	listener := m.listener
	m.events.post(func() { listener(ev) })
}

func (m *MediaElement) onEnd() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.head.finish() {
		m.emitLocked(player.MediaEnded)
	}
}

func (m *MediaElement) Listen(f func(player.MediaEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.listener = f
}

func (m *MediaElement) SetSource(url string) error {
	if url == "" {
		return ErrNoSource
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	duration := m.DefaultDuration
	if d, ok := m.Durations[url]; ok {
		duration = d
	}
	m.src = url
	m.head.reset(duration)

	return nil
}

func (m *MediaElement) Source() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.src
}

func (m *MediaElement) CurrentTime() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.head.position()
}

func (m *MediaElement) SetCurrentTime(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.src == "" {
		return
	}
	m.head.seek(seconds)
	m.emitLocked(player.MediaSeeked)
}

func (m *MediaElement) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return !m.head.playing
}

func (m *MediaElement) Ended() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.head.ended
}

func (m *MediaElement) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.src == "" {
		return ErrNoSource
	}
	if m.head.playing {
		return nil
	}
	m.head.play()
	m.emitLocked(player.MediaPlay)

	return nil
}

func (m *MediaElement) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.head.playing {
		return
	}
	m.head.pause()
	m.emitLocked(player.MediaPause)
}

func (m *MediaElement) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.src = ""
	m.head.reset(0)
}

// Close stops event delivery.
func (m *MediaElement) Close() {
	m.Reset()
	m.events.close()
}
