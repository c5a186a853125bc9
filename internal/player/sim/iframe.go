package sim

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sharetube/synctube/internal/player"
)

// IFrameAPI simulates the embedded player library and its player factory.
type IFrameAPI struct {
	LoadDelay       time.Duration
	ReadyDelay      time.Duration
	DefaultDuration float64
	Durations       map[string]float64

	// FailLoad makes the library load fail.
	FailLoad bool

	mu    sync.Mutex
	loads int
}

var ErrLibraryUnavailable = errors.New("player library unavailable")

// Load is the library loader passed to player.NewLibrary.
func (a *IFrameAPI) Load(ctx context.Context) error {
	a.mu.Lock()
	a.loads++
	a.mu.Unlock()

	select {
	case <-time.After(a.LoadDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	if a.FailLoad {
		return ErrLibraryUnavailable
	}

	return nil
}

func (a *IFrameAPI) Loads() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.loads
}

func (a *IFrameAPI) duration(videoID string) float64 {
	if d, ok := a.Durations[videoID]; ok {
		return d
	}

	return a.DefaultDuration
}

func (a *IFrameAPI) NewPlayer(videoID string, cb player.IFrameCallbacks) (player.IFrame, error) {
	p := &IFramePlayer{
		api:     a,
		cb:      cb,
		events:  newDispatcher(),
		videoID: videoID,
		state:   player.IFrameUnstarted,
	}
	p.head.reset(a.duration(videoID))
	p.head.onEnd = p.onEnd

	time.AfterFunc(a.ReadyDelay, func() {
		p.mu.Lock()
		destroyed := p.destroyed
		if !destroyed {
			p.state = player.IFrameCued
		}
		p.mu.Unlock()

		if !destroyed && cb.OnReady != nil {
			p.events.post(cb.OnReady)
		}
	})

	return p, nil
}

type IFramePlayer struct {
	api    *IFrameAPI
	cb     player.IFrameCallbacks
	events *dispatcher

	mu        sync.Mutex
	videoID   string
	state     player.IFrameState
	head      playhead
	destroyed bool
}

func (p *IFramePlayer) setStateLocked(state player.IFrameState) {
	if p.state == state {
		return
	}
	p.state = state
	if p.cb.OnStateChange != nil {
		onStateChange := p.cb.OnStateChange
		p.events.post(func() { onStateChange(state) })
	}
}

func (p *IFramePlayer) onEnd() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed || !p.head.finish() {
		return
	}
	p.setStateLocked(player.IFrameEnded)
}

func (p *IFramePlayer) VideoID() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.videoID
}

// LoadVideoByID switches video and starts playing it.
func (p *IFramePlayer) LoadVideoByID(videoID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.videoID = videoID
	p.head.reset(p.api.duration(videoID))
	p.setStateLocked(player.IFrameBuffering)
	p.head.play()
	p.setStateLocked(player.IFramePlaying)
}

func (p *IFramePlayer) SeekTo(seconds float64, _ bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.head.seek(seconds)
	if p.state == player.IFrameEnded {
		p.setStateLocked(player.IFramePaused)
	}
}

func (p *IFramePlayer) PlayVideo() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.head.play()
	p.setStateLocked(player.IFramePlaying)
}

func (p *IFramePlayer) PauseVideo() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.head.pause()
	p.setStateLocked(player.IFramePaused)
}

func (p *IFramePlayer) StopVideo() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.head.pause()
	p.head.seek(0)
	p.setStateLocked(player.IFrameCued)
}

func (p *IFramePlayer) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.head.position()
}

func (p *IFramePlayer) PlayerState() player.IFrameState {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

func (p *IFramePlayer) Destroy() {
	p.mu.Lock()
	p.destroyed = true
	p.head.stopTimer()
	p.mu.Unlock()

	p.events.close()
}
