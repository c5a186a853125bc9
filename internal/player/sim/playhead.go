// Package sim provides clock-driven stand-ins for an embedded platform player
// and a raw media element, for headless participants and tests.
package sim

import (
	"sync"
	"time"
)

// endTolerance absorbs timer rounding when checking for the end of media.
const endTolerance = 0.001

// playhead tracks a media position that advances in real time while playing.
// Callers hold the owner's lock.
type playhead struct {
	duration float64
	base     float64
	anchor   time.Time
	playing  bool
	ended    bool

	timer *time.Timer
	onEnd func()
}

func (p *playhead) position() float64 {
	pos := p.base
	if p.playing {
		pos += time.Since(p.anchor).Seconds()
	}
	if p.duration > 0 && pos > p.duration {
		pos = p.duration
	}

	return pos
}

func (p *playhead) reset(duration float64) {
	p.stopTimer()
	p.duration = duration
	p.base = 0
	p.playing = false
	p.ended = false
}

func (p *playhead) play() {
	if p.playing {
		return
	}
	if p.ended {
		p.base = 0
		p.ended = false
	}
	p.anchor = time.Now()
	p.playing = true
	p.armTimer()
}

func (p *playhead) pause() {
	if !p.playing {
		return
	}
	p.base = p.position()
	p.playing = false
	p.stopTimer()
}

func (p *playhead) seek(pos float64) {
	if pos < 0 {
		pos = 0
	}
	if p.duration > 0 && pos > p.duration {
		pos = p.duration
	}
	p.base = pos
	p.anchor = time.Now()
	p.ended = false
	if p.playing {
		p.armTimer()
	}
}

func (p *playhead) armTimer() {
	p.stopTimer()
	if p.duration <= 0 || p.onEnd == nil {
		return
	}

	remaining := time.Duration((p.duration - p.position()) * float64(time.Second))
	p.timer = time.AfterFunc(remaining, p.onEnd)
}

func (p *playhead) stopTimer() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// finish marks the end of media. It returns false when the end is stale.
func (p *playhead) finish() bool {
	if !p.playing || p.duration <= 0 || p.position() < p.duration-endTolerance {
		return false
	}
	p.base = p.duration
	p.playing = false
	p.ended = true
	p.timer = nil

	return true
}

// dispatcher delivers callbacks in order on its own goroutine. post never
// blocks, so it is safe to call with the owner's lock held.
type dispatcher struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []func()
	closed  bool
}

func newDispatcher() *dispatcher {
	d := &dispatcher{}
	d.cond = sync.NewCond(&d.mu)
	go d.run()

	return d
}

func (d *dispatcher) run() {
	for {
		d.mu.Lock()
		for len(d.pending) == 0 && !d.closed {
			d.cond.Wait()
		}
		if d.closed {
			d.mu.Unlock()
			return
		}
		f := d.pending[0]
		d.pending = d.pending[1:]
		d.mu.Unlock()

		f()
	}
}

func (d *dispatcher) post(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.pending = append(d.pending, f)
	d.cond.Signal()
}

func (d *dispatcher) close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	d.pending = nil
	d.cond.Broadcast()
}
