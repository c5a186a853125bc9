package player

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sharetube/synctube/internal/protocol"
)

type MediaEvent int

const (
	MediaPlay MediaEvent = iota
	MediaPause
	MediaSeeked
	MediaEnded
)

// MediaElement is a raw media element playing a URL.
type MediaElement interface {
	SetSource(url string) error
	CurrentTime() float64
	SetCurrentTime(seconds float64)
	Paused() bool
	Ended() bool
	Play() error
	Pause()
	// Reset drops the source and releases buffered media.
	Reset()
	// Listen registers the single event listener.
	Listen(func(MediaEvent))
}

type Direct struct {
	el     MediaElement
	sink   EventSink
	logger *slog.Logger
}

func NewDirect(el MediaElement, sink EventSink, logger *slog.Logger) *Direct {
	d := &Direct{el: el, sink: sink, logger: logger}
	el.Listen(d.onEvent)

	return d
}

func (d *Direct) onEvent(ev MediaEvent) {
	out := Event{Source: d.Kind(), Position: d.el.CurrentTime()}
	switch ev {
	case MediaPlay:
		out.Type = EventPlay
	case MediaPause:
		out.Type = EventPause
	case MediaSeeked:
		out.Type = EventSeek
	case MediaEnded:
		out.Type = EventEnded
	default:
		return
	}

	d.sink(out)
}

func (d *Direct) Kind() protocol.VideoType {
	return protocol.VideoTypeDirect
}

func (d *Direct) Load(ctx context.Context, media protocol.Media) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.el.SetSource(media.Source); err != nil {
		return fmt.Errorf("failed to set source: %w", err)
	}

	return nil
}

func (d *Direct) Position() float64 {
	return d.el.CurrentTime()
}

func (d *Direct) IsPlaying() bool {
	return !d.el.Paused() && !d.el.Ended()
}

func (d *Direct) State() PlayState {
	switch {
	case d.el.Ended():
		return PlayStateEnded
	case d.el.Paused():
		return PlayStatePaused
	default:
		return PlayStatePlaying
	}
}

func (d *Direct) Seek(position float64) {
	d.el.SetCurrentTime(position)
}

// Play failures (autoplay policy, bad source) leave the element paused; the
// next correction retries.
func (d *Direct) Play() {
	if err := d.el.Play(); err != nil {
		d.logger.Debug("media element refused to play", "position", d.el.CurrentTime(), "error", err)
	}
}

func (d *Direct) Pause() {
	d.el.Pause()
}

func (d *Direct) Stop() {
	d.el.Pause()
	d.el.Reset()
}

func (d *Direct) Close() error {
	d.el.Reset()
	return nil
}
