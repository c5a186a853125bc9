package player

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/sharetube/synctube/internal/protocol"
)

type Config struct {
	// DriftThreshold is the largest tolerated distance, in seconds, between the
	// local position and the authoritative one.
	DriftThreshold        float64
	LoadSuppression       time.Duration
	CorrectionSuppression time.Duration
	LoadTimeout           time.Duration
}

func DefaultConfig() Config {
	return Config{
		DriftThreshold:        2,
		LoadSuppression:       time.Second,
		CorrectionSuppression: 500 * time.Millisecond,
		LoadTimeout:           15 * time.Second,
	}
}

// Status is a point-in-time view of the controller.
type Status struct {
	Kind        protocol.VideoType `json:"kind,omitempty"`
	Source      string             `json:"source,omitempty"`
	Position    float64            `json:"position"`
	State       PlayState          `json:"state"`
	Host        bool               `json:"host"`
	Suppressed  bool               `json:"suppressed"`
	LastDrift   float64            `json:"last_drift"`
	Corrections int                `json:"corrections"`
	LoadErrors  int                `json:"load_errors"`
}

// Controller keeps one active backend in step with the authoritative sync
// state and, for the host, turns genuine local player events into commands.
// It is not safe for concurrent use.
type Controller struct {
	cfg      Config
	backends map[protocol.VideoType]Backend
	emit     func(protocol.Command)
	logger   *slog.Logger
	now      func() time.Time

	suppressor *Suppressor
	active     Backend
	loaded     protocol.Media
	host       bool

	lastDrift   float64
	corrections int
	loadErrors  int
}

type ControllerParams struct {
	Config   Config
	Backends []Backend
	Emit     func(protocol.Command)
	Now      func() time.Time
	Logger   *slog.Logger
}

func NewController(params *ControllerParams) *Controller {
	now := params.Now
	if now == nil {
		now = time.Now
	}
	backends := make(map[protocol.VideoType]Backend, len(params.Backends))
	for _, b := range params.Backends {
		backends[b.Kind()] = b
	}

	return &Controller{
		cfg:        params.Config,
		backends:   backends,
		emit:       params.Emit,
		logger:     params.Logger,
		now:        now,
		suppressor: NewSuppressor(now),
	}
}

func (c *Controller) SetHost(host bool) {
	c.host = host
}

// Reconcile applies one authoritative sync state. The target position is the
// state's timestamp as sent. Applying the same state again with no drift does
// nothing.
func (c *Controller) Reconcile(ctx context.Context, sync protocol.SyncState) error {
	media := sync.Media()
	if media.IsZero() {
		c.stopActive()
		return nil
	}

	target := sync.Timestamp

	if media != c.loaded {
		return c.load(ctx, media, target, sync.IsPlaying)
	}

	b := c.active
	drift := math.Abs(b.Position() - target)
	c.lastDrift = drift
	if drift > c.cfg.DriftThreshold {
		c.logger.DebugContext(ctx, "correcting drift", "drift", drift, "target", target)
		b.Seek(target)
		c.correct()
	}

	switch {
	case sync.IsPlaying && !b.IsPlaying():
		b.Play()
		c.correct()
	case !sync.IsPlaying && b.IsPlaying():
		b.Pause()
		c.correct()
	}

	return nil
}

func (c *Controller) load(ctx context.Context, media protocol.Media, target float64, playing bool) error {
	b, ok := c.backends[media.Type]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedMedia, media.Type)
	}

	if c.active != nil && c.active != b {
		c.active.Stop()
	}
	c.active = b
	c.loaded = protocol.Media{}
	c.lastDrift = 0

	// events fired while loading are artifacts too
	c.suppressor.Suppress(c.cfg.LoadSuppression + c.cfg.LoadTimeout)

	loadCtx, cancel := context.WithTimeout(ctx, c.cfg.LoadTimeout)
	defer cancel()

	if err := b.Load(loadCtx, media); err != nil {
		c.loadErrors++
		c.suppressor.Reset()
		return fmt.Errorf("failed to load %s %q: %w", media.Type, media.Source, err)
	}
	c.loaded = media

	b.Seek(target)
	if playing {
		b.Play()
	} else {
		b.Pause()
	}

	c.suppressor.Reset()
	c.suppressor.Suppress(c.cfg.LoadSuppression)
	c.logger.InfoContext(ctx, "media loaded", "type", media.Type, "source", media.Source, "position", target, "playing", playing)

	return nil
}

func (c *Controller) correct() {
	c.corrections++
	c.suppressor.Suppress(c.cfg.CorrectionSuppression)
}

func (c *Controller) stopActive() {
	if c.active == nil {
		return
	}

	c.active.Stop()
	c.active = nil
	c.loaded = protocol.Media{}
	c.lastDrift = 0
}

// HandleEvent classifies a local player event. Only the host emits commands,
// and never while a suppression window is open.
func (c *Controller) HandleEvent(ev Event) {
	if !c.host || c.active == nil || c.loaded.IsZero() {
		return
	}
	if ev.Source != c.active.Kind() {
		return
	}
	at := ev.At
	if at.IsZero() {
		at = c.now()
	}
	if c.suppressor.ActiveAt(at) {
		c.logger.Debug("suppressed player event", "event", ev.Type.String())
		return
	}

	switch ev.Type {
	case EventPlay:
		c.emit(protocol.Play{})
	case EventPause:
		c.emit(protocol.Pause{Timestamp: ev.Position})
	case EventSeek:
		c.emit(protocol.Seek{Timestamp: ev.Position})
	case EventEnded:
		c.emit(protocol.VideoEnded{})
	}
}

// Seek moves the local player and, for the host, proposes the new position.
func (c *Controller) Seek(position float64) error {
	if c.active == nil || c.loaded.IsZero() {
		return ErrNotReady
	}

	c.active.Seek(position)
	c.suppressor.Suppress(c.cfg.CorrectionSuppression)
	if c.host {
		c.emit(protocol.Seek{Timestamp: position})
	}

	return nil
}

// Report returns the periodic self-report, or false when nothing is loaded.
func (c *Controller) Report() (protocol.SyncReport, bool) {
	if c.active == nil || c.loaded.IsZero() {
		return protocol.SyncReport{}, false
	}

	return protocol.SyncReport{
		Timestamp: math.Max(0, c.active.Position()),
		State:     string(c.active.State()),
	}, true
}

func (c *Controller) Status() Status {
	st := Status{
		State:       PlayStateIdle,
		Host:        c.host,
		Suppressed:  c.suppressor.Active(),
		LastDrift:   c.lastDrift,
		Corrections: c.corrections,
		LoadErrors:  c.loadErrors,
	}
	if c.active != nil && !c.loaded.IsZero() {
		st.Kind = c.loaded.Type
		st.Source = c.loaded.Source
		st.Position = c.active.Position()
		st.State = c.active.State()
	}

	return st
}

// Close releases every backend.
func (c *Controller) Close() error {
	c.active = nil
	c.loaded = protocol.Media{}

	var firstErr error
	for kind, b := range c.backends {
		if err := b.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close %s backend: %w", kind, err)
		}
	}

	return firstErr
}
