package transport

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	ErrNotOpen  = errors.New("transport is not open")
	ErrDisabled = errors.New("transport is disabled")
)

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Handler receives transport callbacks. For one connection, OnOpen happens
// before any OnMessage and OnClose comes last. Callbacks run on transport
// goroutines and must not block for long.
type Handler interface {
	OnOpen()
	OnMessage(frame []byte)
	OnClose()
}

// Stopper cancels a scheduled call.
type Stopper interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it via a small adapter.
type AfterFunc func(d time.Duration, f func()) Stopper

type Config struct {
	URL            string
	ReconnectDelay time.Duration
	DialTimeout    time.Duration
	WriteTimeout   time.Duration
}

func (cfg *Config) setDefaults() {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 2 * time.Second
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
}

// Transport owns one persistent websocket to the room process. While enabled
// it reconnects forever after a fixed delay; sends while not open are dropped.
type Transport struct {
	cfg       Config
	dialer    Dialer
	handler   Handler
	afterFunc AfterFunc
	logger    *slog.Logger

	mu      sync.Mutex
	state   State
	enabled bool
	conn    Conn
	gen     uint64
	timer   Stopper
	cancel  context.CancelFunc

	writeMu sync.Mutex
}

type Option func(*Transport)

func WithAfterFunc(f AfterFunc) Option {
	return func(t *Transport) { t.afterFunc = f }
}

func New(cfg Config, dialer Dialer, handler Handler, logger *slog.Logger, opts ...Option) *Transport {
	cfg.setDefaults()
	t := &Transport{
		cfg:     cfg,
		dialer:  dialer,
		handler: handler,
		logger:  logger,
		afterFunc: func(d time.Duration, f func()) Stopper {
			return time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(t)
	}

	return t
}

func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.state
}

// Connect enables the transport and starts a connection attempt unless one is
// already open, in flight, or scheduled.
func (t *Transport) Connect() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.enabled = true
	if t.state == StateConnecting || t.state == StateOpen || t.timer != nil {
		return
	}

	t.dialLocked()
}

// Disconnect disables the transport, cancels a pending reconnect and closes the
// channel. No further reconnect happens until Connect is called again.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	t.enabled = false
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	conn := t.conn
	t.conn = nil
	if t.state != StateIdle {
		t.state = StateClosed
	}
	t.gen++
	t.mu.Unlock()

	if conn != nil {
		t.writeMu.Lock()
		_ = conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "leave"))
		t.writeMu.Unlock()
		conn.Close()
		t.handler.OnClose()
	}
}

// Send writes one text frame. It fails with ErrNotOpen and drops the frame when
// the channel is not open.
func (t *Transport) Send(frame []byte) error {
	t.mu.Lock()
	if !t.enabled {
		t.mu.Unlock()
		return ErrDisabled
	}
	conn := t.conn
	open := t.state == StateOpen
	t.mu.Unlock()

	if !open || conn == nil {
		return ErrNotOpen
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout)); err != nil {
		return err
	}

	return conn.WriteMessage(websocket.TextMessage, frame)
}

func (t *Transport) dialLocked() {
	t.state = StateConnecting
	t.gen++
	gen := t.gen

	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.DialTimeout)
	t.cancel = cancel

	go t.dial(ctx, cancel, gen)
}

// dial owns cancel; t.cancel may already belong to a newer attempt.
func (t *Transport) dial(ctx context.Context, cancel context.CancelFunc, gen uint64) {
	t.logger.Debug("dialing room", "url", t.cfg.URL)
	conn, err := t.dialer.Dial(ctx, t.cfg.URL)
	cancel()

	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	t.cancel = nil
	if err != nil {
		t.logger.Info("failed to connect", "error", err)
		t.closedLocked()
		t.mu.Unlock()
		t.handler.OnClose()
		return
	}
	t.conn = conn
	t.state = StateOpen
	t.mu.Unlock()

	t.logger.Info("connected", "url", t.cfg.URL)
	t.readLoop(conn, gen)
}

func (t *Transport) readLoop(conn Conn, gen uint64) {
	t.handler.OnOpen()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			if gen != t.gen {
				// closed by Disconnect, which reports OnClose itself
				t.mu.Unlock()
				return
			}
			t.logger.Info("connection closed", "error", err)
			t.conn = nil
			t.closedLocked()
			t.mu.Unlock()

			conn.Close()
			t.handler.OnClose()
			return
		}

		t.handler.OnMessage(frame)
	}
}

// closedLocked moves to Closed and schedules a reconnect while enabled.
func (t *Transport) closedLocked() {
	t.state = StateClosed
	if !t.enabled {
		return
	}

	gen := t.gen
	t.timer = t.afterFunc(t.cfg.ReconnectDelay, func() {
		t.mu.Lock()
		defer t.mu.Unlock()

		if gen != t.gen || !t.enabled || t.state != StateClosed {
			return
		}
		t.timer = nil
		t.dialLocked()
	})
}
