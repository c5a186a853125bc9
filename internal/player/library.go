package player

import (
	"context"
	"sync"
)

// Library loads an external player library at most once per process. The
// first Wait starts the load; every caller waits for the same result.
type Library struct {
	load func(ctx context.Context) error

	once sync.Once
	done chan struct{}
	err  error
}

func NewLibrary(load func(ctx context.Context) error) *Library {
	return &Library{
		load: load,
		done: make(chan struct{}),
	}
}

// Wait blocks until the library is loaded or ctx is done. Cancelling ctx does
// not cancel the load itself.
func (l *Library) Wait(ctx context.Context) error {
	l.once.Do(func() {
		go func() {
			l.err = l.load(context.Background())
			close(l.done)
		}()
	})

	select {
	case <-l.done:
		return l.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Library) Loaded() bool {
	select {
	case <-l.done:
		return l.err == nil
	default:
		return false
	}
}
