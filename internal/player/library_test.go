package player

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLibraryLoadsOnce(t *testing.T) {
	var loads atomic.Int32
	release := make(chan struct{})
	lib := NewLibrary(func(context.Context) error {
		loads.Add(1)
		<-release
		return nil
	})
	assert.False(t, lib.Loaded())

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- lib.Wait(context.Background())
		}()
	}

	close(release)
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	require.NoError(t, lib.Wait(context.Background()))
	assert.Equal(t, int32(1), loads.Load())
	assert.True(t, lib.Loaded())
}

func TestLibraryWaitHonorsCallerContext(t *testing.T) {
	release := make(chan struct{})
	lib := NewLibrary(func(context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, lib.Wait(ctx), context.DeadlineExceeded)

	close(release)
	assert.NoError(t, lib.Wait(context.Background()), "cancelled waiter does not abort the load")
}

func TestLibraryFailureIsMemoized(t *testing.T) {
	var loads atomic.Int32
	boom := errors.New("script blocked")
	lib := NewLibrary(func(context.Context) error {
		loads.Add(1)
		return boom
	})

	assert.ErrorIs(t, lib.Wait(context.Background()), boom)
	assert.ErrorIs(t, lib.Wait(context.Background()), boom)
	assert.Equal(t, int32(1), loads.Load())
	assert.False(t, lib.Loaded())
}
