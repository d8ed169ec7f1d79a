package dispatch_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushrelay/pushrelay/internal/dispatch"
	"github.com/pushrelay/pushrelay/internal/token"
)

func TestReconciler_InvalidatesQueuedTokens(t *testing.T) {
	tokenService := token.NewService(token.NewInMemoryRepository())
	ctx := context.Background()

	_, err := tokenService.Register(ctx, "U1", "tok-1", token.PlatformIOS)
	require.NoError(t, err)
	_, err = tokenService.Register(ctx, "U1", "tok-2", token.PlatformIOS)
	require.NoError(t, err)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reconciler := dispatch.NewReconciler(tokenService, 8, zerolog.Nop())
	reconciler.Start(workerCtx)
	reconciler.Enqueue([]string{"tok-1"})

	require.Eventually(t, func() bool {
		valid, listErr := tokenService.ListValid(ctx, "U1")
		return listErr == nil && len(valid) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestReconciler_EmptySetIsDropped(t *testing.T) {
	inv := &countingInvalidator{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reconciler := dispatch.NewReconciler(inv, 8, zerolog.Nop())
	reconciler.Start(ctx)
	reconciler.Enqueue(nil)
	reconciler.Enqueue([]string{})

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, inv.calls())
}

func TestReconciler_SwallowsInvalidationFailures(t *testing.T) {
	inv := &countingInvalidator{err: errors.New("registry down")}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reconciler := dispatch.NewReconciler(inv, 8, zerolog.Nop())
	reconciler.Start(ctx)
	reconciler.Enqueue([]string{"tok-1"})
	reconciler.Enqueue([]string{"tok-2"})

	// Both sets are attempted despite the first failure.
	require.Eventually(t, func() bool {
		return inv.calls() == 2
	}, time.Second, 5*time.Millisecond)
}

func TestReconciler_DrainsQueueOnShutdown(t *testing.T) {
	inv := &countingInvalidator{}

	ctx, cancel := context.WithCancel(context.Background())
	reconciler := dispatch.NewReconciler(inv, 8, zerolog.Nop())
	reconciler.Enqueue([]string{"tok-1"})
	reconciler.Enqueue([]string{"tok-2"})

	reconciler.Start(ctx)
	cancel()

	select {
	case <-reconciler.Done():
	case <-time.After(time.Second):
		t.Fatal("reconciler did not shut down")
	}
	assert.Equal(t, 2, inv.calls())
}

// countingInvalidator counts Invalidate calls and optionally fails them.
type countingInvalidator struct {
	mu    sync.Mutex
	count int
	err   error
}

func (c *countingInvalidator) Invalidate(_ context.Context, tokens []string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	if c.err != nil {
		return 0, c.err
	}
	return int64(len(tokens)), nil
}

func (c *countingInvalidator) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}
