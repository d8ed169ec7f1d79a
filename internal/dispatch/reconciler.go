package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// invalidateTimeout bounds one reconciliation write. The request context is
// usually gone by the time the worker runs, so each write gets its own.
const invalidateTimeout = 10 * time.Second

// Invalidator is the registry surface the reconciler writes through.
type Invalidator interface {
	Invalidate(ctx context.Context, tokens []string) (int64, error)
}

// Reconciler consumes dead-token sets off a bounded queue and marks them
// invalid in the registry. Reconciliation is best-effort cleanup: failures
// are logged and swallowed, never surfaced to the dispatch response.
type Reconciler struct {
	invalidator Invalidator
	queue       chan []string
	logger      zerolog.Logger

	startOnce sync.Once
	done      chan struct{}
}

// NewReconciler creates a new reconciler with the given queue capacity.
func NewReconciler(invalidator Invalidator, queueSize int, logger zerolog.Logger) *Reconciler {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Reconciler{
		invalidator: invalidator,
		queue:       make(chan []string, queueSize),
		logger:      logger.With().Str("component", "reconciler").Logger(),
		done:        make(chan struct{}),
	}
}

// Start launches the worker goroutine. It drains until ctx is cancelled.
func (r *Reconciler) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		go r.run(ctx)
	})
}

// Enqueue hands a set of dead tokens to the worker without blocking the
// request path. An empty set is dropped. If the queue is full the write
// happens on a throwaway goroutine instead, so the signal is not lost.
func (r *Reconciler) Enqueue(tokens []string) {
	if len(tokens) == 0 {
		return
	}
	select {
	case r.queue <- tokens:
	default:
		r.logger.Warn().Int("tokens", len(tokens)).Msg("reconcile queue full, invalidating out of band")
		go r.invalidate(tokens)
	}
}

// Done is closed once the worker has exited. Exposed for tests and shutdown.
func (r *Reconciler) Done() <-chan struct{} {
	return r.done
}

func (r *Reconciler) run(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case tokens := <-r.queue:
			r.invalidate(tokens)
		case <-ctx.Done():
			// Drain whatever is already queued before exiting.
			for {
				select {
				case tokens := <-r.queue:
					r.invalidate(tokens)
				default:
					return
				}
			}
		}
	}
}

func (r *Reconciler) invalidate(tokens []string) {
	ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
	defer cancel()

	count, err := r.invalidator.Invalidate(ctx, tokens)
	if err != nil {
		r.logger.Error().Err(err).Int("tokens", len(tokens)).Msg("token invalidation failed")
		return
	}
	r.logger.Info().Int64("invalidated", count).Int("tokens", len(tokens)).Msg("dead tokens invalidated")
}
