package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/deusflow/musive/internal/digest"
	"github.com/deusflow/musive/internal/news"
	"github.com/deusflow/musive/internal/ratelimit"
)

var ErrRunInProgress = errors.New("digest run already in progress")

// DigestBuilder produces one digest; *news.Pipeline satisfies it.
type DigestBuilder interface {
	Run(ctx context.Context) (news.Digest, error)
}

// Runner serializes pipeline runs between the scheduler and the HTTP
// trigger. A trigger that arrives during a run gets ErrRunInProgress.
type Runner struct {
	pipeline DigestBuilder
	sinks    []digest.Sink
	budget   *ratelimit.Budget
	timeout  time.Duration
	logger   *slog.Logger

	running sync.Mutex

	mu   sync.RWMutex
	last news.Digest
}

func NewRunner(pipeline DigestBuilder, sinks []digest.Sink, budget *ratelimit.Budget, timeout time.Duration, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		pipeline: pipeline,
		sinks:    sinks,
		budget:   budget,
		timeout:  timeout,
		logger:   logger.With("component", "runner"),
	}
}

// Preview runs the pipeline without delivering.
func (r *Runner) Preview(ctx context.Context) (news.Digest, error) {
	return r.run(ctx, false)
}

// RunAndDeliver runs the pipeline and hands a non-empty digest to every
// sink. Delivery failures are returned joined, after all sinks were tried.
func (r *Runner) RunAndDeliver(ctx context.Context) (news.Digest, error) {
	return r.run(ctx, true)
}

// Last returns the most recent digest built by this runner.
func (r *Runner) Last() news.Digest {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

func (r *Runner) run(ctx context.Context, deliver bool) (news.Digest, error) {
	if !r.running.TryLock() {
		return news.Digest{}, ErrRunInProgress
	}
	defer r.running.Unlock()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	if r.budget != nil {
		r.budget.Reset()
	}

	d, err := r.pipeline.Run(ctx)
	if err != nil {
		return d, err
	}

	r.mu.Lock()
	r.last = d
	r.mu.Unlock()

	if !deliver {
		return d, nil
	}
	if err := digest.Deliver(ctx, d, r.sinks, r.logger); err != nil {
		return d, fmt.Errorf("delivery: %w", err)
	}
	return d, nil
}
