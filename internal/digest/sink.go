package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/deusflow/musive/internal/metrics"
	"github.com/deusflow/musive/internal/news"
)

// Sink consumes a finished digest.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, d news.Digest) error
}

// Deliver hands d to every sink concurrently. A failing sink is logged and
// counted without stopping the others; the joined failures are returned.
// An empty digest is not delivered.
func Deliver(ctx context.Context, d news.Digest, sinks []Sink, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if d.Empty() {
		logger.Info("digest empty, skipping delivery", "run_id", d.RunID)
		return nil
	}

	errs := make([]error, len(sinks))
	var g errgroup.Group
	for i, sink := range sinks {
		i, sink := i, sink
		g.Go(func() error {
			errs[i] = deliverOne(ctx, sink, d)
			if errs[i] != nil {
				metrics.Global.IncrementDeliveryFailures()
				logger.Error("delivery failed", "sink", sink.Name(), "run_id", d.RunID, "err", errs[i])
				return nil
			}
			metrics.Global.IncrementDigestsDelivered()
			logger.Info("digest delivered", "sink", sink.Name(), "run_id", d.RunID, "count", len(d.Items))
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

func deliverOne(ctx context.Context, sink Sink, d news.Digest) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", sink.Name(), r)
		}
	}()
	if err := sink.Deliver(ctx, d); err != nil {
		return fmt.Errorf("%s: %w", sink.Name(), err)
	}
	return nil
}
