package news

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/deusflow/musive/internal/metrics"
	"github.com/deusflow/musive/internal/rss"
)

// SourceCollector is satisfied by *Collector.
type SourceCollector interface {
	Collect(ctx context.Context, src rss.Source) []Item
}

// Aggregator runs one collector per source concurrently.
type Aggregator struct {
	collector SourceCollector
	logger    *slog.Logger
}

func NewAggregator(collector SourceCollector, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{collector: collector, logger: logger.With("component", "aggregator")}
}

// Aggregate waits for every source and concatenates results in registry
// order.
func (a *Aggregator) Aggregate(ctx context.Context, sources []rss.Source) []Item {
	results := make([][]Item, len(sources))

	var g errgroup.Group
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					a.logger.Error("collector panic", "source", src.Name, "err", fmt.Sprint(r))
					metrics.Global.IncrementSourcesFailed()
					results[i] = nil
				}
			}()
			results[i] = a.collector.Collect(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	all := make([]Item, 0)
	for _, items := range results {
		all = append(all, items...)
	}
	a.logger.Info("aggregated", "sources", len(sources), "count", len(all))
	return all
}
