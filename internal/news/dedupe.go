package news

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/deusflow/musive/internal/metrics"
)

// Deduplicator removes items the duplicate judge flags as repeated
// coverage of one event.
type Deduplicator struct {
	judge  DuplicateJudge
	logger *slog.Logger
}

func NewDeduplicator(judge DuplicateJudge, logger *slog.Logger) *Deduplicator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deduplicator{judge: judge, logger: logger.With("component", "deduplicator")}
}

// Dedupe returns items without the positions the judge reports. Any judge
// failure leaves the input untouched; indices outside the input are
// ignored.
func (d *Deduplicator) Dedupe(ctx context.Context, items []Item) []Item {
	if d.judge == nil || len(items) < 2 {
		return items
	}

	indices, err := d.findDuplicates(ctx, items)
	if err != nil {
		d.logger.Warn("dedup judge failed, keeping all items", "count", len(items), "err", err)
		metrics.Global.IncrementDedupFailures()
		return items
	}

	out := RemoveIndices(items, indices)
	removed := len(items) - len(out)
	metrics.Global.AddDuplicatesRemoved(removed)
	d.logger.Info("deduplicated", "count", len(out), "removed", removed)
	return out
}

func (d *Deduplicator) findDuplicates(ctx context.Context, items []Item) (indices []int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dedup judge panic: %v", r)
		}
	}()
	return d.judge.FindDuplicates(ctx, items)
}

// RemoveIndices drops the given positions, keeping relative order.
// Out-of-range and repeated indices have no effect.
func RemoveIndices(items []Item, indices []int) []Item {
	drop := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(items) {
			drop[i] = struct{}{}
		}
	}
	if len(drop) == 0 {
		return items
	}

	out := make([]Item, 0, len(items)-len(drop))
	for i, item := range items {
		if _, ok := drop[i]; ok {
			continue
		}
		out = append(out, item)
	}
	return out
}
