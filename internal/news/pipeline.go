package news

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/deusflow/musive/internal/metrics"
	"github.com/deusflow/musive/internal/rss"
)

// Pipeline composes aggregation, deduplication and ranking for one run.
type Pipeline struct {
	sources      []rss.Source
	aggregator   *Aggregator
	deduplicator *Deduplicator
	digestSize   int
	logger       *slog.Logger
	now          func() time.Time
}

func NewPipeline(sources []rss.Source, aggregator *Aggregator, deduplicator *Deduplicator, digestSize int, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if digestSize <= 0 {
		digestSize = DefaultDigestSize
	}
	return &Pipeline{
		sources:      sources,
		aggregator:   aggregator,
		deduplicator: deduplicator,
		digestSize:   digestSize,
		logger:       logger.With("component", "pipeline"),
		now:          time.Now,
	}
}

// Run executes one digest run. Failures inside sources, classification
// and dedupe are absorbed; only an unexpected panic is returned as error.
func (p *Pipeline) Run(ctx context.Context) (digest Digest, err error) {
	if len(p.sources) == 0 {
		return Digest{}, ErrNoSources
	}

	start := p.now()
	runID := uuid.NewString()
	log := p.logger.With("run_id", runID)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("digest run %s failed: %v", runID, r)
			log.Error("run aborted", "err", err)
			metrics.Global.SetError(err.Error())
		}
	}()

	log.Info("run started", "sources", len(p.sources))

	collected := p.aggregator.Aggregate(ctx, p.sources)
	unique := p.deduplicator.Dedupe(ctx, collected)
	ranked := Rank(unique, p.digestSize)

	digest = Digest{
		RunID:       runID,
		GeneratedAt: start,
		Collected:   len(collected),
		Removed:     len(collected) - len(unique),
		Items:       ranked,
	}

	metrics.Global.RecordProcessingTime(time.Since(start))
	metrics.Global.SetLastRun(runID, len(ranked))

	if digest.Empty() {
		log.Info("nothing to deliver")
	} else {
		log.Info("run finished", "collected", digest.Collected, "removed", digest.Removed, "count", len(ranked))
	}
	return digest, nil
}
