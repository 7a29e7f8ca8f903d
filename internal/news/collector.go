package news

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/deusflow/musive/internal/extract"
	"github.com/deusflow/musive/internal/metrics"
	"github.com/deusflow/musive/internal/rss"
)

// Collector gathers the accepted items of a single source.
type Collector struct {
	fetcher     FeedFetcher
	extractor   *extract.Extractor
	classifier  Classifier
	concurrency int
	logger      *slog.Logger
}

// NewCollector builds a collector. concurrency caps in-flight classifier
// calls per source; 0 means every candidate is classified at once.
func NewCollector(fetcher FeedFetcher, extractor *extract.Extractor, classifier Classifier, concurrency int, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		fetcher:     fetcher,
		extractor:   extractor,
		classifier:  classifier,
		concurrency: concurrency,
		logger:      logger.With("component", "collector"),
	}
}

// Collect fetches src, classifies its recent entries concurrently and
// returns the valid ones in feed order. A fetch failure yields no items.
func (c *Collector) Collect(ctx context.Context, src rss.Source) []Item {
	log := c.logger.With("source", src.Name)

	feed, err := c.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		log.Error("source unavailable", "url", src.URL, "err", err)
		metrics.Global.IncrementSourcesFailed()
		return []Item{}
	}

	candidates := c.extractor.Candidates(feed.Items)
	log.Debug("candidates selected", "count", len(candidates), "entries", len(feed.Items))

	results := make([]*Item, len(candidates))
	var g errgroup.Group
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}
	for i, cand := range candidates {
		i, cand := i, cand
		g.Go(func() error {
			verdict := c.classify(ctx, log, cand)
			if !verdict.IsValid {
				return nil
			}
			item := newItem(src.Name, cand, verdict)
			results[i] = &item
			return nil
		})
	}
	_ = g.Wait()

	items := make([]Item, 0, len(results))
	for _, r := range results {
		if r != nil {
			items = append(items, *r)
		}
	}
	log.Info("source collected", "count", len(items), "candidates", len(candidates))
	return items
}

// classify never fails: errors and panics become a rejection.
func (c *Collector) classify(ctx context.Context, log *slog.Logger, cand extract.Candidate) (verdict Classification) {
	metrics.Global.IncrementCandidatesClassified()
	defer func() {
		if r := recover(); r != nil {
			log.Error("classifier panic", "title", cand.Title, "err", fmt.Sprint(r))
			metrics.Global.IncrementClassificationFailures()
			verdict = Rejected
		}
	}()

	verdict, err := c.classifier.Classify(ctx, cand.Title, cand.Excerpt)
	if err != nil {
		log.Warn("classification failed", "title", cand.Title, "err", err)
		metrics.Global.IncrementClassificationFailures()
		return Rejected
	}
	if verdict.IsValid {
		metrics.Global.IncrementItemsAccepted()
	}
	log.Debug("classified", "title", cand.Title, "valid", verdict.IsValid, "interest", verdict.InterestLevel)
	return verdict
}

func newItem(source string, cand extract.Candidate, verdict Classification) Item {
	title := cand.Title
	if strings.TrimSpace(title) == "" {
		title = UntitledPlaceholder
	}
	return Item{
		Source:        source,
		Title:         title,
		Link:          cand.Link,
		Summary:       verdict.Summary,
		Thumbnail:     cand.Thumbnail,
		Published:     cand.Published,
		InterestLevel: verdict.InterestLevel,
	}
}
