package judge

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/deusflow/musive/internal/cache"
	"github.com/deusflow/musive/internal/metrics"
	"github.com/deusflow/musive/internal/news"
	"github.com/deusflow/musive/internal/ratelimit"
)

// CachedClassifier reuses verdicts for inputs seen within ttl. Failed
// classifications are never stored.
type CachedClassifier struct {
	next   news.Classifier
	store  cache.Store
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedClassifier(next news.Classifier, store cache.Store, ttl time.Duration, logger *slog.Logger) *CachedClassifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedClassifier{next: next, store: store, ttl: ttl, logger: logger.With("component", "verdict-cache")}
}

func (c *CachedClassifier) Classify(ctx context.Context, title, excerpt string) (news.Classification, error) {
	key := cache.GenerateKey(title, excerpt)

	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("verdict cache read failed", "err", err)
	}
	if ok {
		var cached news.Classification
		if err := json.Unmarshal(raw, &cached); err == nil {
			metrics.Global.IncrementVerdictCacheHits()
			return cached, nil
		}
	}

	verdict, err := c.next.Classify(ctx, title, excerpt)
	if err != nil {
		return verdict, err
	}

	if data, err := json.Marshal(verdict); err == nil {
		if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
			c.logger.Warn("verdict cache write failed", "err", err)
		}
	}
	return verdict, nil
}

// Budgeted stops calling the judge once the per-run budget is spent.
type Budgeted struct {
	next   news.Classifier
	budget *ratelimit.Budget
}

func NewBudgeted(next news.Classifier, budget *ratelimit.Budget) *Budgeted {
	return &Budgeted{next: next, budget: budget}
}

func (b *Budgeted) Classify(ctx context.Context, title, excerpt string) (news.Classification, error) {
	if err := b.budget.Take(); err != nil {
		return news.Rejected, err
	}
	return b.next.Classify(ctx, title, excerpt)
}

var (
	_ news.Classifier = (*CachedClassifier)(nil)
	_ news.Classifier = (*Budgeted)(nil)
)
