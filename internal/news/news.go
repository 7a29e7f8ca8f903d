// Package news holds the digest domain: items, the judge contracts and the
// collect → dedupe → rank pipeline.
package news

import (
	"context"
	"errors"
	"time"

	"github.com/mmcdole/gofeed"
)

// DefaultDigestSize is the number of items delivered per run.
const DefaultDigestSize = 15

// UntitledPlaceholder replaces an empty entry title.
const UntitledPlaceholder = "제목 없음"

var ErrNoSources = errors.New("no sources configured")

// Item is one accepted article flowing through dedupe and ranking.
type Item struct {
	Source        string    `json:"source"`
	Title         string    `json:"title"`
	Link          string    `json:"link"`
	Summary       string    `json:"summary"`
	Thumbnail     string    `json:"thumbnail"`
	Published     time.Time `json:"pubDate"`
	InterestLevel int       `json:"interestLevel"`
}

// Classification is the relevance verdict for one candidate. Summary and
// InterestLevel carry meaning only when IsValid is true.
type Classification struct {
	IsValid       bool   `json:"isValid"`
	Summary       string `json:"summary"`
	InterestLevel int    `json:"interestLevel"`
}

// Rejected is the verdict used whenever classification fails.
var Rejected = Classification{}

// Classifier judges a candidate's relevance.
type Classifier interface {
	Classify(ctx context.Context, title, excerpt string) (Classification, error)
}

// DuplicateJudge returns the positions in items that repeat an event
// already covered by another item.
type DuplicateJudge interface {
	FindDuplicates(ctx context.Context, items []Item) ([]int, error)
}

// FeedFetcher retrieves and parses one feed.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) (*gofeed.Feed, error)
}

// Digest is the ranked output of one run.
type Digest struct {
	RunID       string    `json:"runId"`
	GeneratedAt time.Time `json:"generatedAt"`
	Collected   int       `json:"collected"`
	Removed     int       `json:"removed"`
	Items       []Item    `json:"items"`
}

// Empty reports the "nothing to deliver" outcome.
func (d Digest) Empty() bool {
	return len(d.Items) == 0
}
