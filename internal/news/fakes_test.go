package news

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/deusflow/musive/internal/extract"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func testExtractor() *extract.Extractor {
	e := extract.New(24*time.Hour, 20, 600)
	e.Now = func() time.Time { return testNow }
	return e
}

func feedItem(title string, age time.Duration) *gofeed.Item {
	p := testNow.Add(-age)
	return &gofeed.Item{
		Title:           title,
		Link:            "https://example.com/" + title,
		Description:     "<p>" + title + " body</p>",
		PublishedParsed: &p,
	}
}

type fakeFetcher struct {
	feeds map[string]*gofeed.Feed
	errs  map[string]error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*gofeed.Feed, error) {
	if err := f.errs[url]; err != nil {
		return nil, err
	}
	feed, ok := f.feeds[url]
	if !ok {
		return nil, errors.New("unknown feed")
	}
	return feed, nil
}

type verdict struct {
	result Classification
	err    error
	panic  bool
}

type fakeClassifier struct {
	mu       sync.Mutex
	verdicts map[string]verdict
	calls    int
	inFlight int
	maxSeen  int
	delay    time.Duration
}

func (f *fakeClassifier) Classify(ctx context.Context, title, excerpt string) (Classification, error) {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	v, ok := f.verdicts[title]
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if !ok {
		return Classification{IsValid: true, Summary: title + " summary", InterestLevel: 50}, nil
	}
	if v.panic {
		panic("judge exploded")
	}
	return v.result, v.err
}

type fakeDuplicateJudge struct {
	indices []int
	err     error
	got     []Item
}

func (f *fakeDuplicateJudge) FindDuplicates(ctx context.Context, items []Item) ([]int, error) {
	f.got = items
	return f.indices, f.err
}
