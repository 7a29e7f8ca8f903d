// Package extract turns raw feed entries into classification candidates.
package extract

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

const (
	DefaultMaxAge       = 24 * time.Hour
	DefaultMaxPerSource = 20
	DefaultExcerptLimit = 600
)

// Candidate is a feed entry normalized but not yet judged.
type Candidate struct {
	Title     string
	Link      string
	Published time.Time
	Excerpt   string
	Thumbnail string
}

// Extractor selects recent entries and normalizes them.
type Extractor struct {
	MaxAge       time.Duration
	MaxPerSource int
	ExcerptLimit int
	Now          func() time.Time
}

func New(maxAge time.Duration, maxPerSource, excerptLimit int) *Extractor {
	return &Extractor{
		MaxAge:       maxAge,
		MaxPerSource: maxPerSource,
		ExcerptLimit: excerptLimit,
		Now:          time.Now,
	}
}

// Candidates keeps entries published strictly after now-MaxAge, caps them
// at MaxPerSource in feed order and normalizes each one.
func (e *Extractor) Candidates(items []*gofeed.Item) []Candidate {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	cutoff := now().Add(-e.maxAge())

	out := make([]Candidate, 0, e.maxPerSource())
	for _, item := range items {
		if len(out) >= e.maxPerSource() {
			break
		}
		if item == nil || item.PublishedParsed == nil {
			continue
		}
		if !item.PublishedParsed.After(cutoff) {
			continue
		}
		out = append(out, e.candidate(item))
	}
	return out
}

func (e *Extractor) candidate(item *gofeed.Item) Candidate {
	return Candidate{
		Title:     item.Title,
		Link:      item.Link,
		Published: *item.PublishedParsed,
		Excerpt:   Excerpt(richestContent(item), e.excerptLimit()),
		Thumbnail: Thumbnail(item),
	}
}

func (e *Extractor) maxAge() time.Duration {
	if e.MaxAge <= 0 {
		return DefaultMaxAge
	}
	return e.MaxAge
}

func (e *Extractor) maxPerSource() int {
	if e.MaxPerSource <= 0 {
		return DefaultMaxPerSource
	}
	return e.MaxPerSource
}

func (e *Extractor) excerptLimit() int {
	if e.ExcerptLimit <= 0 {
		return DefaultExcerptLimit
	}
	return e.ExcerptLimit
}

// richestContent prefers content:encoded, then the description/summary.
func richestContent(item *gofeed.Item) string {
	if strings.TrimSpace(item.Content) != "" {
		return item.Content
	}
	return item.Description
}

// Thumbnail resolves the entry image: media:content, then the first
// enclosure, then the first <img> of the embedded HTML. The query string
// is dropped.
func Thumbnail(item *gofeed.Item) string {
	thumb := mediaContentURL(item)
	if thumb == "" {
		for _, enc := range item.Enclosures {
			if enc != nil && enc.URL != "" {
				thumb = enc.URL
				break
			}
		}
	}
	if thumb == "" && item.Content != "" {
		thumb = firstImage(item.Content)
	}
	if i := strings.Index(thumb, "?"); i >= 0 {
		thumb = thumb[:i]
	}
	return thumb
}

func mediaContentURL(item *gofeed.Item) string {
	media, ok := item.Extensions["media"]
	if !ok {
		return ""
	}
	contents := media["content"]
	if len(contents) == 0 {
		return ""
	}
	return contents[0].Attrs["url"]
}

func firstImage(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	img := doc.Find("img").First()
	if src, ok := img.Attr("src"); ok && src != "" {
		return src
	}
	if src, ok := img.Attr("data-lazy-src"); ok {
		return src
	}
	return ""
}

// Excerpt strips markup, collapses whitespace and truncates to limit
// characters.
func Excerpt(html string, limit int) string {
	text := html
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		text = doc.Text()
	}
	text = strings.Join(strings.Fields(text), " ")

	if limit > 0 && utf8.RuneCountInString(text) > limit {
		runes := []rune(text)
		text = string(runes[:limit])
	}
	return text
}
