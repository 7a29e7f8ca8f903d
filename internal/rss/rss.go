package rss

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"
)

// Source is one named feed endpoint in the registry.
type Source struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}

// SourcesConfig is YAML config structure
// sources:
//   - name: Billboard
//     url: https://...
type SourcesConfig struct {
	Sources []Source `yaml:"sources"`
}

// DefaultSources is the built-in registry used when no file is configured.
func DefaultSources() []Source {
	return []Source{
		{Name: "Billboard", URL: "https://www.billboard.com/feed/"},
		{Name: "Rolling Stone", URL: "https://www.rollingstone.com/music/music-news/feed/"},
		{Name: "NME", URL: "https://www.nme.com/feed"},
		{Name: "Pitchfork", URL: "https://pitchfork.com/feed/feed-news/rss"},
		{Name: "Variety Music", URL: "https://variety.com/c/music/feed/"},
	}
}

// LoadSources reads the source registry from YAML. An empty path, a
// missing file or a file without sources yields DefaultSources.
func LoadSources(path string) ([]Source, error) {
	if path == "" {
		return DefaultSources(), nil
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultSources(), nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg SourcesConfig
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if len(cfg.Sources) == 0 {
		return DefaultSources(), nil
	}

	for i, s := range cfg.Sources {
		if s.Name == "" || s.URL == "" {
			return nil, fmt.Errorf("source %d in %s needs both name and url", i, path)
		}
	}
	return cfg.Sources, nil
}

// Fetcher downloads and parses feeds.
type Fetcher struct {
	parser  *gofeed.Parser
	timeout time.Duration
}

func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	parser := gofeed.NewParser()
	if userAgent != "" {
		parser.UserAgent = userAgent
	}
	parser.Client = &http.Client{Timeout: timeout}
	return &Fetcher{parser: parser, timeout: timeout}
}

// Fetch parses the feed at url. The per-request timeout applies on top of
// any deadline carried by ctx.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*gofeed.Feed, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	feed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("error parsing RSS %s: %w", url, err)
	}
	return feed, nil
}
