// Package storage archives delivered digests on disk, in S3 and in
// PostgreSQL.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/deusflow/musive/internal/digest"
	"github.com/deusflow/musive/internal/news"
)

// DatedName returns "digest-YYYY-MM-DD.<ext>" for the digest's day in loc.
func DatedName(d news.Digest, loc *time.Location, ext string) string {
	t := d.GeneratedAt
	if loc != nil {
		t = t.In(loc)
	}
	return fmt.Sprintf("digest-%s.%s", t.Format("2006-01-02"), ext)
}

// renderFiles produces the JSON and HTML documents shared by the archives.
func renderFiles(d news.Digest, loc *time.Location) (jsonDoc, htmlDoc []byte, err error) {
	jsonDoc, err = json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal digest: %w", err)
	}
	htmlDoc, err = digest.RenderHTML(d, loc)
	if err != nil {
		return nil, nil, err
	}
	return jsonDoc, htmlDoc, nil
}

// FileArchive writes each digest as JSON and HTML into a directory. A
// later run on the same day overwrites that day's files.
type FileArchive struct {
	dir string
	loc *time.Location
	mu  sync.Mutex
}

func NewFileArchive(dir string, loc *time.Location) *FileArchive {
	return &FileArchive{dir: dir, loc: loc}
}

func (fa *FileArchive) Name() string { return "file" }

func (fa *FileArchive) Deliver(_ context.Context, d news.Digest) error {
	jsonDoc, htmlDoc, err := renderFiles(d, fa.loc)
	if err != nil {
		return err
	}

	fa.mu.Lock()
	defer fa.mu.Unlock()

	if err := os.MkdirAll(fa.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create archive dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(fa.dir, DatedName(d, fa.loc, "json")), jsonDoc, 0o644); err != nil {
		return fmt.Errorf("failed to write digest json: %w", err)
	}
	if err := os.WriteFile(filepath.Join(fa.dir, DatedName(d, fa.loc, "html")), htmlDoc, 0o644); err != nil {
		return fmt.Errorf("failed to write digest html: %w", err)
	}
	return nil
}

var _ digest.Sink = (*FileArchive)(nil)
