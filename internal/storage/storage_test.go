package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/deusflow/musive/internal/news"
)

var seoul = time.FixedZone("KST", 9*3600)

func sampleDigest() news.Digest {
	return news.Digest{
		RunID: "3f1c",
		// 2026-10-19 in Seoul
		GeneratedAt: time.Date(2026, 10, 18, 23, 30, 0, 0, time.UTC),
		Collected:   7,
		Removed:     2,
		Items: []news.Item{
			{Source: "NME", Title: "Tour", Link: "https://nme.com/t", Summary: "투어", InterestLevel: 90, Published: time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)},
			{Source: "Variety Music", Title: "Album", Link: "https://variety.com/a", Summary: "앨범", Thumbnail: "https://img/a.jpg", InterestLevel: 60},
		},
	}
}

func TestDatedName(t *testing.T) {
	d := sampleDigest()
	if got := DatedName(d, seoul, "json"); got != "digest-2026-10-19.json" {
		t.Errorf("got %s", got)
	}
	if got := DatedName(d, nil, "html"); got != "digest-2026-10-18.html" {
		t.Errorf("got %s", got)
	}
}

func TestFileArchiveWritesBothDocuments(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "archive")
	fa := NewFileArchive(dir, seoul)
	d := sampleDigest()

	if err := fa.Deliver(context.Background(), d); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	page, err := os.ReadFile(filepath.Join(dir, "digest-2026-10-19.html"))
	if err != nil {
		t.Fatalf("html not written: %v", err)
	}
	if !strings.Contains(string(page), "Musive Briefing") {
		t.Error("html archive should contain the briefing page")
	}

	raw, err := os.ReadFile(filepath.Join(dir, "digest-2026-10-19.json"))
	if err != nil {
		t.Fatalf("json not written: %v", err)
	}
	var loaded news.Digest
	if err := json.Unmarshal(raw, &loaded); err != nil {
		t.Fatalf("invalid json archive: %v", err)
	}
	if loaded.RunID != d.RunID || len(loaded.Items) != 2 || loaded.Items[0].Title != "Tour" {
		t.Errorf("unexpected digest: %+v", loaded)
	}
}

type fakePutter struct {
	objects map[string]string
	types   map[string]string
	err     error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	key := *in.Bucket + "/" + *in.Key
	f.objects[key] = string(body)
	f.types[key] = *in.ContentType
	return &s3.PutObjectOutput{}, nil
}

func TestS3ArchiveUploadsBothDocuments(t *testing.T) {
	putter := &fakePutter{objects: map[string]string{}, types: map[string]string{}}
	a := newS3Archive(putter, S3Config{Bucket: "musive", Prefix: "digests"}, seoul)

	if err := a.Deliver(context.Background(), sampleDigest()); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	jsonKey := "musive/digests/digest-2026-10-19.json"
	if !strings.Contains(putter.objects[jsonKey], `"runId": "3f1c"`) {
		t.Errorf("json object missing or wrong: %q", putter.objects[jsonKey])
	}
	if putter.types[jsonKey] != "application/json" {
		t.Errorf("unexpected content type %q", putter.types[jsonKey])
	}
	if _, ok := putter.objects["musive/digests/digest-2026-10-19.html"]; !ok {
		t.Error("html object not uploaded")
	}
}

func TestS3ArchiveError(t *testing.T) {
	a := newS3Archive(&fakePutter{err: errors.New("denied")}, S3Config{Bucket: "b"}, nil)
	if err := a.Deliver(context.Background(), sampleDigest()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewRunRecord(t *testing.T) {
	run := newRunRecord(sampleDigest())

	if run.ID != "3f1c" || run.Collected != 7 || run.Removed != 2 || run.Size != 2 {
		t.Errorf("unexpected run: %+v", run)
	}
	if len(run.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(run.Items))
	}
	first := run.Items[0]
	if first.Rank != 1 || first.RunID != "3f1c" || first.Source != "NME" || first.InterestLevel != 90 {
		t.Errorf("unexpected first item: %+v", first)
	}
	if run.Items[1].Rank != 2 || run.Items[1].Thumbnail != "https://img/a.jpg" {
		t.Errorf("unexpected second item: %+v", run.Items[1])
	}
}

func TestRecentRunsQuery(t *testing.T) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=musive dbname=musive sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	if err != nil {
		t.Fatalf("open dry-run db: %v", err)
	}

	var runs []DigestRun
	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return recentRuns(tx, 3).Find(&runs)
	})

	for _, want := range []string{`FROM "digest_runs"`, "ORDER BY generated_at DESC", "LIMIT 3"} {
		if !strings.Contains(sql, want) {
			t.Errorf("query %q missing %q", sql, want)
		}
	}
}
