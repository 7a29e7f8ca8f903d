package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/deusflow/musive/internal/digest"
	"github.com/deusflow/musive/internal/news"
)

// DigestRun is one delivered digest.
type DigestRun struct {
	ID          string       `gorm:"primaryKey;size:40" json:"id"`
	GeneratedAt time.Time    `gorm:"index" json:"generatedAt"`
	Collected   int          `json:"collected"`
	Removed     int          `json:"removed"`
	Size        int          `json:"size"`
	Items       []DigestItem `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"items"`

	CreatedAt time.Time `json:"createdAt"`
}

// DigestItem is one ranked entry of a run; Rank starts at 1.
type DigestItem struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	RunID         string    `gorm:"size:40;index" json:"runId"`
	Rank          int       `json:"rank"`
	Source        string    `gorm:"size:64;index" json:"source"`
	Title         string    `gorm:"size:512" json:"title"`
	Link          string    `gorm:"size:1024" json:"link"`
	Summary       string    `gorm:"type:text" json:"summary"`
	Thumbnail     string    `gorm:"size:1024" json:"thumbnail"`
	PublishedAt   time.Time `gorm:"index" json:"publishedAt"`
	InterestLevel int       `gorm:"index" json:"interestLevel"`
}

// Postgres stores digests in digest_runs and digest_items.
type Postgres struct {
	DB *gorm.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&DigestRun{}, &DigestItem{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Postgres{DB: db}, nil
}

func (p *Postgres) Name() string { return "postgres" }

func (p *Postgres) Deliver(ctx context.Context, d news.Digest) error {
	run := newRunRecord(d)
	if err := p.DB.WithContext(ctx).Create(&run).Error; err != nil {
		return fmt.Errorf("failed to save digest %s: %w", d.RunID, err)
	}
	return nil
}

// Recent returns the latest runs with their items, newest first.
func (p *Postgres) Recent(ctx context.Context, limit int) ([]DigestRun, error) {
	var runs []DigestRun
	err := recentRuns(p.DB.WithContext(ctx), limit).Find(&runs).Error
	return runs, err
}

func recentRuns(db *gorm.DB, limit int) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("rank ASC") }).
		Order("generated_at DESC").
		Limit(limit)
}

func (p *Postgres) Close() error {
	sqlDB, err := p.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func newRunRecord(d news.Digest) DigestRun {
	run := DigestRun{
		ID:          d.RunID,
		GeneratedAt: d.GeneratedAt,
		Collected:   d.Collected,
		Removed:     d.Removed,
		Size:        len(d.Items),
		Items:       make([]DigestItem, 0, len(d.Items)),
	}
	for i, item := range d.Items {
		run.Items = append(run.Items, DigestItem{
			RunID:         d.RunID,
			Rank:          i + 1,
			Source:        item.Source,
			Title:         item.Title,
			Link:          item.Link,
			Summary:       item.Summary,
			Thumbnail:     item.Thumbnail,
			PublishedAt:   item.Published,
			InterestLevel: item.InterestLevel,
		})
	}
	return run
}

var _ digest.Sink = (*Postgres)(nil)
