package judge

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/deusflow/musive/internal/news"
)

type fakeEmbedder struct {
	vectors [][]float32
	err     error
}

func (f fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors[:len(texts)], nil
}

func TestEmbeddingDuplicatesKeepsBestOfGroup(t *testing.T) {
	items := []news.Item{
		{Title: "Tour A", InterestLevel: 90},
		{Title: "Tour A again", InterestLevel: 50, Thumbnail: "https://img/a.jpg"},
		{Title: "Album B", InterestLevel: 70},
		{Title: "Tour A third", InterestLevel: 95},
	}
	emb := fakeEmbedder{vectors: [][]float32{
		{1, 0, 0},
		{0.99, 0.05, 0},
		{0, 1, 0},
		{0.98, 0.02, 0.01},
	}}

	d := NewEmbeddingDuplicates(emb, 0.9)
	got, err := d.FindDuplicates(context.Background(), items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// item 1 has the only thumbnail in the tour group
	if want := []int{0, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEmbeddingDuplicatesPrefersInterestWithoutThumbnails(t *testing.T) {
	items := []news.Item{
		{Title: "x", InterestLevel: 40},
		{Title: "y", InterestLevel: 80},
	}
	emb := fakeEmbedder{vectors: [][]float32{{1, 1}, {1, 1}}}

	got, err := NewEmbeddingDuplicates(emb, 0.9).FindDuplicates(context.Background(), items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []int{0}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEmbeddingDuplicatesErrors(t *testing.T) {
	items := []news.Item{{Title: "a"}, {Title: "b"}}

	_, err := NewEmbeddingDuplicates(fakeEmbedder{err: errors.New("boom")}, 0.9).FindDuplicates(context.Background(), items)
	if err == nil {
		t.Error("expected embedder error")
	}

	short := fakeEmbedder{vectors: [][]float32{{1}}}
	if _, err := NewEmbeddingDuplicates(short, 0.9).FindDuplicates(context.Background(), items[:1]); err != nil {
		t.Errorf("single item should not fail: %v", err)
	}
}

func TestCosine(t *testing.T) {
	if got := cosine([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal vectors: got %v", got)
	}
	if got := cosine([]float32{2, 0}, []float32{5, 0}); got < 0.999 {
		t.Errorf("parallel vectors: got %v", got)
	}
	if got := cosine([]float32{0, 0}, []float32{1, 0}); got != 0 {
		t.Errorf("zero vector: got %v", got)
	}
	if got := cosine([]float32{1}, []float32{1, 0}); got != 0 {
		t.Errorf("length mismatch: got %v", got)
	}
}

func TestCohereEmbedderBatchesRequests(t *testing.T) {
	var batches []int
	c := &CohereEmbedder{embed: func(_ context.Context, texts []string) ([][]float32, error) {
		batches = append(batches, len(texts))
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{float32(len(texts[i]))}
		}
		return out, nil
	}}

	texts := make([]string, 100)
	for i := range texts {
		texts[i] = strings.Repeat("x", i+1)
	}

	vectors, err := c.EmbedTexts(context.Background(), texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []int{MaxEmbedBatch, 4}; !reflect.DeepEqual(batches, want) {
		t.Errorf("batches %v, want %v", batches, want)
	}
	if len(vectors) != 100 {
		t.Fatalf("expected 100 vectors, got %d", len(vectors))
	}
	for i, v := range vectors {
		if v[0] != float32(i+1) {
			t.Fatalf("vector %d out of order: %v", i, v)
		}
	}
}

func TestCohereEmbedderBatchCountMismatch(t *testing.T) {
	c := &CohereEmbedder{embed: func(_ context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	}}
	if _, err := c.EmbedTexts(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected mismatch error")
	}
}
