package judge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"

	"github.com/deusflow/musive/internal/news"
)

// MaxEmbedBatch is the most texts the Cohere embed endpoint accepts per
// request.
const MaxEmbedBatch = 96

// Embedder returns one vector per input text.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

type embedFunc func(ctx context.Context, texts []string) ([][]float32, error)

// CohereEmbedder calls the Cohere v2 embed endpoint in batches of
// MaxEmbedBatch texts.
type CohereEmbedder struct {
	client *cohereclient.Client
	model  string
	embed  embedFunc
}

func NewCohereEmbedder(apiKey, model string) *CohereEmbedder {
	if model == "" {
		model = "embed-english-v3.0"
	}
	httpClient := &http.Client{Timeout: 60 * time.Second}
	client := cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(httpClient),
	)
	c := &CohereEmbedder{client: client, model: model}
	c.embed = c.embedBatch
	return c
}

func (c *CohereEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += MaxEmbedBatch {
		end := min(start+MaxEmbedBatch, len(texts))
		vectors, err := c.embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("cohere returned %d embeddings for %d texts", len(vectors), end-start)
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (c *CohereEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.client.V2.Embed(
		ctx,
		&cohere.V2EmbedRequest{
			Texts:          texts,
			Model:          c.model,
			InputType:      cohere.EmbedInputTypeSearchDocument,
			EmbeddingTypes: []cohere.EmbeddingType{cohere.EmbeddingTypeFloat},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("cohere embed error: %w", err)
	}
	if resp == nil || resp.Embeddings == nil || resp.Embeddings.Float == nil {
		return nil, errors.New("cohere embed returned no float embeddings")
	}

	out := make([][]float32, len(resp.Embeddings.Float))
	for i, vec := range resp.Embeddings.Float {
		fv := make([]float32, len(vec))
		for j, v := range vec {
			fv[j] = float32(v)
		}
		out[i] = fv
	}
	return out, nil
}

// EmbeddingDuplicates treats items whose title+summary embeddings are at
// least threshold cosine-similar as coverage of the same event.
type EmbeddingDuplicates struct {
	embedder  Embedder
	threshold float64
}

func NewEmbeddingDuplicates(embedder Embedder, threshold float64) *EmbeddingDuplicates {
	return &EmbeddingDuplicates{embedder: embedder, threshold: threshold}
}

func (d *EmbeddingDuplicates) FindDuplicates(ctx context.Context, items []news.Item) ([]int, error) {
	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Title + ". " + item.Summary
	}

	vectors, err := d.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(items) {
		return nil, fmt.Errorf("embedding count mismatch: got %d for %d items", len(vectors), len(items))
	}

	parent := make([]int, len(items))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}

	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			if cosine(vectors[i], vectors[j]) >= d.threshold {
				parent[find(j)] = find(i)
			}
		}
	}

	groups := make(map[int][]int)
	for i := range items {
		root := find(i)
		groups[root] = append(groups[root], i)
	}

	var remove []int
	for _, members := range groups {
		if len(members) < 2 {
			continue
		}
		keep := members[0]
		for _, m := range members[1:] {
			if preferSurvivor(items[m], items[keep]) {
				keep = m
			}
		}
		for _, m := range members {
			if m != keep {
				remove = append(remove, m)
			}
		}
	}
	sort.Ints(remove)
	return remove, nil
}

// preferSurvivor reports whether a should be kept over b: an item with a
// thumbnail wins, then the higher interest level.
func preferSurvivor(a, b news.Item) bool {
	if (a.Thumbnail != "") != (b.Thumbnail != "") {
		return a.Thumbnail != ""
	}
	return a.InterestLevel > b.InterestLevel
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

var _ news.DuplicateJudge = (*EmbeddingDuplicates)(nil)
