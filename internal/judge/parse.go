// Package judge adapts external content-judgment services to the news
// Classifier and DuplicateJudge contracts.
package judge

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/deusflow/musive/internal/news"
)

var ErrMissingIndices = errors.New("judge reply has no indicesToRemove")

// ParseClassification decodes {isValid, summary, interestLevel}. Invalid
// JSON is an error; a rejected verdict carries no summary or level.
func ParseClassification(raw string) (news.Classification, error) {
	var reply struct {
		IsValid       *bool    `json:"isValid"`
		Summary       string   `json:"summary"`
		InterestLevel *float64 `json:"interestLevel"`
	}
	if err := json.Unmarshal([]byte(stripFence(raw)), &reply); err != nil {
		return news.Rejected, fmt.Errorf("malformed classifier reply: %w", err)
	}

	if reply.IsValid == nil || !*reply.IsValid {
		return news.Rejected, nil
	}

	level := 0
	if reply.InterestLevel != nil {
		level = int(math.Round(clamp(*reply.InterestLevel, 0, 100)))
	}
	return news.Classification{
		IsValid:       true,
		Summary:       strings.TrimSpace(reply.Summary),
		InterestLevel: level,
	}, nil
}

// ParseIndices decodes {"indicesToRemove": [...]}. A reply without the key
// is an error so the caller can fall back to keeping everything.
// Non-integral values are skipped.
func ParseIndices(raw string) ([]int, error) {
	var reply struct {
		IndicesToRemove *[]float64 `json:"indicesToRemove"`
	}
	if err := json.Unmarshal([]byte(stripFence(raw)), &reply); err != nil {
		return nil, fmt.Errorf("malformed dedup reply: %w", err)
	}
	if reply.IndicesToRemove == nil {
		return nil, ErrMissingIndices
	}

	indices := make([]int, 0, len(*reply.IndicesToRemove))
	for _, v := range *reply.IndicesToRemove {
		if v != math.Trunc(v) {
			continue
		}
		indices = append(indices, int(v))
	}
	return indices, nil
}

// stripFence removes a ```json fence some models wrap around replies.
func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
