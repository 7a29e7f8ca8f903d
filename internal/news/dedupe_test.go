package news

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func sampleItems(titles ...string) []Item {
	items := make([]Item, len(titles))
	for i, title := range titles {
		items[i] = Item{Source: "NME", Title: title, Link: "https://example.com/" + title, Published: testNow.Add(-time.Duration(i) * time.Hour)}
	}
	return items
}

func TestDedupeJudgeUnreachable(t *testing.T) {
	items := sampleItems("a", "b", "c")
	judge := &fakeDuplicateJudge{err: errors.New("connection refused")}

	got := NewDeduplicator(judge, nil).Dedupe(context.Background(), items)
	if !reflect.DeepEqual(got, items) {
		t.Fatalf("expected input unchanged, got %+v", got)
	}
}

func TestDedupeRemovesReportedIndex(t *testing.T) {
	items := sampleItems("a", "b", "c")
	judge := &fakeDuplicateJudge{indices: []int{1}}

	got := NewDeduplicator(judge, nil).Dedupe(context.Background(), items)
	if len(got) != 2 || got[0].Title != "a" || got[1].Title != "c" {
		t.Fatalf("unexpected result: %+v", got)
	}
	if len(judge.got) != 3 {
		t.Errorf("judge saw %d items, want the full set", len(judge.got))
	}
}

func TestDedupeIgnoresInvalidIndices(t *testing.T) {
	items := sampleItems("a", "b", "c")
	judge := &fakeDuplicateJudge{indices: []int{-1, 7, 2, 2}}

	got := NewDeduplicator(judge, nil).Dedupe(context.Background(), items)
	if len(got) != 2 || got[0].Title != "a" || got[1].Title != "b" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestDedupeEmptyIndexList(t *testing.T) {
	items := sampleItems("a", "b")
	got := NewDeduplicator(&fakeDuplicateJudge{indices: []int{}}, nil).Dedupe(context.Background(), items)
	if !reflect.DeepEqual(got, items) {
		t.Fatalf("expected unchanged items, got %+v", got)
	}
}

func TestDedupeSkipsJudgeForSingleItem(t *testing.T) {
	judge := &fakeDuplicateJudge{indices: []int{0}}
	items := sampleItems("only")

	got := NewDeduplicator(judge, nil).Dedupe(context.Background(), items)
	if len(got) != 1 || judge.got != nil {
		t.Fatalf("single item should bypass the judge, got %+v", got)
	}
}
