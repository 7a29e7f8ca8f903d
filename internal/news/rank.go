package news

import "sort"

// Rank orders items by interest level, then recency, both descending, and
// keeps the first limit. The input slice is not modified.
func Rank(items []Item, limit int) []Item {
	if limit <= 0 {
		limit = DefaultDigestSize
	}

	sorted := make([]Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].InterestLevel != sorted[j].InterestLevel {
			return sorted[i].InterestLevel > sorted[j].InterestLevel
		}
		return sorted[i].Published.After(sorted[j].Published)
	})

	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}
