package annotations

import (
	"sort"
	"strings"
)

const topCount = 10

// TokenCount pairs one tag or label token with its occurrence count.
type TokenCount struct {
	Token string `json:"token"`
	Count int    `json:"count"`
}

// Statistics is the aggregate report over the whole store.
type Statistics struct {
	TotalAnnotations int          `json:"total_annotations"`
	TotalImages      int          `json:"total_images"`
	MostCommonTags   []TokenCount `json:"most_common_tags"`
	MostCommonLabels []TokenCount `json:"most_common_labels"`
}

// Statistics reads the whole store once and derives row and image counts
// plus the ten most common tags and labels. Tokens are the comma-split,
// trimmed, non-empty parts of each field, counted case-sensitively.
// Ordering is by descending count, ties broken by first appearance in
// file order.
func (s *Store) Statistics() (*Statistics, error) {
	all, err := s.ReadAll()
	if err != nil {
		return nil, err
	}

	images := make(map[string]struct{}, len(all))
	tags := newTokenCounter()
	labels := newTokenCounter()
	for _, rec := range all {
		images[rec.ImageName] = struct{}{}
		tags.addAll(rec.Tags)
		labels.addAll(rec.Labels)
	}

	return &Statistics{
		TotalAnnotations: len(all),
		TotalImages:      len(images),
		MostCommonTags:   tags.top(topCount),
		MostCommonLabels: labels.top(topCount),
	}, nil
}

// tokenCounter counts tokens while remembering the order in which each
// token was first seen, for deterministic tie-breaking.
type tokenCounter struct {
	counts    map[string]int
	firstSeen map[string]int
	next      int
}

func newTokenCounter() *tokenCounter {
	return &tokenCounter{
		counts:    make(map[string]int),
		firstSeen: make(map[string]int),
	}
}

func (tc *tokenCounter) addAll(field string) {
	if field == "" {
		return
	}
	for _, raw := range strings.Split(field, ",") {
		token := strings.TrimSpace(raw)
		if token == "" {
			continue
		}
		if _, ok := tc.counts[token]; !ok {
			tc.firstSeen[token] = tc.next
			tc.next++
		}
		tc.counts[token]++
	}
}

func (tc *tokenCounter) top(n int) []TokenCount {
	result := make([]TokenCount, 0, len(tc.counts))
	for token, count := range tc.counts {
		result = append(result, TokenCount{Token: token, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return tc.firstSeen[result[i].Token] < tc.firstSeen[result[j].Token]
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
