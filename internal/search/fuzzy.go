// Package search scores indexed images against a free-text query.
//
// Matching is token-order-insensitive: both sides are lowercased, tokenized,
// sorted and rejoined before an edit-distance ratio is computed. Scores run
// 0..100; anything below the floor is treated as garbage and dropped.
package search

import (
	"sort"
	"strings"

	"imgbot/internal/storage"
)

// ScoreFloor is the minimum score for a usable match.
const ScoreFloor = 50

// Match pairs an image record with its similarity score.
type Match struct {
	Record storage.ImageRecord
	Score  int
}

// BestMatches returns up to limit records whose index text scores at or above
// the floor, best first. Ties keep the earlier record first.
func BestMatches(rows []storage.ImageRecord, query string, limit int) []Match {
	if limit <= 0 {
		limit = 1
	}
	scored := make([]Match, 0, len(rows))
	for _, row := range rows {
		score := TokenSortRatio(query, row.IndexText)
		if score >= ScoreFloor {
			scored = append(scored, Match{Record: row, Score: score})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// TokenSortRatio computes a 0..100 similarity between two strings, ignoring
// token order and case.
func TokenSortRatio(a, b string) int {
	return ratio(sortTokens(a), sortTokens(b))
}

func sortTokens(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	sort.Strings(fields)
	return strings.Join(fields, " ")
}

// ratio converts edit distance into a 0..100 score.
func ratio(a, b string) int {
	if a == "" && b == "" {
		return 100
	}
	ra := []rune(a)
	rb := []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 100
	}
	d := levenshtein(ra, rb)
	return (100*(longest-d) + longest/2) / longest
}

// levenshtein is the classic two-row edit distance.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = minInt(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func minInt(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
