package search

import (
	"testing"

	"imgbot/internal/storage"
)

func TestTokenSortRatio(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{name: "identical", a: "team offsite", b: "team offsite", want: 100},
		{name: "case insensitive", a: "TEAM Offsite", b: "team offsite", want: 100},
		{name: "token order ignored", a: "offsite team", b: "team offsite", want: 100},
		{name: "both empty", a: "", b: "", want: 100},
		{name: "one empty", a: "team", b: "", want: 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := TokenSortRatio(tt.a, tt.b); got != tt.want {
				t.Fatalf("TokenSortRatio(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}

	// Near match scores high but below exact.
	got := TokenSortRatio("team ofsite", "team offsite")
	if got <= ScoreFloor || got >= 100 {
		t.Fatalf("near match score = %d, want within (%d, 100)", got, ScoreFloor)
	}

	// Unrelated strings fall under the floor.
	if got := TokenSortRatio("quarterly revenue graph", "cat"); got >= ScoreFloor {
		t.Fatalf("unrelated score = %d, want < %d", got, ScoreFloor)
	}
}

func TestLevenshtein(t *testing.T) {
	t.Parallel()
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"abc", "abc", 0},
	}
	for _, tt := range tests {
		if got := levenshtein([]rune(tt.a), []rune(tt.b)); got != tt.want {
			t.Fatalf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestBestMatches(t *testing.T) {
	t.Parallel()
	rows := []storage.ImageRecord{
		{ID: 1, IndexText: "sprint planning whiteboard"},
		{ID: 2, IndexText: "team offsite beach"},
		{ID: 3, IndexText: "offsite team beach photo"},
	}

	got := BestMatches(rows, "team offsite beach", 2)
	if len(got) != 2 {
		t.Fatalf("got %d matches, want 2", len(got))
	}
	if got[0].Record.ID != 2 || got[0].Score != 100 {
		t.Fatalf("best = #%d score %d, want #2 score 100", got[0].Record.ID, got[0].Score)
	}
	if got[1].Record.ID != 3 {
		t.Fatalf("second = #%d, want #3", got[1].Record.ID)
	}

	if got := BestMatches(rows, "completely unrelated gibberish zzz", 5); len(got) != 0 {
		t.Fatalf("garbage query matched %d rows", len(got))
	}

	if got := BestMatches(nil, "anything", 3); len(got) != 0 {
		t.Fatalf("empty index matched %d rows", len(got))
	}

	// limit <= 0 still returns the single best row.
	if got := BestMatches(rows, "team offsite beach", 0); len(got) != 1 {
		t.Fatalf("limit 0 returned %d rows", len(got))
	}
}
