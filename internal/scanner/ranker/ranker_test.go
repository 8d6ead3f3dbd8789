package ranker

import "testing"

func TestRankOrdersByDensity(t *testing.T) {
	matches := []TextMatch{
		// 1 match in 9 windows.
		{TextID: "sparse", BodyLength: 10, PatternLength: 2, FirstIndex: 4, MatchCount: 1},
		// 3 matches in 3 windows.
		{TextID: "dense", BodyLength: 4, PatternLength: 2, FirstIndex: 0, MatchCount: 3},
	}
	ranked := Rank(matches, 0)
	if len(ranked) != 2 {
		t.Fatalf("got %d results, want 2", len(ranked))
	}
	if ranked[0].TextID != "dense" {
		t.Errorf("top result = %s, want dense", ranked[0].TextID)
	}
	if ranked[0].Score != 1 {
		t.Errorf("dense score = %v, want 1", ranked[0].Score)
	}
	if ranked[1].Score >= ranked[0].Score {
		t.Errorf("scores not descending: %v then %v", ranked[0].Score, ranked[1].Score)
	}
}

func TestRankTieBreaksByTextID(t *testing.T) {
	matches := []TextMatch{
		{TextID: "b", BodyLength: 5, PatternLength: 2, MatchCount: 1},
		{TextID: "a", BodyLength: 5, PatternLength: 2, MatchCount: 1},
	}
	ranked := Rank(matches, 0)
	if ranked[0].TextID != "a" || ranked[1].TextID != "b" {
		t.Errorf("tie-break order = [%s, %s], want [a, b]", ranked[0].TextID, ranked[1].TextID)
	}
}

func TestRankAppliesLimit(t *testing.T) {
	matches := make([]TextMatch, 5)
	for i := range matches {
		matches[i] = TextMatch{TextID: string(rune('a' + i)), BodyLength: 10, PatternLength: 2, MatchCount: i + 1}
	}
	ranked := Rank(matches, 2)
	if len(ranked) != 2 {
		t.Fatalf("got %d results, want 2", len(ranked))
	}
	if ranked[0].TextID != "e" {
		t.Errorf("top result = %s, want e (most matches)", ranked[0].TextID)
	}
}

func TestRankEmptyInput(t *testing.T) {
	ranked := Rank(nil, 10)
	if ranked == nil || len(ranked) != 0 {
		t.Errorf("Rank(nil) = %v, want empty non-nil slice", ranked)
	}
}

func TestRankPatternLongerThanBody(t *testing.T) {
	// Window count clamps to 1 instead of going non-positive.
	ranked := Rank([]TextMatch{{TextID: "short", BodyLength: 2, PatternLength: 5, MatchCount: 1}}, 0)
	if len(ranked) != 1 {
		t.Fatalf("got %d results, want 1", len(ranked))
	}
	if ranked[0].Score != 1 {
		t.Errorf("score = %v, want 1", ranked[0].Score)
	}
}
