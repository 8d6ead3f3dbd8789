// Package ranker orders matched texts by permutation-match density: the
// fraction of a text's windows that are permutations of the pattern.
package ranker

import (
	"math"
	"sort"
)

// TextMatch is the raw per-text outcome of a scan before ranking.
type TextMatch struct {
	TextID        string
	Title         string
	BodyLength    int
	PatternLength int
	FirstIndex    int
	Indices       []int
	MatchCount    int
}

// ScoredText is a ranked scan result.
type ScoredText struct {
	TextID     string  `json:"text_id"`
	Title      string  `json:"title"`
	Score      float64 `json:"score"`
	FirstIndex int     `json:"first_index"`
	Indices    []int   `json:"indices,omitempty"`
}

// Rank scores matches by density, sorts by score descending with text ID as
// the tie-break, and truncates to limit (0 = no limit).
func Rank(matches []TextMatch, limit int) []ScoredText {
	result := make([]ScoredText, 0, len(matches))
	for _, m := range matches {
		result = append(result, ScoredText{
			TextID:     m.TextID,
			Title:      m.Title,
			Score:      math.Round(density(m)*10000) / 10000,
			FirstIndex: m.FirstIndex,
			Indices:    m.Indices,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].TextID < result[j].TextID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// density is the ratio of matching windows to the number of windows the text
// offers for the pattern length. Modes that stop at the first match report a
// MatchCount of 1, which still favours shorter texts with an early match.
func density(m TextMatch) float64 {
	windows := m.BodyLength - m.PatternLength + 1
	if windows < 1 {
		windows = 1
	}
	count := m.MatchCount
	if count < 1 {
		count = 1
	}
	return float64(count) / float64(windows)
}
