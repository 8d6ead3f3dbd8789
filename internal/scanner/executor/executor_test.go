package executor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/permscan/permscan/internal/corpus"
	"github.com/permscan/permscan/internal/match"
	"github.com/permscan/permscan/pkg/config"
	apperrors "github.com/permscan/permscan/pkg/errors"
)

func testConfig() config.ScanConfig {
	return config.ScanConfig{
		Alphabet:            "abcdefghijklmnopqrstuvwxyz",
		MaxPatternLength:    64,
		DefaultLimit:        10,
		MaxResults:          100,
		MaxMatchesPerText:   1000,
		TimeoutPerPartition: 2 * time.Second,
	}
}

func newTestExecutor(t *testing.T, texts ...corpus.Text) *Executor {
	t.Helper()
	store, err := corpus.NewStore(4)
	if err != nil {
		t.Fatal(err)
	}
	for _, text := range texts {
		store.Add(text)
	}
	engine := match.NewEngine(match.Lowercase())
	return New(store, engine, testConfig())
}

func TestExecuteModeAll(t *testing.T) {
	e := newTestExecutor(t,
		corpus.Text{ID: "t1", Title: "classic", Body: "cbaebabacd"},
		corpus.Text{ID: "t2", Title: "none", Body: "zzzz"},
		corpus.Text{ID: "t3", Title: "overlap", Body: "abab"},
	)

	result, err := e.Execute(context.Background(), Query{Pattern: "abc", Mode: ModeAll, Limit: 10})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.TotalHits != 1 {
		t.Fatalf("TotalHits = %d, want 1", result.TotalHits)
	}
	if result.TextsScanned != 3 {
		t.Errorf("TextsScanned = %d, want 3", result.TextsScanned)
	}
	got := result.Results[0]
	if got.TextID != "t1" {
		t.Fatalf("matched text = %s, want t1", got.TextID)
	}
	if len(got.Indices) != 2 || got.Indices[0] != 0 || got.Indices[1] != 6 {
		t.Errorf("indices = %v, want [0 6]", got.Indices)
	}
	if got.FirstIndex != 0 {
		t.Errorf("FirstIndex = %d, want 0", got.FirstIndex)
	}
}

func TestExecuteModeExistsAndFirst(t *testing.T) {
	e := newTestExecutor(t,
		corpus.Text{ID: "t1", Body: "eidbaooo"},
		corpus.Text{ID: "t2", Body: "eidboaoo"},
	)

	result, err := e.Execute(context.Background(), Query{Pattern: "ab", Mode: ModeExists, Limit: 10})
	if err != nil {
		t.Fatalf("Execute exists: %v", err)
	}
	if result.TotalHits != 1 || result.Results[0].TextID != "t1" {
		t.Errorf("exists mode: hits = %d, results = %v", result.TotalHits, result.Results)
	}

	result, err = e.Execute(context.Background(), Query{Pattern: "ab", Mode: ModeFirst, Limit: 10})
	if err != nil {
		t.Fatalf("Execute first: %v", err)
	}
	if result.TotalHits != 1 {
		t.Fatalf("first mode: hits = %d, want 1", result.TotalHits)
	}
	if result.Results[0].FirstIndex != 1 {
		t.Errorf("FirstIndex = %d, want 1", result.Results[0].FirstIndex)
	}
}

func TestExecuteRejectsInvalidSymbol(t *testing.T) {
	e := newTestExecutor(t, corpus.Text{ID: "t1", Body: "abc"})

	_, err := e.Execute(context.Background(), Query{Pattern: "a1c", Mode: ModeAll, Limit: 10})
	if !errors.Is(err, apperrors.ErrInvalidSymbol) {
		t.Errorf("err = %v, want ErrInvalidSymbol", err)
	}
}

func TestExecuteRejectsLongPattern(t *testing.T) {
	e := newTestExecutor(t, corpus.Text{ID: "t1", Body: "abc"})

	_, err := e.Execute(context.Background(), Query{Pattern: strings.Repeat("a", 65), Mode: ModeAll, Limit: 10})
	if !errors.Is(err, apperrors.ErrPatternTooLong) {
		t.Errorf("err = %v, want ErrPatternTooLong", err)
	}
}

func TestExecuteCapsMatchesPerText(t *testing.T) {
	store, err := corpus.NewStore(2)
	if err != nil {
		t.Fatal(err)
	}
	store.Add(corpus.Text{ID: "t1", Body: strings.Repeat("a", 50)})
	cfg := testConfig()
	cfg.MaxMatchesPerText = 5
	e := New(store, match.NewEngine(match.Lowercase()), cfg)

	result, err := e.Execute(context.Background(), Query{Pattern: "aa", Mode: ModeAll, Limit: 10})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(result.Results[0].Indices) != 5 {
		t.Errorf("indices len = %d, want capped at 5", len(result.Results[0].Indices))
	}
}

func TestExecuteRanksDenserTextsFirst(t *testing.T) {
	e := newTestExecutor(t,
		corpus.Text{ID: "dense", Body: "abab"},
		corpus.Text{ID: "sparse", Body: "abzzzzzzzz"},
	)

	result, err := e.Execute(context.Background(), Query{Pattern: "ab", Mode: ModeAll, Limit: 10})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.TotalHits != 2 {
		t.Fatalf("TotalHits = %d, want 2", result.TotalHits)
	}
	if result.Results[0].TextID != "dense" {
		t.Errorf("top result = %s, want dense", result.Results[0].TextID)
	}
}

func TestExecuteEmptyCorpus(t *testing.T) {
	e := newTestExecutor(t)

	result, err := e.Execute(context.Background(), Query{Pattern: "abc", Mode: ModeAll, Limit: 10})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.TotalHits != 0 || len(result.Results) != 0 {
		t.Errorf("empty corpus: hits = %d, results = %v", result.TotalHits, result.Results)
	}
}

func TestExecuteLimitTruncates(t *testing.T) {
	texts := make([]corpus.Text, 6)
	for i := range texts {
		texts[i] = corpus.Text{ID: string(rune('a' + i)), Body: "xaby"}
	}
	e := newTestExecutor(t, texts...)

	result, err := e.Execute(context.Background(), Query{Pattern: "ab", Mode: ModeAll, Limit: 3})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.TotalHits != 6 {
		t.Errorf("TotalHits = %d, want 6", result.TotalHits)
	}
	if len(result.Results) != 3 {
		t.Errorf("returned %d results, want 3", len(result.Results))
	}
}

func TestParseMode(t *testing.T) {
	cases := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"exists", ModeExists, false},
		{"first", ModeFirst, false},
		{"all", ModeAll, false},
		{"", ModeAll, false},
		{"fuzzy", "", true},
	}
	for _, tc := range cases {
		got, err := ParseMode(tc.in)
		if tc.wantErr {
			if !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Errorf("ParseMode(%q): err = %v, want ErrInvalidInput", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseMode(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
	}
}
