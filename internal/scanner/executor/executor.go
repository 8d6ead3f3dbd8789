// Package executor runs permutation-scan queries against the corpus by
// fanning out across partitions.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/permscan/permscan/internal/corpus"
	"github.com/permscan/permscan/internal/match"
	"github.com/permscan/permscan/internal/scanner/ranker"
	"github.com/permscan/permscan/pkg/config"
	apperrors "github.com/permscan/permscan/pkg/errors"
	"github.com/permscan/permscan/pkg/resilience"
	"github.com/permscan/permscan/pkg/tracing"
	"golang.org/x/sync/errgroup"
)

// Mode selects how much work a scan does per text.
type Mode string

const (
	// ModeExists stops at the first matching window per text.
	ModeExists Mode = "exists"
	// ModeFirst reports the first matching window index per text.
	ModeFirst Mode = "first"
	// ModeAll collects every matching window index per text.
	ModeAll Mode = "all"
)

// ParseMode validates a mode string, defaulting empty input to ModeAll.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeExists, ModeFirst, ModeAll:
		return Mode(s), nil
	case "":
		return ModeAll, nil
	}
	return "", fmt.Errorf("%w: unknown scan mode %q", apperrors.ErrInvalidInput, s)
}

// Query is one scan request.
type Query struct {
	Pattern string
	Mode    Mode
	Limit   int
}

// ScanResult is the ranked outcome of a scan query.
type ScanResult struct {
	Pattern      string              `json:"pattern"`
	Mode         Mode                `json:"mode"`
	TotalHits    int                 `json:"total_hits"`
	TextsScanned int                 `json:"texts_scanned"`
	Results      []ranker.ScoredText `json:"results"`
}

// Executor scans corpus partitions concurrently with a shared match engine.
type Executor struct {
	store  *corpus.Store
	engine *match.Engine
	cfg    config.ScanConfig
	logger *slog.Logger
}

// New creates an Executor over the given store and engine.
func New(store *corpus.Store, engine *match.Engine, cfg config.ScanConfig) *Executor {
	return &Executor{
		store:  store,
		engine: engine,
		cfg:    cfg,
		logger: slog.Default().With("component", "scan-executor"),
	}
}

// Execute validates the query, fans out across all partitions, and returns
// the ranked result. Patterns containing symbols outside the engine's
// alphabet fail the whole scan.
func (e *Executor) Execute(ctx context.Context, q Query) (*ScanResult, error) {
	if e.cfg.MaxPatternLength > 0 && len(q.Pattern) > e.cfg.MaxPatternLength {
		return nil, fmt.Errorf("%w: pattern is %d symbols, limit is %d",
			apperrors.ErrPatternTooLong, len(q.Pattern), e.cfg.MaxPatternLength)
	}
	if _, err := e.engine.Alphabet().Encode(q.Pattern); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidSymbol, err)
	}

	ctx, span := tracing.StartChildSpan(ctx, "scan-execute")
	defer span.End()
	span.SetAttr("pattern_length", len(q.Pattern))
	span.SetAttr("mode", string(q.Mode))

	parts := e.store.NumPartitions()
	partMatches := make([][]ranker.TextMatch, parts)
	scanned := make([]int, parts)

	g, gctx := errgroup.WithContext(ctx)
	for part := 0; part < parts; part++ {
		part := part
		g.Go(func() error {
			pctx, pspan := tracing.StartChildSpan(gctx, fmt.Sprintf("scan-partition-%d", part))
			defer pspan.End()
			return resilience.WithTimeout(pctx, e.cfg.TimeoutPerPartition,
				fmt.Sprintf("scan-partition-%d", part),
				func(ctx context.Context) error {
					matches, n, err := e.scanPartition(ctx, part, q)
					if err != nil {
						return fmt.Errorf("partition %d: %w", part, err)
					}
					partMatches[part] = matches
					scanned[part] = n
					pspan.SetAttr("texts_scanned", n)
					pspan.SetAttr("hits", len(matches))
					return nil
				})
		})
	}
	if err := g.Wait(); err != nil {
		// Bodies are validated at ingestion, so an invalid symbol inside a
		// stored text still fails the scan hard rather than being skipped.
		if errors.Is(err, match.ErrInvalidSymbol) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidSymbol, err)
		}
		return nil, err
	}

	var all []ranker.TextMatch
	total := 0
	for part := range partMatches {
		all = append(all, partMatches[part]...)
		total += scanned[part]
	}
	ranked := ranker.Rank(all, q.Limit)

	span.SetAttr("total_hits", len(all))
	e.logger.Info("scan executed",
		"pattern_length", len(q.Pattern),
		"mode", q.Mode,
		"partitions", parts,
		"texts_scanned", total,
		"hits", len(all),
		"returned", len(ranked),
	)
	return &ScanResult{
		Pattern:      q.Pattern,
		Mode:         q.Mode,
		TotalHits:    len(all),
		TextsScanned: total,
		Results:      ranked,
	}, nil
}

func (e *Executor) scanPartition(ctx context.Context, part int, q Query) ([]ranker.TextMatch, int, error) {
	var (
		matches []ranker.TextMatch
		scanned int
		scanErr error
	)
	err := e.store.ForEachInPartition(part, func(text corpus.Text) bool {
		if ctx.Err() != nil {
			scanErr = ctx.Err()
			return false
		}
		m, ok, err := e.scanText(text, q)
		if err != nil {
			scanErr = fmt.Errorf("text %s: %w", text.ID, err)
			return false
		}
		scanned++
		if ok {
			matches = append(matches, m)
		}
		return true
	})
	if err != nil {
		return nil, 0, err
	}
	if scanErr != nil {
		return nil, 0, scanErr
	}
	return matches, scanned, nil
}

func (e *Executor) scanText(text corpus.Text, q Query) (ranker.TextMatch, bool, error) {
	m := ranker.TextMatch{
		TextID:        text.ID,
		Title:         text.Title,
		BodyLength:    len(text.Body),
		PatternLength: len(q.Pattern),
		FirstIndex:    -1,
	}
	switch q.Mode {
	case ModeExists:
		ok, err := e.engine.ContainsPermutation(text.Body, q.Pattern)
		if err != nil || !ok {
			return ranker.TextMatch{}, false, err
		}
		m.MatchCount = 1
	case ModeFirst:
		idx, ok, err := e.engine.FindFirstPermutationIndex(text.Body, q.Pattern)
		if err != nil || !ok {
			return ranker.TextMatch{}, false, err
		}
		m.FirstIndex = idx
		m.MatchCount = 1
	case ModeAll:
		indices, err := e.engine.FindAllPermutationIndices(text.Body, q.Pattern)
		if err != nil {
			return ranker.TextMatch{}, false, err
		}
		if len(indices) == 0 {
			return ranker.TextMatch{}, false, nil
		}
		m.MatchCount = len(indices)
		if e.cfg.MaxMatchesPerText > 0 && len(indices) > e.cfg.MaxMatchesPerText {
			indices = indices[:e.cfg.MaxMatchesPerText]
		}
		m.FirstIndex = indices[0]
		m.Indices = indices
	default:
		return ranker.TextMatch{}, false, fmt.Errorf("%w: unknown scan mode %q", apperrors.ErrInvalidInput, q.Mode)
	}
	return m, true, nil
}
