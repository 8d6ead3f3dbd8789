package benchmark

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/permscan/permscan/internal/corpus"
	"github.com/permscan/permscan/internal/match"
	"github.com/permscan/permscan/internal/scanner/executor"
	"github.com/permscan/permscan/pkg/config"
)

func randomText(rng *rand.Rand, n int) string {
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		sb.WriteByte(byte('a' + rng.Intn(26)))
	}
	return sb.String()
}

// BenchmarkContainsPermutation measures single-text scanning across text
// sizes. The window slide is O(1) per character, so latency should grow
// linearly with text length.
func BenchmarkContainsPermutation(b *testing.B) {
	engine := match.NewEngine(match.Lowercase())
	rng := rand.New(rand.NewSource(42))

	sizes := []int{100, 1000, 10000, 100000}
	for _, size := range sizes {
		text := randomText(rng, size)
		b.Run(fmt.Sprintf("text_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, err := engine.ContainsPermutation(text, "xyzabc")
				if err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkPatternLength measures the effect of pattern length on scan
// latency over a fixed 10k-character text.
func BenchmarkPatternLength(b *testing.B) {
	engine := match.NewEngine(match.Lowercase())
	rng := rand.New(rand.NewSource(7))
	text := randomText(rng, 10000)

	lengths := []int{2, 8, 32, 128}
	for _, n := range lengths {
		pattern := randomText(rng, n)
		b.Run(fmt.Sprintf("pattern_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, err := engine.FindAllPermutationIndices(text, pattern)
				if err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func benchConfig() config.ScanConfig {
	return config.ScanConfig{
		Alphabet:          "abcdefghijklmnopqrstuvwxyz",
		MaxPatternLength:  256,
		DefaultLimit:      10,
		MaxResults:        100,
		MaxMatchesPerText: 1000,
	}
}

// BenchmarkExecutor exercises the partitioned scan executor with varying
// partition counts over a 1000-text corpus.
func BenchmarkExecutor(b *testing.B) {
	partitionCounts := []int{1, 4, 8}
	for _, numPartitions := range partitionCounts {
		b.Run(fmt.Sprintf("partitions_%d", numPartitions), func(b *testing.B) {
			store, err := corpus.NewStore(numPartitions)
			if err != nil {
				b.Fatal(err)
			}
			rng := rand.New(rand.NewSource(int64(numPartitions)))
			for d := 0; d < 1000; d++ {
				store.Add(corpus.Text{
					ID:    fmt.Sprintf("text-%d", d),
					Title: fmt.Sprintf("text %d", d),
					Body:  randomText(rng, 2000),
				})
			}

			engine := match.NewEngine(match.Lowercase())
			exec := executor.New(store, engine, benchConfig())
			query := executor.Query{Pattern: "abc", Mode: executor.ModeExists, Limit: 10}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := exec.Execute(context.Background(), query); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkExecutorParallel measures concurrent scan throughput across 8
// partitions.
func BenchmarkExecutorParallel(b *testing.B) {
	store, err := corpus.NewStore(8)
	if err != nil {
		b.Fatal(err)
	}
	rng := rand.New(rand.NewSource(99))
	for d := 0; d < 1000; d++ {
		store.Add(corpus.Text{
			ID:    fmt.Sprintf("text-%d", d),
			Title: fmt.Sprintf("text %d", d),
			Body:  randomText(rng, 2000),
		})
	}

	engine := match.NewEngine(match.Lowercase())
	exec := executor.New(store, engine, benchConfig())
	query := executor.Query{Pattern: "cab", Mode: executor.ModeAll, Limit: 10}

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := exec.Execute(context.Background(), query); err != nil {
				b.Fatal(err)
			}
		}
	})
}
