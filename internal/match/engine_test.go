package match

import (
	"errors"
	"math/rand"
	"reflect"
	"strings"
	"testing"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(Lowercase())
}

func TestFindAllPermutationIndices(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		pattern string
		want    []int
	}{
		{"classic anagram positions", "cbaebabacd", "abc", []int{0, 6}},
		{"exact match", "ab", "ab", []int{0}},
		{"reversed inside text", "eidbaooo", "ab", []int{1}},
		{"overlapping windows", "abab", "ab", []int{0, 1, 2}},
		{"single char pattern", "aaa", "a", []int{0, 1, 2}},
		{"no match", "eidboaoo", "ab", []int{}},
		{"pattern longer than text", "ab", "abc", []int{}},
		{"empty text", "", "a", []int{}},
		{"rotated pattern", "dcda", "adc", []int{1}},
	}

	e := newTestEngine(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.FindAllPermutationIndices(tt.text, tt.pattern)
			if err != nil {
				t.Fatalf("FindAllPermutationIndices(%q, %q): %v", tt.text, tt.pattern, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FindAllPermutationIndices(%q, %q) = %v, want %v", tt.text, tt.pattern, got, tt.want)
			}
		})
	}
}

func TestContainsPermutation(t *testing.T) {
	tests := []struct {
		text    string
		pattern string
		want    bool
	}{
		{"eidbaooo", "ab", true},
		{"eidboaoo", "ab", false},
		{"ab", "ab", true},
		{"dcda", "adc", true},
		{"a", "ab", false},
		{"", "a", false},
	}

	e := newTestEngine(t)
	for _, tt := range tests {
		got, err := e.ContainsPermutation(tt.text, tt.pattern)
		if err != nil {
			t.Fatalf("ContainsPermutation(%q, %q): %v", tt.text, tt.pattern, err)
		}
		if got != tt.want {
			t.Errorf("ContainsPermutation(%q, %q) = %v, want %v", tt.text, tt.pattern, got, tt.want)
		}
	}
}

func TestFindFirstPermutationIndex(t *testing.T) {
	e := newTestEngine(t)

	idx, ok, err := e.FindFirstPermutationIndex("eidbaooo", "ab")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || idx != 1 {
		t.Errorf("expected first match at 1, got (%d, %v)", idx, ok)
	}

	_, ok, err = e.FindFirstPermutationIndex("eidboaoo", "ab")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected no match")
	}

	idx, ok, err = e.FindFirstPermutationIndex("ab", "ab")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || idx != 0 {
		t.Errorf("expected first match at 0, got (%d, %v)", idx, ok)
	}
}

// FindFirst must agree with the minimum of FindAll, and Contains with its
// non-emptiness, on random inputs.
func TestQueryConsistency(t *testing.T) {
	e := newTestEngine(t)
	rng := rand.New(rand.NewSource(7))

	randomString := func(n int, letters string) string {
		var sb strings.Builder
		for i := 0; i < n; i++ {
			sb.WriteByte(letters[rng.Intn(len(letters))])
		}
		return sb.String()
	}

	for i := 0; i < 200; i++ {
		text := randomString(rng.Intn(40), "abcd")
		pattern := randomString(1+rng.Intn(4), "abcd")

		all, err := e.FindAllPermutationIndices(text, pattern)
		if err != nil {
			t.Fatal(err)
		}
		first, ok, err := e.FindFirstPermutationIndex(text, pattern)
		if err != nil {
			t.Fatal(err)
		}
		contains, err := e.ContainsPermutation(text, pattern)
		if err != nil {
			t.Fatal(err)
		}

		if contains != (len(all) > 0) {
			t.Fatalf("contains=%v but all=%v for (%q, %q)", contains, all, text, pattern)
		}
		if ok != (len(all) > 0) {
			t.Fatalf("first ok=%v but all=%v for (%q, %q)", ok, all, text, pattern)
		}
		if ok && first != all[0] {
			t.Fatalf("first=%d but all[0]=%d for (%q, %q)", first, all[0], text, pattern)
		}
		for j := 1; j < len(all); j++ {
			if all[j] <= all[j-1] {
				t.Fatalf("indices not strictly ascending: %v", all)
			}
		}
		for _, idx := range all {
			if idx < 0 || idx > len(text)-len(pattern) {
				t.Fatalf("index %d out of valid window-start range for (%q, %q)", idx, text, pattern)
			}
		}
	}
}

// Results must not depend on the ordering of the pattern's characters.
func TestPermutationInvariance(t *testing.T) {
	e := newTestEngine(t)
	text := "cbaebabacdabcabb"
	patterns := []string{"abc", "acb", "bac", "bca", "cab", "cba"}

	want, err := e.FindAllPermutationIndices(text, patterns[0])
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range patterns[1:] {
		got, err := e.FindAllPermutationIndices(text, p)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("pattern %q: got %v, want %v", p, got, want)
		}
	}
}

// Two identical calls must produce identical results: the engine keeps no
// state across queries.
func TestIdempotence(t *testing.T) {
	e := newTestEngine(t)
	first, err := e.FindAllPermutationIndices("abab", "ab")
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.FindAllPermutationIndices("abab", "ab")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated call diverged: %v vs %v", first, second)
	}
}

func TestEmptyPatternMatchesEverywhere(t *testing.T) {
	e := newTestEngine(t)

	all, err := e.FindAllPermutationIndices("abc", "")
	if err != nil {
		t.Fatal(err)
	}
	// Every position including the empty window at the end.
	if want := []int{0, 1, 2, 3}; !reflect.DeepEqual(all, want) {
		t.Errorf("got %v, want %v", all, want)
	}

	contains, err := e.ContainsPermutation("", "")
	if err != nil {
		t.Fatal(err)
	}
	if !contains {
		t.Error("empty pattern should match empty text")
	}
}

func TestInvalidSymbolFailsHard(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.FindAllPermutationIndices("abc def", "abc")
	if !errors.Is(err, ErrInvalidSymbol) {
		t.Errorf("text with space: got %v, want ErrInvalidSymbol", err)
	}

	_, err = e.FindAllPermutationIndices("abc", "aB")
	if !errors.Is(err, ErrInvalidSymbol) {
		t.Errorf("uppercase pattern: got %v, want ErrInvalidSymbol", err)
	}

	_, _, err = e.FindFirstPermutationIndex("ünicode", "ab")
	if !errors.Is(err, ErrInvalidSymbol) {
		t.Errorf("non-ascii text: got %v, want ErrInvalidSymbol", err)
	}
}

func TestCustomAlphabet(t *testing.T) {
	a, err := NewAlphabet("01")
	if err != nil {
		t.Fatal(err)
	}
	e := NewEngine(a)

	all, err := e.FindAllPermutationIndices("0110", "10")
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{0, 1, 2}; !reflect.DeepEqual(all, want) {
		t.Errorf("got %v, want %v", all, want)
	}

	_, err = e.FindAllPermutationIndices("012", "01")
	if !errors.Is(err, ErrInvalidSymbol) {
		t.Errorf("symbol outside binary alphabet: got %v, want ErrInvalidSymbol", err)
	}
}
