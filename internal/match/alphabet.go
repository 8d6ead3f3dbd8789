// Package match implements fixed-window character-frequency permutation
// matching: given a pattern and a text over a shared fixed alphabet, it
// answers whether (and where) any window of the text is a reordering of
// the pattern's symbols.
//
// The matcher is purely synchronous and CPU-bound. Every query owns its
// own window state for the duration of the call, so independent queries
// are safe to run concurrently.
package match

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSymbol reports an input rune that maps outside the alphabet.
	ErrInvalidSymbol = errors.New("symbol outside alphabet")
	// ErrUnderflow reports a decrement on a zero count. Under correct engine
	// use every decrement undoes a prior increment inside the same window,
	// so this surfacing to a caller indicates a programming error.
	ErrUnderflow = errors.New("frequency count underflow")
	// ErrInvalidArgument reports a structurally invalid argument such as a
	// non-positive window size or alphabet size.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Symbol is a dense index into an Alphabet, in the range [0, Size()).
type Symbol int

// Alphabet is a fixed, immutable set of runes mapped to dense symbol
// indices. The mapping is fixed at construction time.
type Alphabet struct {
	index map[rune]Symbol
	runes []rune
}

// NewAlphabet builds an alphabet from the distinct runes of symbols, in
// order of first appearance.
func NewAlphabet(symbols string) (*Alphabet, error) {
	if symbols == "" {
		return nil, fmt.Errorf("%w: empty alphabet", ErrInvalidArgument)
	}
	a := &Alphabet{index: make(map[rune]Symbol)}
	for _, r := range symbols {
		if _, dup := a.index[r]; dup {
			continue
		}
		a.index[r] = Symbol(len(a.runes))
		a.runes = append(a.runes, r)
	}
	return a, nil
}

// Lowercase returns the 26-letter a-z alphabet.
func Lowercase() *Alphabet {
	a, _ := NewAlphabet("abcdefghijklmnopqrstuvwxyz")
	return a
}

// Size returns the number of symbols in the alphabet.
func (a *Alphabet) Size() int {
	return len(a.runes)
}

// Symbol maps a single rune to its dense index.
func (a *Alphabet) Symbol(r rune) (Symbol, error) {
	s, ok := a.index[r]
	if !ok {
		return 0, fmt.Errorf("%w: rune %q", ErrInvalidSymbol, r)
	}
	return s, nil
}

// Rune returns the rune for a symbol index, for error reporting and
// debugging.
func (a *Alphabet) Rune(s Symbol) rune {
	if s < 0 || int(s) >= len(a.runes) {
		return 0
	}
	return a.runes[s]
}

// Contains reports whether every rune of s belongs to the alphabet.
func (a *Alphabet) Contains(s string) bool {
	for _, r := range s {
		if _, ok := a.index[r]; !ok {
			return false
		}
	}
	return true
}

// Encode maps a string to its symbol sequence. The first rune outside the
// alphabet aborts encoding with ErrInvalidSymbol, including the rune and
// its index in the error.
func (a *Alphabet) Encode(s string) ([]Symbol, error) {
	out := make([]Symbol, 0, len(s))
	for i, r := range s {
		sym, ok := a.index[r]
		if !ok {
			return nil, fmt.Errorf("%w: rune %q at position %d", ErrInvalidSymbol, r, i)
		}
		out = append(out, sym)
	}
	return out, nil
}
