package match

import "fmt"

// FrequencyTable tracks per-symbol occurrence counts over a fixed alphabet.
// All counts are always >= 0.
type FrequencyTable struct {
	counts []int
}

// NewFrequencyTable returns an all-zero table for the given alphabet size.
func NewFrequencyTable(alphabetSize int) (*FrequencyTable, error) {
	if alphabetSize <= 0 {
		return nil, fmt.Errorf("%w: alphabet size %d", ErrInvalidArgument, alphabetSize)
	}
	return &FrequencyTable{counts: make([]int, alphabetSize)}, nil
}

// FrequencyTableFromSymbols returns a table seeded by counting each symbol
// in syms. A symbol outside [0, alphabetSize) fails with ErrInvalidSymbol.
func FrequencyTableFromSymbols(syms []Symbol, alphabetSize int) (*FrequencyTable, error) {
	t, err := NewFrequencyTable(alphabetSize)
	if err != nil {
		return nil, err
	}
	for _, s := range syms {
		if err := t.Increment(s); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Increment raises the count for s by one.
func (t *FrequencyTable) Increment(s Symbol) error {
	if s < 0 || int(s) >= len(t.counts) {
		return fmt.Errorf("%w: symbol %d (alphabet size %d)", ErrInvalidSymbol, s, len(t.counts))
	}
	t.counts[s]++
	return nil
}

// Decrement lowers the count for s by one. Decrementing a zero count fails
// with ErrUnderflow.
func (t *FrequencyTable) Decrement(s Symbol) error {
	if s < 0 || int(s) >= len(t.counts) {
		return fmt.Errorf("%w: symbol %d (alphabet size %d)", ErrInvalidSymbol, s, len(t.counts))
	}
	if t.counts[s] == 0 {
		return fmt.Errorf("%w: symbol %d", ErrUnderflow, s)
	}
	t.counts[s]--
	return nil
}

// Count returns the current count for s, or 0 for an out-of-range symbol.
func (t *FrequencyTable) Count(s Symbol) int {
	if s < 0 || int(s) >= len(t.counts) {
		return 0
	}
	return t.counts[s]
}

// Len returns the alphabet size the table was built for.
func (t *FrequencyTable) Len() int {
	return len(t.counts)
}

// Total returns the sum of all counts.
func (t *FrequencyTable) Total() int {
	sum := 0
	for _, c := range t.counts {
		sum += c
	}
	return sum
}

// Equals reports value-wise equality over all symbol counts. Tables of
// different alphabet sizes are never equal. Runs in O(alphabet size).
func (t *FrequencyTable) Equals(other *FrequencyTable) bool {
	if other == nil || len(t.counts) != len(other.counts) {
		return false
	}
	for i, c := range t.counts {
		if c != other.counts[i] {
			return false
		}
	}
	return true
}
