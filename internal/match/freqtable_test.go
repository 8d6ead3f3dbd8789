package match

import (
	"errors"
	"testing"
)

func TestFrequencyTableBasics(t *testing.T) {
	ft, err := NewFrequencyTable(26)
	if err != nil {
		t.Fatal(err)
	}
	if ft.Len() != 26 {
		t.Errorf("Len() = %d, want 26", ft.Len())
	}
	if ft.Total() != 0 {
		t.Errorf("new table Total() = %d, want 0", ft.Total())
	}

	if err := ft.Increment(0); err != nil {
		t.Fatal(err)
	}
	if err := ft.Increment(0); err != nil {
		t.Fatal(err)
	}
	if err := ft.Increment(25); err != nil {
		t.Fatal(err)
	}
	if got := ft.Count(0); got != 2 {
		t.Errorf("Count(0) = %d, want 2", got)
	}
	if got := ft.Total(); got != 3 {
		t.Errorf("Total() = %d, want 3", got)
	}

	if err := ft.Decrement(0); err != nil {
		t.Fatal(err)
	}
	if got := ft.Count(0); got != 1 {
		t.Errorf("Count(0) after decrement = %d, want 1", got)
	}
}

func TestFrequencyTableUnderflow(t *testing.T) {
	ft, err := NewFrequencyTable(4)
	if err != nil {
		t.Fatal(err)
	}
	if err := ft.Decrement(2); !errors.Is(err, ErrUnderflow) {
		t.Errorf("decrement at zero: got %v, want ErrUnderflow", err)
	}
	// The failed decrement must not have corrupted the count.
	if got := ft.Count(2); got != 0 {
		t.Errorf("Count(2) = %d, want 0", got)
	}
}

func TestFrequencyTableBounds(t *testing.T) {
	ft, err := NewFrequencyTable(4)
	if err != nil {
		t.Fatal(err)
	}
	if err := ft.Increment(4); !errors.Is(err, ErrInvalidSymbol) {
		t.Errorf("increment out of range: got %v, want ErrInvalidSymbol", err)
	}
	if err := ft.Increment(-1); !errors.Is(err, ErrInvalidSymbol) {
		t.Errorf("increment negative: got %v, want ErrInvalidSymbol", err)
	}

	if _, err := NewFrequencyTable(0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("zero alphabet size: got %v, want ErrInvalidArgument", err)
	}
	if _, err := NewFrequencyTable(-3); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("negative alphabet size: got %v, want ErrInvalidArgument", err)
	}
}

func TestFrequencyTableEquals(t *testing.T) {
	a := Lowercase()
	s1, err := a.Encode("listen")
	if err != nil {
		t.Fatal(err)
	}
	s2, err := a.Encode("silent")
	if err != nil {
		t.Fatal(err)
	}
	s3, err := a.Encode("listens")
	if err != nil {
		t.Fatal(err)
	}

	t1, err := FrequencyTableFromSymbols(s1, a.Size())
	if err != nil {
		t.Fatal(err)
	}
	t2, err := FrequencyTableFromSymbols(s2, a.Size())
	if err != nil {
		t.Fatal(err)
	}
	t3, err := FrequencyTableFromSymbols(s3, a.Size())
	if err != nil {
		t.Fatal(err)
	}

	if !t1.Equals(t2) {
		t.Error("anagrams should have equal tables")
	}
	if t1.Equals(t3) {
		t.Error("different multisets should not be equal")
	}
	if t1.Equals(nil) {
		t.Error("nil table should never be equal")
	}

	small, err := NewFrequencyTable(5)
	if err != nil {
		t.Fatal(err)
	}
	empty26, err := NewFrequencyTable(26)
	if err != nil {
		t.Fatal(err)
	}
	if small.Equals(empty26) {
		t.Error("tables of different alphabet sizes should not be equal")
	}
}
