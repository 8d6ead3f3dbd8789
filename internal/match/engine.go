package match

// Engine answers permutation-match queries for a fixed alphabet. A window
// of the text matches when its frequency table equals the pattern's, i.e.
// the window is a reordering of the pattern.
//
// Instead of comparing tables per slide, the engine maintains matchCount:
// the number of symbols whose window count currently equals the pattern
// count. matchCount == alphabet size iff the tables are equal, which makes
// each slide O(1) amortized.
type Engine struct {
	alphabet *Alphabet
}

// NewEngine creates an Engine over the given alphabet.
func NewEngine(alphabet *Alphabet) *Engine {
	return &Engine{alphabet: alphabet}
}

// Alphabet returns the alphabet the engine was built with.
func (e *Engine) Alphabet() *Alphabet {
	return e.alphabet
}

// ContainsPermutation reports whether any window of text is a permutation
// of pattern. It stops sliding at the first match.
func (e *Engine) ContainsPermutation(text, pattern string) (bool, error) {
	found := false
	err := e.scan(text, pattern, func(start int) bool {
		found = true
		return true
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// FindFirstPermutationIndex returns the start index of the first window of
// text that is a permutation of pattern. The second return value is false
// when no window matches.
func (e *Engine) FindFirstPermutationIndex(text, pattern string) (int, bool, error) {
	first := -1
	err := e.scan(text, pattern, func(start int) bool {
		first = start
		return true
	})
	if err != nil {
		return 0, false, err
	}
	if first < 0 {
		return 0, false, nil
	}
	return first, true, nil
}

// FindAllPermutationIndices returns every window start index where text
// contains a permutation of pattern, in strictly ascending order. The
// slice is empty, never nil, when there are no matches.
func (e *Engine) FindAllPermutationIndices(text, pattern string) ([]int, error) {
	indices := make([]int, 0)
	err := e.scan(text, pattern, func(start int) bool {
		indices = append(indices, start)
		return false
	})
	if err != nil {
		return nil, err
	}
	return indices, nil
}

// scan validates and encodes both inputs, then slides a pattern-length
// window over the text, reporting each matching window start to onMatch.
// onMatch returning true stops the scan.
func (e *Engine) scan(text, pattern string, onMatch func(start int) bool) error {
	textSyms, err := e.alphabet.Encode(text)
	if err != nil {
		return err
	}
	patternSyms, err := e.alphabet.Encode(pattern)
	if err != nil {
		return err
	}

	// An empty pattern matches trivially at every position, including the
	// empty window at the end of the text.
	if len(patternSyms) == 0 {
		for i := 0; i <= len(textSyms); i++ {
			if onMatch(i) {
				return nil
			}
		}
		return nil
	}
	if len(patternSyms) > len(textSyms) {
		return nil
	}

	size := e.alphabet.Size()
	patternTable, err := FrequencyTableFromSymbols(patternSyms, size)
	if err != nil {
		return err
	}
	windowTable, err := NewFrequencyTable(size)
	if err != nil {
		return err
	}

	// Symbols absent from the pattern start out matched (0 == 0).
	matchCount := 0
	for s := 0; s < size; s++ {
		if patternTable.Count(Symbol(s)) == 0 {
			matchCount++
		}
	}

	hooks := WindowHooks{
		OnEnter: func(s Symbol) error {
			before := windowTable.Count(s)
			if err := windowTable.Increment(s); err != nil {
				return err
			}
			want := patternTable.Count(s)
			switch {
			case before+1 == want:
				matchCount++
			case before == want:
				matchCount--
			}
			return nil
		},
		OnExit: func(s Symbol) error {
			before := windowTable.Count(s)
			if err := windowTable.Decrement(s); err != nil {
				return err
			}
			want := patternTable.Count(s)
			switch {
			case before-1 == want:
				matchCount++
			case before == want:
				matchCount--
			}
			return nil
		},
		OnComplete: func(start int) (bool, error) {
			if matchCount == size {
				return onMatch(start), nil
			}
			return false, nil
		},
	}
	return Slide(textSyms, len(patternSyms), hooks)
}
