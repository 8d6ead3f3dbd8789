package match

import "fmt"

// WindowHooks are the callbacks invoked by Slide as elements enter and
// leave the window. OnEnter and OnExit run exactly once per element
// entering/leaving. OnComplete runs once per fully-formed window with the
// window's start index; returning stop=true ends the slide early.
type WindowHooks struct {
	OnEnter    func(s Symbol) error
	OnExit     func(s Symbol) error
	OnComplete func(start int) (stop bool, err error)
}

// Slide drives a fixed-width window across input, left to right, one
// element per step.
//
// If windowSize exceeds len(input), every element is entered but no window
// ever completes and no exit calls are made. windowSize <= 0 is rejected
// with ErrInvalidArgument before any hook runs.
func Slide(input []Symbol, windowSize int, hooks WindowHooks) error {
	if windowSize <= 0 {
		return fmt.Errorf("%w: window size %d", ErrInvalidArgument, windowSize)
	}
	for i := 0; i < len(input); i++ {
		if hooks.OnEnter != nil {
			if err := hooks.OnEnter(input[i]); err != nil {
				return err
			}
		}
		if i >= windowSize && hooks.OnExit != nil {
			if err := hooks.OnExit(input[i-windowSize]); err != nil {
				return err
			}
		}
		if i >= windowSize-1 && hooks.OnComplete != nil {
			stop, err := hooks.OnComplete(i - windowSize + 1)
			if err != nil {
				return err
			}
			if stop {
				return nil
			}
		}
	}
	return nil
}
