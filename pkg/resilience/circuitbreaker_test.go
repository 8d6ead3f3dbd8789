package resilience

import (
	"errors"
	"testing"
	"time"
)

var errBackend = errors.New("backend down")

func failingCall() error { return errBackend }
func okCall() error      { return nil }

func TestBreakerStaysClosedOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{FailureThreshold: 3})
	for i := 0; i < 10; i++ {
		if err := cb.Execute(okCall); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if cb.GetState() != StateClosed {
		t.Errorf("state = %v, want closed", cb.GetState())
	}
}

func TestBreakerTripsAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{FailureThreshold: 3, ResetTimeout: time.Hour})

	for i := 0; i < 3; i++ {
		if err := cb.Execute(failingCall); !errors.Is(err, errBackend) {
			t.Fatalf("call %d: err = %v, want backend error", i, err)
		}
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %v, want open", cb.GetState())
	}

	err := cb.Execute(okCall)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold:    2,
		ResetTimeout:        20 * time.Millisecond,
		HalfOpenMaxRequests: 1,
	})

	cb.Execute(failingCall)
	cb.Execute(failingCall)
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %v, want open", cb.GetState())
	}

	time.Sleep(30 * time.Millisecond)

	if err := cb.Execute(okCall); err != nil {
		t.Fatalf("half-open probe: %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("state = %v, want closed after successful probe", cb.GetState())
	}
}

func TestBreakerReopensOnFailedProbe(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     20 * time.Millisecond,
	})

	cb.Execute(failingCall)
	cb.Execute(failingCall)
	time.Sleep(30 * time.Millisecond)

	if err := cb.Execute(failingCall); !errors.Is(err, errBackend) {
		t.Fatalf("probe err = %v, want backend error", err)
	}
	if cb.GetState() != StateOpen {
		t.Errorf("state = %v, want open after failed probe", cb.GetState())
	}
}

func TestBreakerReset(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Hour})
	cb.Execute(failingCall)
	if cb.GetState() != StateOpen {
		t.Fatal("breaker did not trip")
	}
	cb.Reset()
	if cb.GetState() != StateClosed {
		t.Errorf("state = %v, want closed after reset", cb.GetState())
	}
	if err := cb.Execute(okCall); err != nil {
		t.Errorf("call after reset: %v", err)
	}
}

func TestOnStateChangeHook(t *testing.T) {
	var transitions []State
	cb := NewCircuitBreaker("hooked", CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Hour,
		OnStateChange: func(name string, state State) {
			if name != "hooked" {
				t.Errorf("hook name = %q, want hooked", name)
			}
			transitions = append(transitions, state)
		},
	})

	cb.Execute(failingCall)
	cb.Reset()

	if len(transitions) != 2 || transitions[0] != StateOpen || transitions[1] != StateClosed {
		t.Errorf("transitions = %v, want [open closed]", transitions)
	}
}
