package llm

import (
	"strings"
	"testing"
	"time"
)

func TestCircuitBreaker_ClosedAllowsRequests(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())

	if cb.State() != CircuitClosed {
		t.Errorf("expected initial state closed, got %v", cb.State())
	}

	allowed, err := cb.Allow()
	if !allowed || err != nil {
		t.Errorf("expected closed circuit to allow requests, got allowed=%v err=%v", allowed, err)
	}
}

func TestCircuitBreaker_TripsAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Threshold: 3, ResetAfter: 30 * time.Second})

	cb.RecordFailure()
	cb.RecordFailure()
	if cb.State() != CircuitClosed {
		t.Fatalf("expected circuit to stay closed below threshold, got %v", cb.State())
	}

	cb.RecordFailure()
	if cb.State() != CircuitOpen {
		t.Fatalf("expected circuit open after 3 failures, got %v", cb.State())
	}

	allowed, err := cb.Allow()
	if allowed {
		t.Error("expected open circuit to block requests")
	}
	if err == nil || !strings.Contains(err.Error(), "circuit breaker open") {
		t.Errorf("expected circuit breaker open error, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Threshold: 3, ResetAfter: 30 * time.Second})

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()

	if cb.ConsecutiveFailures() != 0 {
		t.Errorf("expected failure count reset after success, got %d", cb.ConsecutiveFailures())
	}
	if cb.State() != CircuitClosed {
		t.Errorf("expected circuit closed after success, got %v", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenTransitions(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Threshold: 2, ResetAfter: 50 * time.Millisecond})

	cb.RecordFailure()
	cb.RecordFailure()
	if cb.State() != CircuitOpen {
		t.Fatalf("expected circuit open, got %v", cb.State())
	}

	time.Sleep(60 * time.Millisecond)

	// First request after the reset window transitions to half-open
	allowed, err := cb.Allow()
	if !allowed || err != nil {
		t.Fatalf("expected test request through after reset window, got allowed=%v err=%v", allowed, err)
	}
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("expected half-open state, got %v", cb.State())
	}

	// Additional requests while the test request is in flight are rejected
	allowed, err = cb.Allow()
	if allowed {
		t.Error("expected half-open circuit to reject additional requests")
	}
	if err == nil || !strings.Contains(err.Error(), "half-open") {
		t.Errorf("expected half-open error, got %v", err)
	}

	// Failure in half-open reopens the circuit
	cb.RecordFailure()
	if cb.State() != CircuitOpen {
		t.Errorf("expected failure in half-open to reopen circuit, got %v", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenSuccessCloses(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Threshold: 2, ResetAfter: 50 * time.Millisecond})

	cb.RecordFailure()
	cb.RecordFailure()
	time.Sleep(60 * time.Millisecond)
	_, _ = cb.Allow()

	cb.RecordSuccess()
	if cb.State() != CircuitClosed {
		t.Errorf("expected success in half-open to close circuit, got %v", cb.State())
	}
}

func TestCircuitBreaker_ManualReset(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Threshold: 1, ResetAfter: 30 * time.Second})

	cb.RecordFailure()
	if cb.State() != CircuitOpen {
		t.Fatalf("expected circuit open, got %v", cb.State())
	}

	cb.Reset()
	if cb.State() != CircuitClosed || cb.ConsecutiveFailures() != 0 {
		t.Errorf("expected reset to close circuit and clear failures, got state=%v fails=%d",
			cb.State(), cb.ConsecutiveFailures())
	}
}

func TestCircuitState_String(t *testing.T) {
	tests := []struct {
		state    CircuitState
		expected string
	}{
		{CircuitClosed, "closed"},
		{CircuitOpen, "open"},
		{CircuitHalfOpen, "half-open"},
		{CircuitState(999), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("CircuitState(%d).String() = %q, expected %q", tt.state, got, tt.expected)
		}
	}
}
