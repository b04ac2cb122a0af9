package llm

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantType      ErrorType
		wantRetryable bool
	}{
		{
			name:          "nil error",
			err:           nil,
			wantType:      ErrorTypeNone,
			wantRetryable: false,
		},
		{
			name:          "401 unauthorized",
			err:           errors.New("error, status code: 401, message: Incorrect API key provided"),
			wantType:      ErrorTypeAuth,
			wantRetryable: false,
		},
		{
			name:          "invalid api key",
			err:           errors.New("invalid api key"),
			wantType:      ErrorTypeAuth,
			wantRetryable: false,
		},
		{
			name:          "model not found",
			err:           errors.New("the model `gpt-5-ultra` does not exist"),
			wantType:      ErrorTypeModel,
			wantRetryable: false,
		},
		{
			name:          "endpoint 404",
			err:           errors.New("error, status code: 404, message: not found"),
			wantType:      ErrorTypeEndpoint,
			wantRetryable: false,
		},
		{
			name:          "connection refused",
			err:           errors.New("dial tcp 127.0.0.1:8000: connection refused"),
			wantType:      ErrorTypeEndpoint,
			wantRetryable: true,
		},
		{
			name:          "timeout",
			err:           errors.New("context deadline exceeded"),
			wantType:      ErrorTypeEndpoint,
			wantRetryable: true,
		},
		{
			name:          "rate limit",
			err:           errors.New("error, status code: 429, message: Rate limit reached"),
			wantType:      ErrorTypeUnknown,
			wantRetryable: true,
		},
		{
			name:          "server error",
			err:           errors.New("error, status code: 503, message: service unavailable"),
			wantType:      ErrorTypeEndpoint,
			wantRetryable: true,
		},
		{
			name:          "unknown error",
			err:           errors.New("something odd happened"),
			wantType:      ErrorTypeUnknown,
			wantRetryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			if tt.err == nil {
				if got != nil {
					t.Errorf("expected nil for nil error, got %v", got)
				}
				return
			}
			if got.Type != tt.wantType {
				t.Errorf("ClassifyError(%v).Type = %q, want %q", tt.err, got.Type, tt.wantType)
			}
			if got.Retryable != tt.wantRetryable {
				t.Errorf("ClassifyError(%v).Retryable = %v, want %v", tt.err, got.Retryable, tt.wantRetryable)
			}
		})
	}
}

func TestClassifyError_PassesThroughExistingError(t *testing.T) {
	original := NewError(ErrorTypeAuth, "authentication failed", false, errors.New("401"))
	wrapped := fmt.Errorf("generate sql: %w", original)

	got := ClassifyError(wrapped)
	if got != original {
		t.Errorf("expected existing *Error to pass through, got %v", got)
	}
}

func TestError_ErrorString(t *testing.T) {
	err := &Error{
		Type:       ErrorTypeEndpoint,
		Message:    "connection failed",
		StatusCode: 503,
		Model:      "gpt-4o",
		Cause:      errors.New("dial tcp: connection refused"),
	}

	msg := err.Error()
	for _, want := range []string{"endpoint", "HTTP 503", "model=gpt-4o", "connection failed", "connection refused"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected error string to contain %q, got %q", want, msg)
		}
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := NewError(ErrorTypeUnknown, "llm error", false, cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause through Unwrap")
	}
}

func TestIsRetryable(t *testing.T) {
	retryable := NewError(ErrorTypeEndpoint, "server error", true, nil)
	if !IsRetryable(retryable) {
		t.Error("expected retryable error to report retryable")
	}

	permanent := NewError(ErrorTypeAuth, "authentication failed", false, nil)
	if IsRetryable(permanent) {
		t.Error("expected auth error to report not retryable")
	}

	if IsRetryable(errors.New("plain error")) {
		t.Error("expected plain error to report not retryable")
	}
}

func TestGetErrorType(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewError(ErrorTypeModel, "model not found", false, nil))
	if got := GetErrorType(err); got != ErrorTypeModel {
		t.Errorf("GetErrorType = %q, want %q", got, ErrorTypeModel)
	}

	if got := GetErrorType(errors.New("plain")); got != ErrorTypeUnknown {
		t.Errorf("GetErrorType for plain error = %q, want %q", got, ErrorTypeUnknown)
	}
}
