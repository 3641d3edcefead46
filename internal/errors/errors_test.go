package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
	"time"
)

func TestRateLimitError(t *testing.T) {
	err := NewRateLimitError("itunes: rate limited")

	if err.Error() != "itunes: rate limited" {
		t.Fatalf("Error message = %q, want %q", err.Error(), "itunes: rate limited")
	}

	if !IsRateLimitError(err) {
		t.Fatalf("IsRateLimitError returned false for RateLimitError")
	}

	wrapped := stdErrors.Join(err)
	if !IsRateLimitError(wrapped) {
		t.Fatalf("IsRateLimitError returned false for wrapped RateLimitError")
	}
}

func TestStopProcessingError(t *testing.T) {
	err := NewStopProcessingError("import stopped by user")

	if err.Error() != "import stopped by user" {
		t.Fatalf("Error message = %q, want %q", err.Error(), "import stopped by user")
	}

	if !IsStopProcessingError(err) {
		t.Fatalf("IsStopProcessingError returned false for StopProcessingError")
	}

	wrapped := stdErrors.Join(err)
	if !IsStopProcessingError(wrapped) {
		t.Fatalf("IsStopProcessingError returned false for wrapped StopProcessingError")
	}
}

func TestRateLimitErrorWithRetry(t *testing.T) {
	err := NewRateLimitErrorWithRetry("too many requests", 2*time.Minute)

	expected := "too many requests (retry after 2m0s)"
	if err.Error() != expected {
		t.Fatalf("Error message = %q, want %q", err.Error(), expected)
	}

	if !IsRateLimitError(err) {
		t.Fatalf("IsRateLimitError returned false for RateLimitErrorWithRetry")
	}

	if err.RetryAfter.Minutes() != 2.0 {
		t.Fatalf("RetryAfter = %v, want 2 minutes", err.RetryAfter)
	}
}

func TestRateLimitErrorWithRetry_ZeroDuration(t *testing.T) {
	err := NewRateLimitErrorWithRetry("rate limited", 0)

	// When RetryAfter is 0, the implementation only adds retry info if > 0
	expected := "rate limited"
	if err.Error() != expected {
		t.Fatalf("Error message = %q, want %q", err.Error(), expected)
	}

	if err.RetryAfter != 0 {
		t.Fatalf("RetryAfter = %v, want 0", err.RetryAfter)
	}
}

func TestRateLimitErrorWithRetry_VariousDurations(t *testing.T) {
	tests := []struct {
		name            string
		duration        time.Duration
		expectedMessage string
	}{
		{
			name:            "1 second",
			duration:        1 * time.Second,
			expectedMessage: "rate limited (retry after 1s)",
		},
		{
			name:            "30 seconds",
			duration:        30 * time.Second,
			expectedMessage: "rate limited (retry after 30s)",
		},
		{
			name:            "1 hour",
			duration:        1 * time.Hour,
			expectedMessage: "rate limited (retry after 1h0m0s)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRateLimitErrorWithRetry("rate limited", tt.duration)
			if err.Error() != tt.expectedMessage {
				t.Fatalf("Error message = %q, want %q", err.Error(), tt.expectedMessage)
			}
		})
	}
}

func TestUpstreamError(t *testing.T) {
	err := NewUpstreamError("googlebooks", 503, "backend unavailable")

	expected := "googlebooks: unexpected status 503: backend unavailable"
	if err.Error() != expected {
		t.Fatalf("Error message = %q, want %q", err.Error(), expected)
	}

	if !IsUpstreamError(err) {
		t.Fatalf("IsUpstreamError returned false for UpstreamError")
	}
}

func TestUpstreamError_EmptyBody(t *testing.T) {
	err := NewUpstreamError("kobo", 404, "")

	expected := "kobo: unexpected status 404"
	if err.Error() != expected {
		t.Fatalf("Error message = %q, want %q", err.Error(), expected)
	}
}

func TestAsUpstreamError_Wrapped(t *testing.T) {
	err := NewUpstreamError("itunes", 500, "")
	wrapped := fmt.Errorf("search failed: %w", err)

	got, ok := AsUpstreamError(wrapped)
	if !ok {
		t.Fatalf("AsUpstreamError returned false for wrapped UpstreamError")
	}
	if got.StatusCode != 500 || got.Source != "itunes" {
		t.Fatalf("unexpected unwrapped error %+v", got)
	}

	if _, ok := AsUpstreamError(stdErrors.New("plain")); ok {
		t.Fatalf("AsUpstreamError returned true for plain error")
	}
}
