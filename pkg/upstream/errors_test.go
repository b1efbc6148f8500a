package upstream

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestForbiddenError_Error(t *testing.T) {
	withReason := &ForbiddenError{Path: "/r/hidden/hot", Reason: ReasonPrivate}
	if msg := withReason.Error(); !strings.Contains(msg, "private") || !strings.Contains(msg, "/r/hidden/hot") {
		t.Errorf("message = %q", msg)
	}

	plain := &ForbiddenError{Path: "/r/hidden/hot"}
	if msg := plain.Error(); strings.Contains(msg, ": \n") || !strings.Contains(msg, "/r/hidden/hot") {
		t.Errorf("message = %q", msg)
	}
}

func TestRateLimitError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *RateLimitError
		contains string
	}{
		{
			name:     "with retry after",
			err:      &RateLimitError{Path: "/x", RetryAfter: 30 * time.Second},
			contains: "30s",
		},
		{
			name:     "with reset",
			err:      &RateLimitError{Path: "/x", Reset: "120"},
			contains: "120",
		},
		{
			name:     "bare",
			err:      &RateLimitError{Path: "/x"},
			contains: "/x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if msg := tt.err.Error(); !strings.Contains(msg, tt.contains) {
				t.Errorf("message = %q, expected it to mention %q", msg, tt.contains)
			}
		})
	}
}

func TestUnavailableError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := &UnavailableError{Path: "/x", Attempts: 4, Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("expected Unwrap to expose the cause")
	}
	if msg := err.Error(); !strings.Contains(msg, "4") {
		t.Errorf("message = %q, expected the attempt count", msg)
	}
}

func TestParseError_Unwrap(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := &ParseError{Path: "/x", Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("expected Unwrap to expose the cause")
	}
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "forbidden with reason", err: &ForbiddenError{Reason: ReasonBanned}, expected: "banned"},
		{name: "forbidden bare", err: &ForbiddenError{}, expected: "forbidden"},
		{name: "not found", err: &NotFoundError{}, expected: "not_found"},
		{name: "auth rejected", err: &AuthRejectedError{}, expected: "oauth"},
		{name: "rate limited", err: &RateLimitError{}, expected: "rate_limited"},
		{name: "parse", err: &ParseError{}, expected: "parse"},
		{name: "redirect", err: &RedirectError{}, expected: "redirect"},
		{name: "anything else", err: errors.New("dial tcp: refused"), expected: "network"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorType(tt.err); got != tt.expected {
				t.Errorf("errorType() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected time.Duration
	}{
		{name: "seconds", header: "30", expected: 30 * time.Second},
		{name: "zero", header: "0", expected: 0},
		{name: "empty", header: "", expected: 0},
		{name: "garbage", header: "soon", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseRetryAfter(tt.header); got != tt.expected {
				t.Errorf("parseRetryAfter(%q) = %v, expected %v", tt.header, got, tt.expected)
			}
		})
	}
}

func TestParseRetryAfter_HTTPDate(t *testing.T) {
	future := time.Now().Add(90 * time.Second).UTC().Format(time.RFC1123)
	got := parseRetryAfter(strings.Replace(future, "UTC", "GMT", 1))

	if got < 80*time.Second || got > 90*time.Second {
		t.Errorf("parseRetryAfter(date) = %v, expected roughly 90s", got)
	}
}
