package llm

import (
	"errors"
	"testing"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limit status", errors.New("POST /v1/chat/completions: 429 Too Many Requests"), true},
		{"rate limit phrase", errors.New("Rate limit exceeded"), true},
		{"server error", errors.New("500 Internal Server Error"), true},
		{"bad gateway", errors.New("502 Bad Gateway"), true},
		{"unavailable", errors.New("503 Service Unavailable"), true},
		{"api server_error type", errors.New(`{"error":{"type":"server_error"}}`), true},
		{"auth failure", errors.New("401 Unauthorized"), false},
		{"bad request", errors.New("400 invalid request"), false},
		{"context canceled", errors.New("context canceled"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTransient(tt.err); got != tt.want {
				t.Errorf("isTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
