package httputil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorMapper_Map(t *testing.T) {
	t.Parallel()

	errMissing := errors.New("missing")
	errGone := errors.New("gone")
	mapper := NewErrorMapper().
		WithMapping(errMissing, http.StatusBadRequest, "missing token").
		WithMapping(errGone, http.StatusNotFound, "room not found").
		WithDefault(http.StatusInternalServerError, "unable to connect")

	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"nil", nil, http.StatusOK, ""},
		{"direct", errMissing, http.StatusBadRequest, "missing token"},
		{"wrapped", fmt.Errorf("lookup: %w", errGone), http.StatusNotFound, "room not found"},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "request timeout"},
		{"cancelled", context.Canceled, http.StatusServiceUnavailable, "request cancelled"},
		{"unmatched", errors.New("boom"), http.StatusInternalServerError, "unable to connect"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := mapper.Map(tt.err)
			if got.Status != tt.status || got.Message != tt.msg {
				t.Fatalf("Map(%v) = %+v, want %d %q", tt.err, got, tt.status, tt.msg)
			}
		})
	}
}

func TestErrorMapper_FirstMatchWins(t *testing.T) {
	t.Parallel()

	base := errors.New("base")
	mapper := NewErrorMapper().
		WithMapping(base, http.StatusConflict, "first").
		WithMapping(base, http.StatusTeapot, "second")
	if got := mapper.Map(base); got.Status != http.StatusConflict {
		t.Fatalf("expected first mapping, got %+v", got)
	}
}
