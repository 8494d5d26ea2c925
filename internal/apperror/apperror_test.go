package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("connection reset")
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"bad request", BadRequest("title is required"), KindBadRequest},
		{"forbidden", Forbidden("forbidden"), KindForbidden},
		{"wrapped not found", fmt.Errorf("load map: %w", NotFound("map not found")), KindNotFound},
		{"internal", Internal("insert map", cause), KindInternal},
		{"plain error", cause, KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInternalUnwrap(t *testing.T) {
	cause := errors.New("deadlock")
	err := Internal("delete floor", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected Internal error to unwrap to its cause")
	}
	if !Is(err, KindInternal) {
		t.Fatal("expected KindInternal")
	}
	if Is(nil, KindInternal) {
		t.Fatal("nil error must not match any kind")
	}
}
