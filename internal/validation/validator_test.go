package validation

import (
	"errors"
	"testing"
)

type createMap struct {
	MapID string `json:"mapId" validate:"required,max=128,slug"`
	Title string `json:"title" validate:"notblank,max=255"`
	Email string `json:"email" validate:"omitempty,email"`
	Role  string `json:"role" validate:"omitempty,oneof=user admin"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		in      createMap
		wantMsg string
	}{
		{"ok", createMap{MapID: "office-1", Title: "HQ"}, ""},
		{"missing id", createMap{Title: "HQ"}, "mapId is required"},
		{"bad slug", createMap{MapID: "a b", Title: "HQ"}, "mapId may only contain letters, digits, '-' and '_'"},
		{"blank title", createMap{MapID: "m1", Title: "   "}, "title is required"},
		{"bad email", createMap{MapID: "m1", Title: "T", Email: "nope"}, "email must be a valid email"},
		{"bad role", createMap{MapID: "m1", Title: "T", Role: "root"}, "role must be one of: user admin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validator{}.Validate(&tt.in)
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verr *Error
			if !errors.As(err, &verr) {
				t.Fatalf("want *Error, got %v", err)
			}
			if verr.Error() != tt.wantMsg {
				t.Fatalf("message = %q want %q", verr.Error(), tt.wantMsg)
			}
		})
	}
}
