package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/iliyamo/pamfree/internal/model"
)

func TestAuthorize(t *testing.T) {
	owner := Actor{UserID: 1, Role: model.RoleUser}
	other := Actor{UserID: 2, Role: model.RoleUser}
	admin := Actor{UserID: 3, Role: model.RoleAdmin}

	tests := []struct {
		name   string
		actor  Actor
		kind   Kind
		action Action
		want   error
	}{
		{"anonymous views map", Anonymous, KindMap, ActionView, nil},
		{"anonymous views pin", Anonymous, KindPin, ActionView, nil},
		{"anonymous reads map", Anonymous, KindMap, ActionRead, ErrUnauthenticated},
		{"anonymous writes map", Anonymous, KindMap, ActionWrite, ErrUnauthenticated},
		{"owner writes map", owner, KindMap, ActionWrite, nil},
		{"owner deletes map", owner, KindMap, ActionDelete, nil},
		{"other writes map", other, KindMap, ActionWrite, ErrDenied},
		{"other deletes map", other, KindMap, ActionDelete, ErrDenied},
		{"admin writes map", admin, KindMap, ActionWrite, ErrDenied},
		{"admin deletes map", admin, KindMap, ActionDelete, nil},
		{"admin reads map", admin, KindMap, ActionRead, nil},
		{"admin deletes floor", admin, KindFloor, ActionDelete, nil},
		{"admin creates pin", admin, KindPin, ActionWrite, ErrDenied},
		{"owner creates pin", owner, KindPin, ActionWrite, nil},
		{"other reads floor", other, KindFloor, ActionRead, ErrDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Authorize(tt.actor, Resource{Kind: tt.kind, OwnerID: owner.UserID}, tt.action)
			if !errors.Is(got, tt.want) && got != tt.want {
				t.Errorf("Authorize() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthorizeUnknownEntryDenies(t *testing.T) {
	owner := Actor{UserID: 1, Role: model.RoleUser}
	err := Authorize(owner, Resource{Kind: "user", OwnerID: 1}, ActionWrite)
	if !errors.Is(err, ErrDenied) {
		t.Fatalf("expected ErrDenied for unknown kind, got %v", err)
	}
}

func TestAuthorizeUserAdmin(t *testing.T) {
	admin := Actor{UserID: 10, Role: model.RoleAdmin}
	user := Actor{UserID: 11, Role: model.RoleUser}

	tests := []struct {
		name   string
		actor  Actor
		target uint64
		want   error
	}{
		{"admin manages other", admin, 11, nil},
		{"admin manages self", admin, 10, ErrSelfManagement},
		{"user manages other", user, 10, ErrDenied},
		{"user manages self", user, 11, ErrSelfManagement},
		{"anonymous", Anonymous, 11, ErrUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AuthorizeUserAdmin(tt.actor, tt.target); got != tt.want {
				t.Errorf("AuthorizeUserAdmin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestActorContext(t *testing.T) {
	if got := FromContext(context.Background()); got.Authenticated() {
		t.Fatalf("empty context should yield anonymous actor, got %+v", got)
	}
	a := Actor{UserID: 7, Role: model.RoleAdmin}
	ctx := WithActor(context.Background(), a)
	if got := FromContext(ctx); got != a {
		t.Fatalf("FromContext() = %+v, want %+v", got, a)
	}
	if !FromContext(ctx).IsAdmin() {
		t.Fatal("expected admin actor")
	}
}
