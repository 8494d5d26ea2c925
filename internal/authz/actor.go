// Package authz holds the access-control model: the request-scoped
// Actor, the resource policy table and the admin user-management
// rule.  Everything here is pure; callers resolve resources first and
// translate denials into transport errors.
package authz

import (
	"context"

	"github.com/iliyamo/pamfree/internal/model"
)

// Actor is the identity behind a request.  The zero value is the
// anonymous actor.
type Actor struct {
	UserID uint64
	Role   string
}

// Anonymous is the actor used when no valid session is present.
var Anonymous = Actor{}

// Authenticated reports whether the actor carries a user session.
func (a Actor) Authenticated() bool { return a.UserID != 0 }

// IsAdmin reports whether the actor is an authenticated admin.
func (a Actor) IsAdmin() bool { return a.Authenticated() && a.Role == model.RoleAdmin }

type actorKey struct{}

// WithActor returns a copy of ctx carrying a.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// FromContext returns the actor stored in ctx, or Anonymous.
func FromContext(ctx context.Context) Actor {
	if a, ok := ctx.Value(actorKey{}).(Actor); ok {
		return a
	}
	return Anonymous
}
