package authz

import "errors"

// Kind names a resource type in the ownership chain.
type Kind string

const (
	KindMap   Kind = "map"
	KindFloor Kind = "floor"
	KindPin   Kind = "pin"
)

// Action is what the actor wants to do with a resource.  ActionView is
// the unauthenticated public viewer read; ActionRead is the owner
// dashboard read.
type Action string

const (
	ActionView   Action = "view"
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionDelete Action = "delete"
)

// Rule is the requirement a policy entry imposes.
type Rule int

const (
	// RuleDeny is the zero value so a missing table entry denies.
	RuleDeny Rule = iota
	RuleAnyone
	RuleOwnerOnly
	RuleOwnerOrAdmin
)

var (
	// ErrUnauthenticated means the rule needs a user and the actor is anonymous.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrDenied means the actor is known but lacks rights on the resource.
	ErrDenied = errors.New("forbidden")
)

type policyKey struct {
	kind   Kind
	action Action
}

// policy is the single source of truth for ownership decisions.
// Floors and pins are evaluated against the owner of their map.
var policy = map[policyKey]Rule{
	{KindMap, ActionView}:   RuleAnyone,
	{KindMap, ActionRead}:   RuleOwnerOrAdmin,
	{KindMap, ActionWrite}:  RuleOwnerOnly,
	{KindMap, ActionDelete}: RuleOwnerOrAdmin,

	{KindFloor, ActionView}:   RuleAnyone,
	{KindFloor, ActionRead}:   RuleOwnerOrAdmin,
	{KindFloor, ActionWrite}:  RuleOwnerOnly,
	{KindFloor, ActionDelete}: RuleOwnerOrAdmin,

	{KindPin, ActionView}:   RuleAnyone,
	{KindPin, ActionRead}:   RuleOwnerOrAdmin,
	{KindPin, ActionWrite}:  RuleOwnerOnly,
	{KindPin, ActionDelete}: RuleOwnerOrAdmin,
}

// RuleFor returns the rule configured for kind/action.
func RuleFor(kind Kind, action Action) Rule {
	return policy[policyKey{kind, action}]
}

// Resource identifies the object being acted on.  OwnerID is the user
// id at the top of the ownership chain (the map owner).
type Resource struct {
	Kind    Kind
	OwnerID uint64
}

// Authorize decides whether actor may perform action on res.  It
// returns nil to allow, ErrUnauthenticated or ErrDenied otherwise.
// Existence of res must be established by the caller beforehand.
func Authorize(actor Actor, res Resource, action Action) error {
	rule := RuleFor(res.Kind, action)
	if rule == RuleAnyone {
		return nil
	}
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}
	switch rule {
	case RuleOwnerOnly:
		if actor.UserID == res.OwnerID {
			return nil
		}
	case RuleOwnerOrAdmin:
		if actor.UserID == res.OwnerID || actor.IsAdmin() {
			return nil
		}
	}
	return ErrDenied
}

// ErrSelfManagement is returned when an admin targets their own account
// through the user-management endpoints.
var ErrSelfManagement = errors.New("cannot manage own account via admin endpoints")

// AuthorizeUserAdmin guards the admin user-management endpoints.
// Only admins pass, and never against their own account, regardless
// of role.
func AuthorizeUserAdmin(actor Actor, targetUserID uint64) error {
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}
	if actor.UserID == targetUserID {
		return ErrSelfManagement
	}
	if !actor.IsAdmin() {
		return ErrDenied
	}
	return nil
}
