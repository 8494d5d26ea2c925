package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/pamfree/internal/apperror"
	"github.com/iliyamo/pamfree/internal/authz"
	"github.com/iliyamo/pamfree/internal/model"
	"github.com/iliyamo/pamfree/internal/queue"
	"github.com/iliyamo/pamfree/internal/repository"
	"github.com/iliyamo/pamfree/internal/utils"
)

// ProfileInput is the body of PATCH /api/me.  Nil fields are unchanged.
type ProfileInput struct {
	Name  *string `json:"name" validate:"omitempty,notblank,max=255"`
	Email *string `json:"email" validate:"omitempty,email,max=255"`
}

// PasswordInput is the body of PUT /api/me/password.
type PasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72"`
}

// RoleInput is the body of PATCH /api/admin/users/:userId/role.
type RoleInput struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

// UserService covers the caller's own profile and admin user
// management.
type UserService struct {
	*base
	cost int
}

func (s *UserService) load(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.store.Users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return model.User{}, apperror.NotFound("user not found")
	}
	if err != nil {
		return model.User{}, apperror.Internal("load user", err)
	}
	return u, nil
}

// Me returns the caller's account.
func (s *UserService) Me(ctx context.Context, actor authz.Actor) (model.User, error) {
	if err := s.requireUser(ctx, actor); err != nil {
		return model.User{}, err
	}
	return s.load(ctx, actor.UserID)
}

// UpdateProfile changes name and/or email.  A taken email is a
// Conflict.
func (s *UserService) UpdateProfile(ctx context.Context, actor authz.Actor, in ProfileInput) (model.User, error) {
	u, err := s.Me(ctx, actor)
	if err != nil {
		return model.User{}, err
	}
	name, email := u.Name, u.Email
	if in.Name != nil {
		name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		email = *in.Email
		taken, err := s.store.Users.EmailTaken(ctx, email, u.ID)
		if err != nil {
			return model.User{}, apperror.Internal("check email", err)
		}
		if taken {
			return model.User{}, apperror.Conflict("email already registered")
		}
	}
	err = s.store.Users.UpdateProfile(ctx, u.ID, name, email)
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return model.User{}, apperror.Conflict("email already registered")
	case errors.Is(err, repository.ErrUserNotFound):
		return model.User{}, apperror.NotFound("user not found")
	case err != nil:
		return model.User{}, apperror.Internal("update profile", err)
	}
	return s.load(ctx, u.ID)
}

// ChangePassword verifies the current password, stores the new one and
// revokes every refresh token of the account.
func (s *UserService) ChangePassword(ctx context.Context, actor authz.Actor, in PasswordInput) error {
	u, err := s.Me(ctx, actor)
	if err != nil {
		return err
	}
	if !utils.VerifyPassword(u.PasswordHash, in.CurrentPassword) {
		return apperror.Unauthorized("current password is incorrect")
	}
	hash, err := utils.HashPassword(in.NewPassword, s.cost)
	if err != nil {
		return apperror.Internal("hash password", err)
	}
	if err := s.store.Users.UpdatePasswordHash(ctx, u.ID, hash); err != nil {
		return apperror.Internal("update password", err)
	}
	if err := s.store.Tokens.RevokeAllForUser(ctx, u.ID); err != nil {
		return apperror.Internal("revoke sessions", err)
	}
	return nil
}

// List returns every account.  Admin only.
func (s *UserService) List(ctx context.Context, actor authz.Actor) ([]model.User, error) {
	if err := s.requireUser(ctx, actor); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, apperror.Forbidden("admin role required")
	}
	users, err := s.store.Users.List(ctx)
	if err != nil {
		return nil, apperror.Internal("list users", err)
	}
	return users, nil
}

func adminError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, authz.ErrUnauthenticated):
		return apperror.Unauthorized("authentication required")
	case errors.Is(err, authz.ErrSelfManagement):
		return apperror.Forbidden("you cannot change your own account through admin endpoints")
	default:
		return apperror.Forbidden("admin role required")
	}
}

// SetRole changes another user's role.
func (s *UserService) SetRole(ctx context.Context, actor authz.Actor, targetID uint64, in RoleInput) (model.User, error) {
	if err := s.requireUser(ctx, actor); err != nil {
		return model.User{}, err
	}
	if err := adminError(authz.AuthorizeUserAdmin(actor, targetID)); err != nil {
		return model.User{}, err
	}
	if !model.ValidRole(in.Role) {
		return model.User{}, apperror.BadRequest("role must be one of: user admin")
	}
	if _, err := s.load(ctx, targetID); err != nil {
		return model.User{}, err
	}
	if err := s.store.Users.UpdateRole(ctx, targetID, in.Role); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.User{}, apperror.NotFound("user not found")
		}
		return model.User{}, apperror.Internal("update role", err)
	}
	return s.load(ctx, targetID)
}

// Delete removes another user with every map they own.  Deleting a
// missing user succeeds with Deleted false.
func (s *UserService) Delete(ctx context.Context, actor authz.Actor, targetID uint64) (DeleteResult, error) {
	if err := s.requireUser(ctx, actor); err != nil {
		return DeleteResult{}, err
	}
	if err := adminError(authz.AuthorizeUserAdmin(actor, targetID)); err != nil {
		return DeleteResult{}, err
	}
	maps, err := s.store.Maps.ListByOwner(ctx, targetID)
	if err != nil {
		return DeleteResult{}, apperror.Internal("list maps", err)
	}
	var keys []string
	for _, m := range maps {
		floors, err := s.store.Floors.ListByMap(ctx, m.ID)
		if err != nil {
			return DeleteResult{}, apperror.Internal("list floors", err)
		}
		keys = append(keys, imageKeys(floors)...)
	}
	deleted, err := s.store.Users.Delete(ctx, targetID)
	if err != nil {
		return DeleteResult{}, apperror.Internal("delete user", err)
	}
	s.removeImages(ctx, keys)
	for _, m := range maps {
		s.publish(ctx, queue.ActivityEvent{Type: queue.MapDeleted, MapSlug: m.MapID, ActorUserID: actor.UserID})
	}
	return deleteResult(deleted), nil
}
