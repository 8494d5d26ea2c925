package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/pamfree/internal/apperror"
	"github.com/iliyamo/pamfree/internal/authz"
	"github.com/iliyamo/pamfree/internal/model"
	"github.com/iliyamo/pamfree/internal/repository"
	"github.com/iliyamo/pamfree/internal/utils"
)

// RegisterInput is the body of POST /api/auth/register.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"notblank,max=255"`
}

// LoginInput is the body of POST /api/auth/login.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is returned by register, login and refresh.
type Session struct {
	User             model.User `json:"user"`
	AccessToken      string     `json:"accessToken"`
	AccessExpiresAt  time.Time  `json:"accessExpiresAt"`
	RefreshToken     string     `json:"refreshToken"`
	RefreshExpiresAt time.Time  `json:"refreshExpiresAt"`
}

// AuthService issues and renews sessions.
type AuthService struct {
	*base
	cfg AuthSettings
}

// Register creates a user account with the user role and opens a
// session for it.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (Session, error) {
	taken, err := s.store.Users.EmailTaken(ctx, in.Email, 0)
	if err != nil {
		return Session{}, apperror.Internal("check email", err)
	}
	if taken {
		return Session{}, apperror.Conflict("email already registered")
	}
	u, err := s.store.Users.Create(ctx, in.Email, in.Password, in.Name, model.RoleUser, s.cfg.BcryptCost)
	if errors.Is(err, repository.ErrEmailExists) {
		return Session{}, apperror.Conflict("email already registered")
	}
	if err != nil {
		return Session{}, apperror.Internal("create user", err)
	}
	return s.issue(ctx, u, "")
}

// Login checks credentials.  Unknown emails and wrong passwords fail
// the same way and take the same time.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (Session, error) {
	u, err := s.store.Users.GetByEmail(ctx, in.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		utils.BurnPasswordCheck(in.Password)
		return Session{}, apperror.Unauthorized("invalid credentials")
	}
	if err != nil {
		return Session{}, apperror.Internal("load user", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, in.Password) {
		return Session{}, apperror.Unauthorized("invalid credentials")
	}
	return s.issue(ctx, u, "")
}

// Refresh rotates a refresh token: the presented one is revoked and a
// new pair is issued.  A token can be rotated once; a concurrent second
// use fails as invalid.
func (s *AuthService) Refresh(ctx context.Context, raw string) (Session, error) {
	if raw == "" {
		return Session{}, apperror.BadRequest("refreshToken is required")
	}
	hash := utils.HashRefreshRaw(raw)
	uid, err := s.store.Tokens.ValidateRefresh(ctx, hash)
	if errors.Is(err, repository.ErrRefreshInvalid) {
		return Session{}, apperror.Unauthorized("invalid refresh token")
	}
	if err != nil {
		return Session{}, apperror.Internal("validate refresh token", err)
	}
	u, err := s.store.Users.GetByID(ctx, uid)
	if errors.Is(err, repository.ErrUserNotFound) {
		return Session{}, apperror.Unauthorized("invalid refresh token")
	}
	if err != nil {
		return Session{}, apperror.Internal("load user", err)
	}
	return s.issue(ctx, u, hash)
}

// Logout revokes raw when given.  Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	if err := s.store.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(raw)); err != nil {
		return apperror.Internal("revoke refresh token", err)
	}
	return nil
}

// LogoutAll revokes every refresh token of the calling user.
func (s *AuthService) LogoutAll(ctx context.Context, actor authz.Actor) error {
	if err := s.requireUser(ctx, actor); err != nil {
		return err
	}
	if err := s.store.Tokens.RevokeAllForUser(ctx, actor.UserID); err != nil {
		return apperror.Internal("revoke refresh tokens", err)
	}
	return nil
}

// issue signs an access token and stores a new refresh token.  With
// rotateFrom set, that refresh token is revoked in the same step.
func (s *AuthService) issue(ctx context.Context, u model.User, rotateFrom string) (Session, error) {
	at, err := utils.NewAccessToken(s.cfg.JWTSecret, u.ID, u.Role, s.cfg.AccessTTLMin)
	if err != nil {
		return Session{}, apperror.Internal("sign access token", err)
	}
	rt, err := utils.NewRefreshToken(s.cfg.RefreshTTLDays)
	if err != nil {
		return Session{}, apperror.Internal("generate refresh token", err)
	}
	newHash := utils.HashRefreshRaw(rt.Raw)
	if rotateFrom != "" {
		err = s.store.Tokens.Rotate(ctx, u.ID, rotateFrom, newHash, rt.Exp)
		if errors.Is(err, repository.ErrRefreshInvalid) {
			return Session{}, apperror.Unauthorized("invalid refresh token")
		}
	} else {
		err = s.store.Tokens.StoreRefresh(ctx, u.ID, newHash, rt.Exp)
	}
	if err != nil {
		return Session{}, apperror.Internal("store refresh token", err)
	}
	return Session{
		User:             u,
		AccessToken:      at.Token,
		AccessExpiresAt:  at.Exp,
		RefreshToken:     rt.Raw,
		RefreshExpiresAt: rt.Exp,
	}, nil
}
