package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/pamfree/internal/apperror"
	"github.com/iliyamo/pamfree/internal/logging"
	"github.com/iliyamo/pamfree/internal/metrics"
	"github.com/iliyamo/pamfree/internal/model"
	"github.com/iliyamo/pamfree/internal/queue"
	"github.com/iliyamo/pamfree/internal/repository"
	"github.com/iliyamo/pamfree/internal/utils"
)

// RegisterEditorInput is the body of POST /api/public/maps/:mapId/editors.
type RegisterEditorInput struct {
	Nickname string `json:"nickname" validate:"notblank,max=64"`
}

// VerifyEditorInput is the body of POST /api/public/editors/verify.
type VerifyEditorInput struct {
	EditorID string `json:"editorId" validate:"required"`
	Token    string `json:"token" validate:"required"`
}

// EditorCredentials accompany every public pin write.
type EditorCredentials struct {
	EditorID string
	Token    string
}

// Registration is returned once, at registration.  Token is not
// retrievable afterwards.
type Registration struct {
	EditorID string `json:"editorId"`
	Nickname string `json:"nickname"`
	Token    string `json:"token"`
}

// Verification is the result of a successful token check.  MapID is the
// public slug of the map the editor is scoped to.
type Verification struct {
	Verified     bool      `json:"verified"`
	EditorID     string    `json:"editorId"`
	Nickname     string    `json:"nickname"`
	MapID        string    `json:"mapId"`
	LastActiveAt time.Time `json:"lastActiveAt"`
}

var errBadEditor = apperror.Unauthorized("invalid editor credentials")

// EditorService issues and checks anonymous editor tokens and performs
// the pin writes those tokens grant.
type EditorService struct {
	*base
	ttl time.Duration
}

// Register creates an editor on a publicly editable map.  Missing maps
// are NotFound, private maps Forbidden.  Nicknames may repeat.
func (s *EditorService) Register(ctx context.Context, slug string, in RegisterEditorInput) (Registration, error) {
	m, err := s.mapBySlug(ctx, slug)
	if err != nil {
		return Registration{}, err
	}
	if !m.IsPubliclyEditable {
		return Registration{}, apperror.Forbidden("map is not publicly editable")
	}
	token, err := utils.NewEditorToken()
	if err != nil {
		return Registration{}, apperror.Internal("generate editor token", err)
	}
	now := s.clock()
	e := &model.PublicEditor{
		ID:           uuid.NewString(),
		MapID:        m.ID,
		Nickname:     strings.TrimSpace(in.Nickname),
		EditorToken:  token,
		LastActiveAt: now,
		CreatedAt:    now,
	}
	if err := s.store.Editors.Create(ctx, e); err != nil {
		return Registration{}, apperror.Internal("create editor", err)
	}
	metrics.EditorRegistrations.Inc()
	s.publish(ctx, queue.ActivityEvent{Type: queue.EditorRegistered, MapSlug: m.MapID, EditorID: e.ID})
	return Registration{EditorID: e.ID, Nickname: e.Nickname, Token: token}, nil
}

// Verify checks an editor id/token pair and marks the editor active.
func (s *EditorService) Verify(ctx context.Context, in VerifyEditorInput) (Verification, error) {
	e, err := s.authenticate(ctx, EditorCredentials{EditorID: in.EditorID, Token: in.Token})
	if err != nil {
		return Verification{}, err
	}
	m, err := s.store.Maps.GetByID(ctx, e.MapID)
	if errors.Is(err, repository.ErrMapNotFound) {
		return Verification{}, errBadEditor
	}
	if err != nil {
		return Verification{}, apperror.Internal("load map", err)
	}
	return Verification{
		Verified:     true,
		EditorID:     e.ID,
		Nickname:     e.Nickname,
		MapID:        m.MapID,
		LastActiveAt: e.LastActiveAt,
	}, nil
}

// authenticate looks the editor up, compares tokens in constant time,
// enforces the idle TTL and refreshes last activity to a strictly later
// instant.
func (s *EditorService) authenticate(ctx context.Context, cred EditorCredentials) (*model.PublicEditor, error) {
	e, err := s.lookup(ctx, cred)
	if err != nil {
		metrics.EditorVerifications.WithLabelValues("rejected").Inc()
		return nil, err
	}
	now := s.clock()
	if s.ttl > 0 && now.Sub(e.LastActiveAt) > s.ttl {
		metrics.EditorVerifications.WithLabelValues("expired").Inc()
		return nil, apperror.Unauthorized("editor session expired")
	}
	if !now.After(e.LastActiveAt) {
		now = e.LastActiveAt.Add(time.Microsecond)
	}
	if err := s.store.Editors.Touch(ctx, e.ID, now); err != nil {
		if errors.Is(err, repository.ErrEditorNotFound) {
			return nil, errBadEditor
		}
		return nil, apperror.Internal("touch editor", err)
	}
	e.LastActiveAt = now
	metrics.EditorVerifications.WithLabelValues("verified").Inc()
	return e, nil
}

func (s *EditorService) lookup(ctx context.Context, cred EditorCredentials) (*model.PublicEditor, error) {
	if cred.EditorID == "" || cred.Token == "" {
		return nil, errBadEditor
	}
	if _, err := uuid.Parse(cred.EditorID); err != nil {
		return nil, errBadEditor
	}
	e, err := s.store.Editors.GetByID(ctx, cred.EditorID)
	if errors.Is(err, repository.ErrEditorNotFound) {
		return nil, errBadEditor
	}
	if err != nil {
		return nil, apperror.Internal("load editor", err)
	}
	if !utils.TokensEqual(e.EditorToken, cred.Token) {
		logging.Ctx(ctx).Debug().Str("editor_id", e.ID).Msg("editor token mismatch")
		return nil, errBadEditor
	}
	return e, nil
}

// publicFloor resolves map and floor for a public write.  The map must
// be publicly editable before credentials are even looked at, and the
// editor must belong to it.
func (s *EditorService) publicFloor(ctx context.Context, cred EditorCredentials, slug string, floorID uint64) (*model.Map, *model.Floor, *model.PublicEditor, error) {
	m, err := s.mapBySlug(ctx, slug)
	if err != nil {
		return nil, nil, nil, err
	}
	if !m.IsPubliclyEditable {
		return nil, nil, nil, apperror.Forbidden("map is not publicly editable")
	}
	e, err := s.authenticate(ctx, cred)
	if err != nil {
		return nil, nil, nil, err
	}
	if e.MapID != m.ID {
		return nil, nil, nil, apperror.Forbidden("editor is not registered for this map")
	}
	f, err := s.floorOf(ctx, m, floorID)
	if err != nil {
		return nil, nil, nil, err
	}
	return m, f, e, nil
}

// ownPin loads a pin and checks the editor created it.
func (s *EditorService) ownPin(ctx context.Context, f *model.Floor, e *model.PublicEditor, pinID uint64) (*model.Pin, error) {
	p, err := s.pinOf(ctx, f, pinID)
	if err != nil {
		return nil, err
	}
	if p.EditorID == nil || *p.EditorID != e.ID {
		return nil, apperror.Forbidden("editors may only change their own pins")
	}
	return p, nil
}

// CreatePin adds a pin attributed to the editor.
func (s *EditorService) CreatePin(ctx context.Context, cred EditorCredentials, slug string, floorID uint64, in CreatePinInput) (*model.Pin, error) {
	m, f, e, err := s.publicFloor(ctx, cred, slug, floorID)
	if err != nil {
		return nil, err
	}
	p := newPin(f.ID, in)
	p.EditorID = &e.ID
	p.EditorNickname = &e.Nickname
	if err := s.store.Pins.Create(ctx, p); err != nil {
		return nil, apperror.Internal("create pin", err)
	}
	s.publish(ctx, queue.ActivityEvent{Type: queue.PinCreated, MapSlug: m.MapID, FloorID: f.ID, PinID: p.ID, EditorID: e.ID})
	return p, nil
}

// UpdatePin changes a pin the editor created.
func (s *EditorService) UpdatePin(ctx context.Context, cred EditorCredentials, slug string, floorID, pinID uint64, in UpdatePinInput) (*model.Pin, error) {
	m, f, e, err := s.publicFloor(ctx, cred, slug, floorID)
	if err != nil {
		return nil, err
	}
	p, err := s.ownPin(ctx, f, e, pinID)
	if err != nil {
		return nil, err
	}
	in.apply(p)
	if err := s.store.Pins.Update(ctx, p); err != nil {
		if errors.Is(err, repository.ErrPinNotFound) {
			return nil, apperror.NotFound("pin not found")
		}
		return nil, apperror.Internal("update pin", err)
	}
	s.publish(ctx, queue.ActivityEvent{Type: queue.PinUpdated, MapSlug: m.MapID, FloorID: f.ID, PinID: p.ID, EditorID: e.ID})
	return p, nil
}

// DeletePin removes a pin the editor created.  A missing pin is
// reported as already deleted.
func (s *EditorService) DeletePin(ctx context.Context, cred EditorCredentials, slug string, floorID, pinID uint64) (DeleteResult, error) {
	m, f, e, err := s.publicFloor(ctx, cred, slug, floorID)
	if err != nil {
		return DeleteResult{}, err
	}
	p, err := s.ownPin(ctx, f, e, pinID)
	if apperror.Is(err, apperror.KindNotFound) {
		return deleteResult(false), nil
	}
	if err != nil {
		return DeleteResult{}, err
	}
	deleted, err := s.store.Pins.Delete(ctx, p.ID)
	if err != nil {
		return DeleteResult{}, apperror.Internal("delete pin", err)
	}
	if deleted {
		s.publish(ctx, queue.ActivityEvent{Type: queue.PinDeleted, MapSlug: m.MapID, FloorID: f.ID, PinID: p.ID, EditorID: e.ID})
	}
	return deleteResult(deleted), nil
}
