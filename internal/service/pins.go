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
)

// CreatePinInput is the body of a pin create, owner or public.
// Coordinates are stored as given.
type CreatePinInput struct {
	Title       string   `json:"title" validate:"notblank,max=255"`
	Description string   `json:"description" validate:"max=10000"`
	XPosition   *float64 `json:"xPosition" validate:"required"`
	YPosition   *float64 `json:"yPosition" validate:"required"`
}

// UpdatePinInput is the body of a pin patch.  Nil fields are unchanged.
type UpdatePinInput struct {
	Title       *string  `json:"title" validate:"omitempty,notblank,max=255"`
	Description *string  `json:"description" validate:"omitempty,max=10000"`
	XPosition   *float64 `json:"xPosition"`
	YPosition   *float64 `json:"yPosition"`
}

func (in UpdatePinInput) apply(p *model.Pin) {
	if in.Title != nil {
		p.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.XPosition != nil {
		p.XPosition = *in.XPosition
	}
	if in.YPosition != nil {
		p.YPosition = *in.YPosition
	}
}

func newPin(floorID uint64, in CreatePinInput) *model.Pin {
	p := &model.Pin{FloorID: floorID, Title: strings.TrimSpace(in.Title), Description: in.Description}
	if in.XPosition != nil {
		p.XPosition = *in.XPosition
	}
	if in.YPosition != nil {
		p.YPosition = *in.YPosition
	}
	return p
}

// PinService manages pins through an owner session.  Anonymous editors
// go through EditorService.
type PinService struct {
	*base
}

func (s *PinService) resolve(ctx context.Context, actor authz.Actor, slug string, floorID uint64, action authz.Action) (*model.Map, *model.Floor, error) {
	m, err := s.mapBySlug(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	if err := s.authorize(ctx, actor, authz.KindPin, m, action); err != nil {
		return nil, nil, err
	}
	f, err := s.floorOf(ctx, m, floorID)
	if err != nil {
		return nil, nil, err
	}
	return m, f, nil
}

// List returns the pins of a floor for the owner or an admin.
func (s *PinService) List(ctx context.Context, actor authz.Actor, slug string, floorID uint64) ([]*model.Pin, error) {
	_, f, err := s.resolve(ctx, actor, slug, floorID, authz.ActionRead)
	if err != nil {
		return nil, err
	}
	pins, err := s.store.Pins.ListByFloor(ctx, f.ID)
	if err != nil {
		return nil, apperror.Internal("list pins", err)
	}
	return pins, nil
}

// Create adds an owner pin.  Owner only; admins are not considered.
func (s *PinService) Create(ctx context.Context, actor authz.Actor, slug string, floorID uint64, in CreatePinInput) (*model.Pin, error) {
	m, f, err := s.resolve(ctx, actor, slug, floorID, authz.ActionWrite)
	if err != nil {
		return nil, err
	}
	p := newPin(f.ID, in)
	if err := s.store.Pins.Create(ctx, p); err != nil {
		return nil, apperror.Internal("create pin", err)
	}
	s.publish(ctx, queue.ActivityEvent{Type: queue.PinCreated, MapSlug: m.MapID, FloorID: f.ID, PinID: p.ID, ActorUserID: actor.UserID})
	return p, nil
}

// Update changes a pin.  Owner only.
func (s *PinService) Update(ctx context.Context, actor authz.Actor, slug string, floorID, pinID uint64, in UpdatePinInput) (*model.Pin, error) {
	m, f, err := s.resolve(ctx, actor, slug, floorID, authz.ActionWrite)
	if err != nil {
		return nil, err
	}
	p, err := s.pinOf(ctx, f, pinID)
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
	s.publish(ctx, queue.ActivityEvent{Type: queue.PinUpdated, MapSlug: m.MapID, FloorID: f.ID, PinID: p.ID, ActorUserID: actor.UserID})
	return p, nil
}

// Delete removes a pin.  A missing pin is reported as already deleted.
func (s *PinService) Delete(ctx context.Context, actor authz.Actor, slug string, floorID, pinID uint64) (DeleteResult, error) {
	m, f, err := s.resolve(ctx, actor, slug, floorID, authz.ActionDelete)
	if err != nil {
		return DeleteResult{}, err
	}
	p, err := s.pinOf(ctx, f, pinID)
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
		s.publish(ctx, queue.ActivityEvent{Type: queue.PinDeleted, MapSlug: m.MapID, FloorID: f.ID, PinID: p.ID, ActorUserID: actor.UserID})
	}
	return deleteResult(deleted), nil
}
