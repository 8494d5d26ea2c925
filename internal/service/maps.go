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

// CreateMapInput is the body of POST /api/maps.
type CreateMapInput struct {
	MapID              string `json:"mapId" validate:"required,max=128,slug"`
	Title              string `json:"title" validate:"notblank,max=255"`
	Description        string `json:"description" validate:"max=10000"`
	IsPubliclyEditable bool   `json:"isPubliclyEditable"`
}

// UpdateMapInput is the body of PATCH /api/maps/:mapId.  The slug is
// immutable.
type UpdateMapInput struct {
	Title              *string `json:"title" validate:"omitempty,notblank,max=255"`
	Description        *string `json:"description" validate:"omitempty,max=10000"`
	IsPubliclyEditable *bool   `json:"isPubliclyEditable"`
}

// FloorView is a floor with its pins, as served to the public viewer.
type FloorView struct {
	*model.Floor
	Pins []*model.Pin `json:"pins"`
}

// Viewer is the public, unauthenticated representation of a map.
type Viewer struct {
	Map    *model.Map   `json:"map"`
	Floors []*FloorView `json:"floors"`
}

// MapService manages maps.
type MapService struct {
	*base
}

// Create stores a new map owned by the actor.  A taken slug is a
// Conflict and creates nothing.
func (s *MapService) Create(ctx context.Context, actor authz.Actor, in CreateMapInput) (*model.Map, error) {
	if err := s.requireUser(ctx, actor); err != nil {
		return nil, err
	}
	exists, err := s.store.Maps.SlugExists(ctx, in.MapID)
	if err != nil {
		return nil, apperror.Internal("check map id", err)
	}
	if exists {
		return nil, apperror.Conflict("map id already exists")
	}
	m := &model.Map{
		MapID:              in.MapID,
		Title:              strings.TrimSpace(in.Title),
		Description:        in.Description,
		OwnerUserID:        actor.UserID,
		IsPubliclyEditable: in.IsPubliclyEditable,
	}
	if err := s.store.Maps.Create(ctx, m); err != nil {
		if errors.Is(err, repository.ErrMapIDExists) {
			return nil, apperror.Conflict("map id already exists")
		}
		return nil, apperror.Internal("create map", err)
	}
	s.publish(ctx, queue.ActivityEvent{Type: queue.MapCreated, MapSlug: m.MapID, ActorUserID: actor.UserID})
	return m, nil
}

// List returns the actor's own maps.
func (s *MapService) List(ctx context.Context, actor authz.Actor) ([]*model.Map, error) {
	if err := s.requireUser(ctx, actor); err != nil {
		return nil, err
	}
	maps, err := s.store.Maps.ListByOwner(ctx, actor.UserID)
	if err != nil {
		return nil, apperror.Internal("list maps", err)
	}
	return maps, nil
}

// Get returns a map for its owner or an admin.
func (s *MapService) Get(ctx context.Context, actor authz.Actor, slug string) (*model.Map, error) {
	m, err := s.mapBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, authz.KindMap, m, authz.ActionRead); err != nil {
		return nil, err
	}
	return m, nil
}

// Update applies the non-nil fields of in.  Owner only.
func (s *MapService) Update(ctx context.Context, actor authz.Actor, slug string, in UpdateMapInput) (*model.Map, error) {
	m, err := s.mapBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, authz.KindMap, m, authz.ActionWrite); err != nil {
		return nil, err
	}
	if in.Title != nil {
		m.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		m.Description = *in.Description
	}
	if in.IsPubliclyEditable != nil {
		m.IsPubliclyEditable = *in.IsPubliclyEditable
	}
	if err := s.store.Maps.Update(ctx, m); err != nil {
		if errors.Is(err, repository.ErrMapNotFound) {
			return nil, apperror.NotFound("map not found")
		}
		return nil, apperror.Internal("update map", err)
	}
	s.publish(ctx, queue.ActivityEvent{Type: queue.MapUpdated, MapSlug: m.MapID, ActorUserID: actor.UserID})
	return m, nil
}

// Delete removes the map, its floors, their pins and the map's public
// editors, then the floor images.  A missing map is reported as
// already deleted.
func (s *MapService) Delete(ctx context.Context, actor authz.Actor, slug string) (DeleteResult, error) {
	if err := s.requireUser(ctx, actor); err != nil {
		return DeleteResult{}, err
	}
	m, err := s.mapBySlug(ctx, slug)
	if apperror.Is(err, apperror.KindNotFound) {
		return deleteResult(false), nil
	}
	if err != nil {
		return DeleteResult{}, err
	}
	if err := s.authorize(ctx, actor, authz.KindMap, m, authz.ActionDelete); err != nil {
		return DeleteResult{}, err
	}
	floors, err := s.store.Floors.ListByMap(ctx, m.ID)
	if err != nil {
		return DeleteResult{}, apperror.Internal("list floors", err)
	}
	deleted, err := s.store.Maps.Delete(ctx, m.ID)
	if err != nil {
		return DeleteResult{}, apperror.Internal("delete map", err)
	}
	s.removeImages(ctx, imageKeys(floors))
	if deleted {
		s.publish(ctx, queue.ActivityEvent{Type: queue.MapDeleted, MapSlug: m.MapID, ActorUserID: actor.UserID})
	}
	return deleteResult(deleted), nil
}

// View builds the public viewer payload.  Anyone may call it.
func (s *MapService) View(ctx context.Context, actor authz.Actor, slug string) (*Viewer, error) {
	m, err := s.mapBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, authz.KindMap, m, authz.ActionView); err != nil {
		return nil, err
	}
	floors, err := s.store.Floors.ListByMap(ctx, m.ID)
	if err != nil {
		return nil, apperror.Internal("list floors", err)
	}
	pins, err := s.store.Pins.ListByMap(ctx, m.ID)
	if err != nil {
		return nil, apperror.Internal("list pins", err)
	}
	byFloor := make(map[uint64][]*model.Pin, len(floors))
	for _, p := range pins {
		byFloor[p.FloorID] = append(byFloor[p.FloorID], p)
	}
	out := &Viewer{Map: m, Floors: make([]*FloorView, 0, len(floors))}
	for _, f := range floors {
		fp := byFloor[f.ID]
		if fp == nil {
			fp = []*model.Pin{}
		}
		out.Floors = append(out.Floors, &FloorView{Floor: f, Pins: fp})
	}
	return out, nil
}
