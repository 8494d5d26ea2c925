package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/pamfree/internal/apperror"
	"github.com/iliyamo/pamfree/internal/authz"
	"github.com/iliyamo/pamfree/internal/metrics"
	"github.com/iliyamo/pamfree/internal/model"
	"github.com/iliyamo/pamfree/internal/queue"
	"github.com/iliyamo/pamfree/internal/repository"
	"github.com/iliyamo/pamfree/internal/storage"
)

// CreateFloorInput is the body of POST /api/maps/:mapId/floors.
type CreateFloorInput struct {
	FloorNumber int    `json:"floorNumber" validate:"min=-100,max=1000"`
	Name        string `json:"name" validate:"notblank,max=255"`
}

// UpdateFloorInput is the body of PATCH .../floors/:floorId.
type UpdateFloorInput struct {
	FloorNumber *int    `json:"floorNumber" validate:"omitempty,min=-100,max=1000"`
	Name        *string `json:"name" validate:"omitempty,notblank,max=255"`
}

// ImageUpload is a floor image read fully into memory.
type ImageUpload struct {
	FileName string
	Data     []byte
}

// FloorService manages floors and their images.
type FloorService struct {
	*base
	maxUpload int64
}

// List returns the floors of a map for its owner or an admin.
func (s *FloorService) List(ctx context.Context, actor authz.Actor, slug string) ([]*model.Floor, error) {
	m, err := s.mapBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, authz.KindFloor, m, authz.ActionRead); err != nil {
		return nil, err
	}
	floors, err := s.store.Floors.ListByMap(ctx, m.ID)
	if err != nil {
		return nil, apperror.Internal("list floors", err)
	}
	return floors, nil
}

// Create adds a floor to a map.  Owner only.
func (s *FloorService) Create(ctx context.Context, actor authz.Actor, slug string, in CreateFloorInput) (*model.Floor, error) {
	m, err := s.mapBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, authz.KindFloor, m, authz.ActionWrite); err != nil {
		return nil, err
	}
	f := &model.Floor{MapID: m.ID, FloorNumber: in.FloorNumber, Name: strings.TrimSpace(in.Name)}
	if err := s.store.Floors.Create(ctx, f); err != nil {
		return nil, apperror.Internal("create floor", err)
	}
	s.publish(ctx, queue.ActivityEvent{Type: queue.FloorCreated, MapSlug: m.MapID, FloorID: f.ID, ActorUserID: actor.UserID})
	return f, nil
}

// Update applies the non-nil fields of in.  Owner only.
func (s *FloorService) Update(ctx context.Context, actor authz.Actor, slug string, floorID uint64, in UpdateFloorInput) (*model.Floor, error) {
	m, f, err := s.writableFloor(ctx, actor, slug, floorID)
	if err != nil {
		return nil, err
	}
	if in.FloorNumber != nil {
		f.FloorNumber = *in.FloorNumber
	}
	if in.Name != nil {
		f.Name = strings.TrimSpace(*in.Name)
	}
	if err := s.store.Floors.Update(ctx, f); err != nil {
		if errors.Is(err, repository.ErrFloorNotFound) {
			return nil, apperror.NotFound("floor not found")
		}
		return nil, apperror.Internal("update floor", err)
	}
	s.publish(ctx, queue.ActivityEvent{Type: queue.FloorUpdated, MapSlug: m.MapID, FloorID: f.ID, ActorUserID: actor.UserID})
	return f, nil
}

// Delete removes a floor and its pins, then its image.  The map must
// exist; a missing floor is reported as already deleted.
func (s *FloorService) Delete(ctx context.Context, actor authz.Actor, slug string, floorID uint64) (DeleteResult, error) {
	m, err := s.mapBySlug(ctx, slug)
	if err != nil {
		return DeleteResult{}, err
	}
	if err := s.authorize(ctx, actor, authz.KindFloor, m, authz.ActionDelete); err != nil {
		return DeleteResult{}, err
	}
	f, err := s.floorOf(ctx, m, floorID)
	if apperror.Is(err, apperror.KindNotFound) {
		return deleteResult(false), nil
	}
	if err != nil {
		return DeleteResult{}, err
	}
	deleted, err := s.store.Floors.Delete(ctx, f.ID)
	if err != nil {
		return DeleteResult{}, apperror.Internal("delete floor", err)
	}
	s.removeImages(ctx, imageKeys([]*model.Floor{f}))
	if deleted {
		s.publish(ctx, queue.ActivityEvent{Type: queue.FloorDeleted, MapSlug: m.MapID, FloorID: f.ID, ActorUserID: actor.UserID})
	}
	return deleteResult(deleted), nil
}

// SetImage uploads img and attaches it to the floor, replacing and
// removing any previous image.
func (s *FloorService) SetImage(ctx context.Context, actor authz.Actor, slug string, floorID uint64, img ImageUpload) (*model.Floor, error) {
	m, f, err := s.writableFloor(ctx, actor, slug, floorID)
	if err != nil {
		return nil, err
	}
	if len(img.Data) == 0 {
		return nil, apperror.BadRequest("file is required")
	}
	if s.maxUpload > 0 && int64(len(img.Data)) > s.maxUpload {
		return nil, apperror.BadRequest("file is too large")
	}
	ctype := storage.ImageType(img.Data)
	if ctype == "" {
		return nil, apperror.BadRequest("file must be a png, jpeg, gif or webp image")
	}
	if s.images == nil {
		return nil, apperror.Internal("upload floor image", storage.ErrNotConfigured)
	}

	key := storage.FloorImageKey(m.MapID, f.ID, img.FileName, ctype, s.clock())
	url, err := s.images.Upload(ctx, key, img.Data, ctype)
	metrics.StorageOperations.WithLabelValues("upload", metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, apperror.Internal("upload floor image", err)
	}
	old := imageKeys([]*model.Floor{f})
	if err := s.store.Floors.SetImage(ctx, f, &url, &key); err != nil {
		s.removeImages(ctx, []string{key})
		if errors.Is(err, repository.ErrFloorNotFound) {
			return nil, apperror.NotFound("floor not found")
		}
		return nil, apperror.Internal("attach floor image", err)
	}
	s.removeImages(ctx, old)
	s.publish(ctx, queue.ActivityEvent{Type: queue.FloorImageSet, MapSlug: m.MapID, FloorID: f.ID, ActorUserID: actor.UserID})
	return f, nil
}

// ClearImage detaches and deletes the floor image.  A floor without an
// image is returned unchanged.
func (s *FloorService) ClearImage(ctx context.Context, actor authz.Actor, slug string, floorID uint64) (*model.Floor, error) {
	m, f, err := s.writableFloor(ctx, actor, slug, floorID)
	if err != nil {
		return nil, err
	}
	old := imageKeys([]*model.Floor{f})
	if f.ImageURL == nil && len(old) == 0 {
		return f, nil
	}
	if err := s.store.Floors.SetImage(ctx, f, nil, nil); err != nil {
		return nil, apperror.Internal("detach floor image", err)
	}
	s.removeImages(ctx, old)
	s.publish(ctx, queue.ActivityEvent{Type: queue.FloorImageClear, MapSlug: m.MapID, FloorID: f.ID, ActorUserID: actor.UserID})
	return f, nil
}

func (s *FloorService) writableFloor(ctx context.Context, actor authz.Actor, slug string, floorID uint64) (*model.Map, *model.Floor, error) {
	m, err := s.mapBySlug(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	if err := s.authorize(ctx, actor, authz.KindFloor, m, authz.ActionWrite); err != nil {
		return nil, nil, err
	}
	f, err := s.floorOf(ctx, m, floorID)
	if err != nil {
		return nil, nil, err
	}
	return m, f, nil
}
