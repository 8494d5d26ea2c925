// Package service implements the application operations on top of the
// repositories.  Every operation follows the same order: resolve the
// resources it names (NotFound), authorize the actor (Unauthorized or
// Forbidden), then perform one persistence call (Internal on failure).
// Errors returned from this package are *apperror.Error.
package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/pamfree/internal/apperror"
	"github.com/iliyamo/pamfree/internal/authz"
	"github.com/iliyamo/pamfree/internal/logging"
	"github.com/iliyamo/pamfree/internal/metrics"
	"github.com/iliyamo/pamfree/internal/model"
	"github.com/iliyamo/pamfree/internal/queue"
	"github.com/iliyamo/pamfree/internal/repository"
	"github.com/iliyamo/pamfree/internal/storage"
)

// Store bundles the repositories over one database handle.
type Store struct {
	Users   *repository.UserRepo
	Tokens  *repository.TokenRepo
	Maps    *repository.MapRepo
	Floors  *repository.FloorRepo
	Pins    *repository.PinRepo
	Editors *repository.EditorRepo
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		Users:   repository.NewUserRepo(db),
		Tokens:  repository.NewTokenRepo(db),
		Maps:    repository.NewMapRepo(db),
		Floors:  repository.NewFloorRepo(db),
		Pins:    repository.NewPinRepo(db),
		Editors: repository.NewEditorRepo(db),
	}
}

// AuthSettings carries the session parameters from config.
type AuthSettings struct {
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
}

// Deps are the collaborators shared by all services.
type Deps struct {
	Store  *Store
	Auth   AuthSettings
	Images storage.ObjectStore
	Events queue.Publisher

	// EditorTTL expires idle public editors; zero disables expiry.
	EditorTTL time.Duration
	// MaxUploadBytes bounds floor images.
	MaxUploadBytes int64
	// Now defaults to time.Now.
	Now func() time.Time
}

// Services is the full set of application services.
type Services struct {
	Auth    *AuthService
	Users   *UserService
	Maps    *MapService
	Floors  *FloorService
	Pins    *PinService
	Editors *EditorService
}

// New wires every service from d.
func New(d Deps) *Services {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Events == nil {
		d.Events = queue.Discard{}
	}
	b := &base{store: d.Store, events: d.Events, images: d.Images, now: d.Now}
	return &Services{
		Auth:    &AuthService{base: b, cfg: d.Auth},
		Users:   &UserService{base: b, cost: d.Auth.BcryptCost},
		Maps:    &MapService{base: b},
		Floors:  &FloorService{base: b, maxUpload: d.MaxUploadBytes},
		Pins:    &PinService{base: b},
		Editors: &EditorService{base: b, ttl: d.EditorTTL},
	}
}

// base holds what every service needs plus the shared resolution and
// authorization helpers.
type base struct {
	store  *Store
	events queue.Publisher
	images storage.ObjectStore
	now    func() time.Time
}

// clock returns now in UTC at the precision the database keeps.
func (b *base) clock() time.Time {
	return b.now().UTC().Truncate(time.Microsecond)
}

func (b *base) mapBySlug(ctx context.Context, slug string) (*model.Map, error) {
	m, err := b.store.Maps.GetBySlug(ctx, slug)
	if errors.Is(err, repository.ErrMapNotFound) {
		return nil, apperror.NotFound("map not found")
	}
	if err != nil {
		return nil, apperror.Internal("load map", err)
	}
	return m, nil
}

// floorOf loads floorID and checks it belongs to m.  A floor on another
// map is reported as missing.
func (b *base) floorOf(ctx context.Context, m *model.Map, floorID uint64) (*model.Floor, error) {
	f, err := b.store.Floors.GetByID(ctx, floorID)
	if errors.Is(err, repository.ErrFloorNotFound) || (err == nil && f.MapID != m.ID) {
		return nil, apperror.NotFound("floor not found")
	}
	if err != nil {
		return nil, apperror.Internal("load floor", err)
	}
	return f, nil
}

// pinOf loads pinID and checks it belongs to f.
func (b *base) pinOf(ctx context.Context, f *model.Floor, pinID uint64) (*model.Pin, error) {
	p, err := b.store.Pins.GetByID(ctx, pinID)
	if errors.Is(err, repository.ErrPinNotFound) || (err == nil && p.FloorID != f.ID) {
		return nil, apperror.NotFound("pin not found")
	}
	if err != nil {
		return nil, apperror.Internal("load pin", err)
	}
	return p, nil
}

// current returns actor unless its session names a user that no longer
// exists, in which case the caller is treated as anonymous.
func (b *base) current(ctx context.Context, actor authz.Actor) (authz.Actor, error) {
	if !actor.Authenticated() {
		return actor, nil
	}
	_, err := b.store.Users.GetByID(ctx, actor.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return authz.Anonymous, nil
	}
	if err != nil {
		return authz.Anonymous, apperror.Internal("load user", err)
	}
	return actor, nil
}

// authorize applies the ownership policy for m's owner.
func (b *base) authorize(ctx context.Context, actor authz.Actor, kind authz.Kind, m *model.Map, action authz.Action) error {
	actor, err := b.current(ctx, actor)
	if err != nil {
		return err
	}
	err = authz.Authorize(actor, authz.Resource{Kind: kind, OwnerID: m.OwnerUserID}, action)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, authz.ErrUnauthenticated):
		return apperror.Unauthorized("authentication required")
	default:
		metrics.AuthzDenied.WithLabelValues(string(kind), string(action)).Inc()
		return apperror.Forbidden("you do not have access to this " + string(kind))
	}
}

func (b *base) requireUser(ctx context.Context, actor authz.Actor) error {
	actor, err := b.current(ctx, actor)
	if err != nil {
		return err
	}
	if !actor.Authenticated() {
		return apperror.Unauthorized("authentication required")
	}
	return nil
}

// publish hands ev to the event pipeline.  Failures are logged only.
func (b *base) publish(ctx context.Context, ev queue.ActivityEvent) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = b.clock()
	}
	err := b.events.Publish(ctx, ev)
	metrics.ActivityPublished.WithLabelValues(string(ev.Type), metrics.Outcome(err)).Inc()
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("event", string(ev.Type)).Str("map", ev.MapSlug).Msg("publish activity failed")
	}
}

// removeImages deletes objects after their rows are gone.  Leftover
// objects are harmless, so failures are logged and skipped.
func (b *base) removeImages(ctx context.Context, keys []string) {
	if b.images == nil {
		return
	}
	for _, k := range keys {
		err := b.images.Delete(ctx, k)
		metrics.StorageOperations.WithLabelValues("delete", metrics.Outcome(err)).Inc()
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("key", k).Msg("delete floor image failed")
		}
	}
}

// imageKeys returns the object keys attached to floors.
func imageKeys(floors []*model.Floor) []string {
	var keys []string
	for _, f := range floors {
		if f.ImageKey != nil && *f.ImageKey != "" {
			keys = append(keys, *f.ImageKey)
		}
	}
	return keys
}

// DeleteResult is returned by every delete.  Deleted is false when the
// target was already gone, which is still a success.
type DeleteResult struct {
	Message string `json:"message"`
	Deleted bool   `json:"deleted"`
}

func deleteResult(deleted bool) DeleteResult {
	if deleted {
		return DeleteResult{Message: "deleted", Deleted: true}
	}
	return DeleteResult{Message: "already deleted", Deleted: false}
}
