package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/pamfree/internal/apperror"
	"github.com/iliyamo/pamfree/internal/authz"
	"github.com/iliyamo/pamfree/internal/model"
	"github.com/iliyamo/pamfree/internal/queue"
	"github.com/iliyamo/pamfree/internal/storage"
	"github.com/iliyamo/pamfree/internal/testutil"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.ActivityEvent
}

func (r *recordingPublisher) Publish(_ context.Context, ev queue.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingPublisher) types() []queue.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]queue.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

// fixedClock returns the same instant until advanced.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	db     *sql.DB
	svc    *Services
	store  *Store
	images *storage.MemoryStore
	events *recordingPublisher
	clock  *fixedClock
	ctx    context.Context
}

func newFixture(t *testing.T, ttl time.Duration) *fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	f := &fixture{
		db:     db,
		store:  NewStore(db),
		images: storage.NewMemoryStore("https://cdn.test"),
		events: &recordingPublisher{},
		clock:  &fixedClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
		ctx:    testutil.Ctx(t),
	}
	f.svc = New(Deps{
		Store:          f.store,
		Auth:           AuthSettings{JWTSecret: "test-secret", AccessTTLMin: 15, RefreshTTLDays: 1, BcryptCost: 4},
		Images:         f.images,
		Events:         f.events,
		EditorTTL:      ttl,
		MaxUploadBytes: 1024,
		Now:            f.clock.Now,
	})
	return f
}

func actorOf(u model.User) authz.Actor { return authz.Actor{UserID: u.ID, Role: u.Role} }

func wantKind(t *testing.T, err error, k apperror.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("want %s error, got nil", k)
	}
	if got := apperror.KindOf(err); got != k {
		t.Fatalf("want %s, got %s (%v)", k, got, err)
	}
}

func ptr[T any](v T) *T { return &v }
