package queue

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Handler processes one activity event.
type Handler interface {
	Handle(ctx context.Context, ev ActivityEvent) error
}

// Invalidator drops cached responses for a request path.
type Invalidator interface {
	InvalidatePath(ctx context.Context, path string) error
}

// ViewerPath is the public viewer URL path for a map slug.  The cached
// response stored under it is stale after any event on that map.
func ViewerPath(mapSlug string) string {
	return "/api/public/maps/" + mapSlug
}

// ActivityRecorder appends each event to a log file and invalidates the
// cached public viewer for the affected map.
type ActivityRecorder struct {
	Path  string
	Cache Invalidator

	mu sync.Mutex
}

func NewActivityRecorder(path string, cache Invalidator) *ActivityRecorder {
	return &ActivityRecorder{Path: path, Cache: cache}
}

func (r *ActivityRecorder) Handle(ctx context.Context, ev ActivityEvent) error {
	if r.Cache != nil && ev.MapSlug != "" {
		if err := r.Cache.InvalidatePath(ctx, ViewerPath(ev.MapSlug)); err != nil {
			return fmt.Errorf("invalidate viewer: %w", err)
		}
	}
	if r.Path == "" {
		return nil
	}
	return r.append(FormatLine(ev))
}

func (r *ActivityRecorder) append(line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(r.Path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(r.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders ev as a single human-readable log line.
func FormatLine(ev ActivityEvent) string {
	at := ev.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}
	parts := []string{
		fmt.Sprintf("[%s] %s", at.UTC().Format(time.RFC3339), ev.Type),
		"map=" + ev.MapSlug,
	}
	if ev.FloorID != 0 {
		parts = append(parts, fmt.Sprintf("floor_id=%d", ev.FloorID))
	}
	if ev.PinID != 0 {
		parts = append(parts, fmt.Sprintf("pin_id=%d", ev.PinID))
	}
	switch {
	case ev.EditorID != "":
		parts = append(parts, "editor="+ev.EditorID)
	case ev.ActorUserID != 0:
		parts = append(parts, fmt.Sprintf("user_id=%d", ev.ActorUserID))
	}
	return strings.Join(parts, " | ") + "\n"
}
