// Package queue carries activity events from request handlers to the
// background recorder.  With AMQP_URL set, events travel over RabbitMQ;
// otherwise InlinePublisher hands them to the recorder directly.
package queue

import "time"

// EventType names a mutation.
type EventType string

const (
	MapCreated       EventType = "map.created"
	MapUpdated       EventType = "map.updated"
	MapDeleted       EventType = "map.deleted"
	FloorCreated     EventType = "floor.created"
	FloorUpdated     EventType = "floor.updated"
	FloorDeleted     EventType = "floor.deleted"
	FloorImageSet    EventType = "floor.image_set"
	FloorImageClear  EventType = "floor.image_cleared"
	PinCreated       EventType = "pin.created"
	PinUpdated       EventType = "pin.updated"
	PinDeleted       EventType = "pin.deleted"
	EditorRegistered EventType = "editor.registered"
)

// ActivityEvent is published after a successful mutation.  It names the
// map by slug so consumers can invalidate the public viewer without a
// database lookup.  Exactly one of ActorUserID and EditorID is set.
type ActivityEvent struct {
	Type        EventType `json:"type"`
	MapSlug     string    `json:"mapSlug"`
	FloorID     uint64    `json:"floorId,omitempty"`
	PinID       uint64    `json:"pinId,omitempty"`
	ActorUserID uint64    `json:"actorUserId,omitempty"`
	EditorID    string    `json:"editorId,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}
