package model

import "time"

// Pin is a positional annotation on a floor.  XPosition and
// YPosition live in the coordinate space of the floor image and are
// stored unclamped.  EditorID and EditorNickname are only set when
// the pin was created by an anonymous public editor.
type Pin struct {
	ID             uint64    `json:"id"`
	FloorID        uint64    `json:"floorId"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	XPosition      float64   `json:"xPosition"`
	YPosition      float64   `json:"yPosition"`
	EditorID       *string   `json:"editorId"`
	EditorNickname *string   `json:"editorNickname"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
