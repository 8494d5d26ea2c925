package model

import "time"

// PublicEditor is a transient anonymous identity scoped to one map.
// EditorToken is a bearer capability and is stored verbatim: it only
// grants pin edits on MapID, so it is treated like a share link
// rather than a password.
type PublicEditor struct {
	ID           string    `json:"editorId"`
	MapID        uint64    `json:"mapId"`
	Nickname     string    `json:"nickname"`
	EditorToken  string    `json:"-"`
	LastActiveAt time.Time `json:"lastActiveAt"`
	CreatedAt    time.Time `json:"createdAt"`
}
