package model

import "time"

// Floor is a single floor plan of a map.  MapID holds the owning
// map's internal id, not its slug.  ImageKey is the object storage
// key of the attached image and is needed to remove it again; it is
// never exposed to clients.
type Floor struct {
	ID          uint64    `json:"id"`
	MapID       uint64    `json:"mapId"`
	FloorNumber int       `json:"floorNumber"`
	Name        string    `json:"name"`
	ImageURL    *string   `json:"imageUrl"`
	ImageKey    *string   `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
