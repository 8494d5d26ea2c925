package model

import "time"

// Map is the root of the ownership chain.  MapID is the public slug
// used in every URL; ID is the internal key referenced by floors and
// public editors.  A map is owned exclusively by OwnerUserID.
//
// Fields:
//
//	ID                 – primary key identifier.
//	MapID              – unique public slug.
//	Title              – display title.
//	Description        – free text, may be empty.
//	OwnerUserID        – users.id of the owner.
//	IsPubliclyEditable – whether anonymous editors may register and add pins.
//	CreatedAt          – creation timestamp.
//	UpdatedAt          – last update timestamp.
type Map struct {
	ID                 uint64    `json:"id"`
	MapID              string    `json:"mapId"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	OwnerUserID        uint64    `json:"ownerUserId"`
	IsPubliclyEditable bool      `json:"isPubliclyEditable"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}
