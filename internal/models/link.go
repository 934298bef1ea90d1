package models

import "time"

// OwnershipLink records that one recipe currently displays one image at a
// given position. The count of links referencing an image is its reference
// count; zero links makes the image an orphan.
type OwnershipLink struct {
	RecipeID  int64
	ImageID   int64
	Position  int
	CreatedAt time.Time
}
