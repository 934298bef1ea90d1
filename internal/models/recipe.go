package models

import "time"

// Recipe is the owning side of ownership links. The service treats it as an
// opaque identity; titles, ingredients and variant semantics live elsewhere.
type Recipe struct {
	ID        int64
	PublicID  string
	CreatedAt time.Time
}
