package models

import "time"

type ImageStatus string

const (
	// ImageStatusProcessing covers both freshly uploaded images that no recipe
	// has claimed yet and images that lost their last ownership link. Either
	// way the image is unclaimed and the reclaim sweep may collect it once the
	// abandonment window elapses.
	ImageStatusProcessing ImageStatus = "processing"
	ImageStatusActive     ImageStatus = "active"
)

type ImageKind string

const (
	ImageKindCover ImageKind = "cover"
	ImageKindStep  ImageKind = "step"
	ImageKindLog   ImageKind = "log"
)

type Image struct {
	ID         int64
	PublicID   string
	ObjectKey  string
	FileName   string
	Kind       ImageKind
	Status     ImageStatus
	UploaderID string
	Position   int
	// RecipeID is the legacy single-owner reference that predates the
	// recipe_images join table. First claimer wins; cleared when that claimer
	// drops its link and the image becomes an orphan.
	RecipeID          *int64
	Checksum          []byte
	SizeBytes         int64
	OrphanedAt        *time.Time
	DeletedAt         *time.Time
	DeleteScheduledAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// SoftDeleted reports whether the image currently carries a deletion schedule
// mirrored from its uploader's account.
func (i Image) SoftDeleted() bool {
	return i.DeletedAt != nil
}
