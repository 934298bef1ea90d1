package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"platepix/api/internal/ids"
	"platepix/api/internal/repository"
	"platepix/api/internal/service"
)

type recipeImagesRequest struct {
	ImageIDs []string `json:"imageIds"`
}

func (h HandlerSet) CreateRecipe(c *gin.Context) {
	recipe, err := h.recipes.Create(c.Request.Context(), ids.New())
	if err != nil {
		h.log.Error().Err(err).Msg("create recipe failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"recipe": gin.H{
			"id":        recipe.PublicID,
			"createdAt": recipe.CreatedAt,
		},
	})
}

// AttachImages links uploaded images to the recipe without touching links the
// recipe already holds.
func (h HandlerSet) AttachImages(c *gin.Context) {
	h.mutateGallery(c, h.gallery.AttachImages)
}

// SyncImages replaces the recipe's image set with the requested ordered set.
func (h HandlerSet) SyncImages(c *gin.Context) {
	h.mutateGallery(c, h.gallery.SyncImages)
}

func (h HandlerSet) mutateGallery(c *gin.Context, op func(ctx context.Context, recipeID int64, publicIDs []string) error) {
	recipe, err := h.recipes.GetByPublicID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrRecipeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "recipe_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	var req recipeImagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return
	}

	if err := op(c.Request.Context(), recipe.ID, req.ImageIDs); err != nil {
		switch {
		case errors.Is(err, repository.ErrImageNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "image_not_found"})
		case errors.Is(err, service.ErrImageUnavailable):
			c.JSON(http.StatusConflict, gin.H{"error": "image_unavailable"})
		default:
			h.log.Error().Err(err).Str("recipe_id", recipe.PublicID).Msg("gallery update failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		}
		return
	}

	c.Status(http.StatusNoContent)
}
