package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (h HandlerSet) AdminListImages(c *gin.Context) {
	limit := 50
	offset := 0

	if perPage := c.Query("perPage"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	if page := c.Query("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 1 {
			offset = (v - 1) * limit
		}
	}

	images, err := h.images.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]map[string]interface{}, 0, len(images))
	for _, img := range images {
		items = append(items, map[string]interface{}{
			"id":                img.PublicID,
			"uploaderId":        img.UploaderID,
			"kind":              img.Kind,
			"status":            img.Status,
			"sizeBytes":         img.SizeBytes,
			"orphanedAt":        img.OrphanedAt,
			"deletedAt":         img.DeletedAt,
			"deleteScheduledAt": img.DeleteScheduledAt,
			"createdAt":         img.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
	})
}

// AdminReclaim runs one reclaim sweep immediately instead of waiting for the
// next scheduled run.
func (h HandlerSet) AdminReclaim(c *gin.Context) {
	stats, err := h.reclaim.Sweep(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"scanned":   stats.Scanned,
		"reclaimed": stats.Reclaimed,
		"skipped":   stats.Skipped,
		"failed":    stats.Failed,
	})
}
