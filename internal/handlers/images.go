package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"platepix/api/internal/models"
	"platepix/api/internal/repository"
	"platepix/api/internal/security"
	"platepix/api/internal/service"
)

type imageResponse struct {
	ID        string     `json:"id"`
	URL       string     `json:"url"`
	FileName  string     `json:"fileName"`
	Kind      string     `json:"kind"`
	Status    string     `json:"status"`
	SizeBytes int64      `json:"sizeBytes"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

func (h HandlerSet) imageResponse(image models.Image) imageResponse {
	return imageResponse{
		ID:        image.PublicID,
		URL:       h.store.PublicURL(image.ObjectKey),
		FileName:  image.FileName,
		Kind:      string(image.Kind),
		Status:    string(image.Status),
		SizeBytes: image.SizeBytes,
		DeletedAt: image.DeletedAt,
		CreatedAt: image.CreatedAt,
	}
}

func (h HandlerSet) UploadImage(c *gin.Context) {
	claimsVal, exists := c.Get("service_claims")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing_claims"})
		return
	}
	claims, ok := claimsVal.(security.ServiceClaims)
	if !ok || claims.Uploader == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "uploader_required"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file_required"})
		return
	}
	defer file.Close()

	result, err := h.ingest.Upload(c.Request.Context(), service.IngestInput{
		UploaderID: claims.Uploader,
		Kind:       models.ImageKind(c.PostForm("kind")),
		File:       file,
		Header:     header,
	})
	if err != nil {
		h.log.Error().Err(err).Str("uploader_id", claims.Uploader).Msg("upload failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"image": h.imageResponse(result.Image),
	})
}

func (h HandlerSet) GetImage(c *gin.Context) {
	image, err := h.images.GetByPublicID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrImageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "image_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"image": h.imageResponse(image),
	})
}
