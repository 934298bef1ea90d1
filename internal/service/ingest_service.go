package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/blake2b"

	"platepix/api/internal/ids"
	"platepix/api/internal/media/sniffer"
	"platepix/api/internal/models"
)

type IngestInput struct {
	UploaderID string
	Kind       models.ImageKind
	File       multipart.File
	Header     *multipart.FileHeader
}

type IngestResult struct {
	Image models.Image
	URL   string
}

type registryWriter interface {
	Create(ctx context.Context, image models.Image) (int64, error)
}

type objectPutter interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PublicURL(key string) string
}

// IngestService is the minimal upload pipeline: it stores the object, then
// registers the image as processing. The image stays unclaimed until a recipe
// attaches it; if nobody does, the reclaim sweep collects it.
type IngestService struct {
	images registryWriter
	store  objectPutter
	log    zerolog.Logger
}

func NewIngestService(images registryWriter, store objectPutter, log zerolog.Logger) *IngestService {
	return &IngestService{
		images: images,
		store:  store,
		log:    log,
	}
}

func (s *IngestService) Upload(ctx context.Context, input IngestInput) (IngestResult, error) {
	if input.File == nil || input.Header == nil {
		return IngestResult{}, errors.New("invalid file payload")
	}

	data, err := io.ReadAll(input.File)
	if err != nil {
		return IngestResult{}, fmt.Errorf("read file: %w", err)
	}
	if len(data) == 0 {
		return IngestResult{}, errors.New("empty file")
	}

	detected, err := sniffer.Detect(data)
	if err != nil {
		return IngestResult{}, fmt.Errorf("detect type: %w", err)
	}

	declared := sniffer.MimeTypeFromHTTP(http.Header(input.Header.Header))
	if declared != "" && declared != detected.MIME {
		return IngestResult{}, fmt.Errorf("content type mismatch: declared %s, actual %s", declared, detected.MIME)
	}

	kind := input.Kind
	if kind == "" {
		kind = models.ImageKindCover
	}
	switch kind {
	case models.ImageKindCover, models.ImageKindStep, models.ImageKindLog:
	default:
		return IngestResult{}, fmt.Errorf("unknown image kind %q", kind)
	}

	publicID := ids.New()
	objectKey := buildObjectKey(publicID, string(detected.Type))

	if err := s.store.Put(ctx, objectKey, bytes.NewReader(data), int64(len(data)), detected.MIME); err != nil {
		return IngestResult{}, fmt.Errorf("put object: %w", err)
	}

	sum := blake2b.Sum256(data)

	image := models.Image{
		PublicID:   publicID,
		ObjectKey:  objectKey,
		FileName:   input.Header.Filename,
		Kind:       kind,
		Status:     models.ImageStatusProcessing,
		UploaderID: input.UploaderID,
		Checksum:   sum[:],
		SizeBytes:  int64(len(data)),
	}

	id, err := s.images.Create(ctx, image)
	if err != nil {
		return IngestResult{}, fmt.Errorf("register image: %w", err)
	}
	image.ID = id
	now := time.Now().UTC()
	image.CreatedAt = now
	image.UpdatedAt = now

	s.log.Info().
		Str("image_id", publicID).
		Str("object_key", objectKey).
		Str("uploader_id", input.UploaderID).
		Int64("size_bytes", image.SizeBytes).
		Msg("image ingested")

	return IngestResult{
		Image: image,
		URL:   s.store.PublicURL(objectKey),
	}, nil
}

func buildObjectKey(publicID string, ext string) string {
	datePrefix := time.Now().UTC().Format("2006/01/02")
	return path.Join(datePrefix, fmt.Sprintf("%s.%s", publicID, ext))
}
