package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"platepix/api/internal/config"
	"platepix/api/internal/middleware"
	"platepix/api/internal/repository"
	"platepix/api/internal/service"
	"platepix/api/internal/storage"
)

type HandlerSet struct {
	log     zerolog.Logger
	cfg     *config.AppConfig
	ingest  *service.IngestService
	gallery *service.GalleryService
	reclaim *service.ReclaimService
	images  *repository.ImageRepository
	recipes *repository.RecipeRepository
	db      *pgxpool.Pool
	cache   *redis.Client
	store   *storage.ObjectStore
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, store *storage.ObjectStore, cfg *config.AppConfig) HandlerSet {
	imageRepo := repository.NewImageRepository(db)
	linkRepo := repository.NewLinkRepository(db)
	recipeRepo := repository.NewRecipeRepository(db)
	txm := repository.NewTxManager(db)

	ingest := service.NewIngestService(imageRepo, store, log)
	gallery := service.NewGalleryService(imageRepo, linkRepo, txm, log)
	reclaim := service.NewReclaimService(imageRepo, store, cfg.Lifecycle.AbandonedAfter, cfg.Lifecycle.SweepBatch, log)

	return HandlerSet{
		log:     log,
		cfg:     cfg,
		ingest:  ingest,
		gallery: gallery,
		reclaim: reclaim,
		images:  imageRepo,
		recipes: recipeRepo,
		db:      db,
		cache:   cache,
		store:   store,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	v1.Use(middleware.ServiceAuth(h.cfg))
	{
		v1.POST("/images", h.UploadImage)
		v1.GET("/images/:id", h.GetImage)

		v1.POST("/recipes", h.CreateRecipe)
		v1.POST("/recipes/:id/images", h.AttachImages)
		v1.PUT("/recipes/:id/images", h.SyncImages)

		admin := v1.Group("/admin")
		admin.GET("/images", h.AdminListImages)
		admin.POST("/reclaim", h.AdminReclaim)
	}
}
