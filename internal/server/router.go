package server

import (
	"context"
	"time"

	"github.com/abduss/homelist/internal/auth"
	"github.com/abduss/homelist/internal/config"
	"github.com/abduss/homelist/internal/image"
	"github.com/abduss/homelist/internal/listing"
	"github.com/abduss/homelist/internal/logger"
	"github.com/abduss/homelist/internal/metrics"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BucketChecker is satisfied by *minio.Client.
type BucketChecker interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
}

// Sweeper runs one orphan image sweep.
type Sweeper interface {
	RunOnce(ctx context.Context) (image.SweepResult, error)
}

// Dependencies groups the services required by the HTTP router. DB and
// ObjectStore are nil when the matching backend is not in use.
type Dependencies struct {
	Config      config.Config
	DB          Pinger
	ObjectStore BucketChecker
	Listings    *listing.Service
	Images      image.Store
	Signer      image.URLSigner
	AuthService *auth.Service
	Sweeper     Sweeper
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.Middleware())
	router.Use(metrics.Middleware())
	router.Use(cors.New(corsConfig(deps.Config.Server.CORSOrigins)))

	registerHealthRoutes(router, deps)
	metrics.Register(router, deps.Config.Metrics.PrometheusPath)

	var guard gin.HandlerFunc
	if deps.AuthService != nil {
		guard = auth.Middleware(deps.AuthService)
	}

	api := router.Group("/v1")
	if deps.Listings != nil {
		listing.RegisterRoutes(api, deps.Listings, guard)
	}
	if deps.Images != nil {
		image.RegisterRoutes(api, deps.Images, deps.Signer)
	}
	if deps.Sweeper != nil && guard != nil {
		registerMaintenanceRoutes(api, deps.Sweeper, guard)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", logger.CorrelationIDHeader},
		ExposeHeaders:    []string{logger.CorrelationIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
