package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abduss/homelist/internal/auth"
	"github.com/abduss/homelist/internal/config"
	"github.com/abduss/homelist/internal/image"
	"github.com/abduss/homelist/internal/listing"
	"github.com/abduss/homelist/internal/logger"
	"github.com/abduss/homelist/internal/presigned"
	"github.com/abduss/homelist/internal/server"
	"github.com/abduss/homelist/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

func main() {
	envErr := godotenv.Load()

	log, err := logger.Init()
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		log.Warn("load .env", zap.Error(envErr))
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := server.Dependencies{Config: cfg}

	var minioClient *minio.Client
	if cfg.Storage.ImageBackend == config.ImagesMinIO {
		minioClient, err = storage.NewMinIOClient(cfg.MinIO)
		if err != nil {
			log.Fatal("connect minio", zap.Error(err))
		}
		if err := storage.EnsureBucket(ctx, minioClient, cfg.MinIO.Bucket, cfg.MinIO.Region); err != nil {
			log.Fatal("ensure bucket", zap.Error(err))
		}
		deps.ObjectStore = minioClient
		deps.Images = image.NewMinIOStore(minioClient, cfg.MinIO.Bucket, cfg.MinIO.Prefix)
		deps.Signer = presigned.NewService(minioClient, cfg.MinIO.PresignTTL)
	} else {
		deps.Images = image.NewDiskStore(cfg.Storage.UploadDir)
	}

	var store listing.Store
	if cfg.Storage.StoreBackend == config.StorePostgres {
		dbPool, err := storage.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			log.Fatal("connect postgres", zap.Error(err))
		}
		defer dbPool.Close()

		if err := storage.Migrate(ctx, dbPool); err != nil {
			log.Fatal("migrate postgres", zap.Error(err))
		}
		deps.DB = dbPool
		store = listing.NewPostgresStore(dbPool, cfg.Postgres.Database)
	} else {
		store = listing.NewFileStore(cfg.Storage.DataFile, log)
	}

	ingester := image.NewIngester(deps.Images, cfg.Storage.MaxImageBytes, log)
	deps.Listings = listing.NewService(store, ingester, log)

	if cfg.Auth.Enabled() {
		deps.AuthService = auth.NewService(cfg.Auth)
	} else {
		log.Warn("HOMELIST_JWT_SECRET is empty; write routes are unauthenticated")
	}

	sweeper := image.NewSweeper(deps.Images, deps.Listings, cfg.Sweeper.Interval, cfg.Sweeper.Grace, log)
	sweeper.Start(ctx)
	defer sweeper.Stop()
	deps.Sweeper = sweeper

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      server.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("homelist API listening",
			zap.String("addr", cfg.Server.Address()),
			zap.String("store", cfg.Storage.StoreBackend),
			zap.String("images", cfg.Storage.ImageBackend),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}
