package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/pamfree/internal/config"
	"github.com/iliyamo/pamfree/internal/database"
	"github.com/iliyamo/pamfree/internal/logging"
	"github.com/iliyamo/pamfree/internal/middleware"
	"github.com/iliyamo/pamfree/internal/queue"
	"github.com/iliyamo/pamfree/internal/router"
	"github.com/iliyamo/pamfree/internal/service"
	"github.com/iliyamo/pamfree/internal/storage"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log := logging.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()
	if err := database.EnsureSchema(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("schema setup failed")
	}

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()
	rateCfg := config.LoadRateLimitConfig()

	var images storage.ObjectStore
	if sc := config.LoadStorageConfig(); sc.Enabled() {
		s3, err := storage.NewS3Store(ctx, sc)
		if err != nil {
			log.Fatal().Err(err).Msg("object storage setup failed")
		}
		images = s3
		log.Info().Str("bucket", sc.Bucket).Msg("floor images stored in S3")
	} else {
		log.Warn().Msg("S3_BUCKET not set; floor image uploads disabled")
	}

	recorder := queue.NewActivityRecorder(cfg.ActivityLogPath, middleware.NewCacheInvalidator(cacheCfg, rdb))
	var events queue.Publisher = queue.InlinePublisher{Handler: recorder}
	if cfg.AMQPURL != "" {
		events = queue.NewAMQPPublisher(cfg.AMQPURL)
		go func() {
			if err := queue.StartActivityConsumer(ctx, cfg.AMQPURL, recorder); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("activity consumer stopped")
			}
		}()
	}

	svc := service.New(service.Deps{
		Store: service.NewStore(db),
		Auth: service.AuthSettings{
			JWTSecret:      cfg.JWTSecret,
			AccessTTLMin:   cfg.AccessTTLMin,
			RefreshTTLDays: cfg.RefreshTTLDays,
			BcryptCost:     cfg.BcryptCost,
		},
		Images:         images,
		Events:         events,
		EditorTTL:      cfg.EditorTTL,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	e := router.New(router.Deps{
		Config:    cfg,
		DB:        db,
		Services:  svc,
		Redis:     rdb,
		Cache:     cacheCfg,
		RateLimit: rateCfg,
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
