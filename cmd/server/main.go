// Command citywatch-server starts the incident report API server.
package main

import (
	"context"
	"crypto/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/citywatch-app/citywatch/internal/config"
	"github.com/citywatch-app/citywatch/internal/geo"
	"github.com/citywatch-app/citywatch/internal/lifecycle"
	"github.com/citywatch-app/citywatch/internal/limiter"
	"github.com/citywatch-app/citywatch/internal/mailer"
	"github.com/citywatch-app/citywatch/internal/media"
	"github.com/citywatch-app/citywatch/internal/migrate"
	"github.com/citywatch-app/citywatch/internal/payments"
	"github.com/citywatch-app/citywatch/internal/push"
	"github.com/citywatch-app/citywatch/internal/repository/postgres"
	httpserver "github.com/citywatch-app/citywatch/internal/server/http"
	"github.com/citywatch-app/citywatch/internal/service"
	"github.com/citywatch-app/citywatch/internal/storage"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations, wires the components and
// serves until interrupted.
func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.StorageBackend))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Migrations
	if err := migrate.Up(ctx, cfg.DatabaseURL); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("connect to database", zap.Error(err))
	}
	db := postgres.New(pool)
	defer db.Close()

	postRepo := postgres.NewPostRepo(db)
	mediaRepo := postgres.NewMediaRepo(db)
	interactionRepo := postgres.NewInteractionRepo(db)
	identityRepo := postgres.NewIdentityRepo(db)
	subscriptionRepo := postgres.NewSubscriptionRepo(db)
	adminRepo := postgres.NewAdminRepo(db)

	// Object storage
	var store storage.ObjectStore
	switch cfg.StorageBackend {
	case "s3":
		store, err = storage.NewMinio(ctx, cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3UseSSL)
	default:
		store, err = storage.NewDisk(cfg.DiskStorageDir)
	}
	if err != nil {
		logger.Fatal("object storage", zap.Error(err))
	}

	// Media pipeline
	transcoder := &media.CLITranscoder{
		ImageMaxWidth:  cfg.ImageMaxWidth,
		ImageMaxHeight: cfg.ImageMaxHeight,
		ImageQuality:   cfg.ImageQuality,
		VideoMaxWidth:  cfg.VideoMaxWidth,
		VideoMaxHeight: cfg.VideoMaxHeight,
		VideoBitrate:   cfg.VideoBitrate,
	}
	pipeline := media.NewPipeline(media.Config{
		MaxFileSize:  cfg.MaxFileSize,
		VideoTimeout: cfg.VideoTimeout,
		TempDir:      cfg.TempDir,
		BaseURL:      cfg.MediaBaseURL,
	}, transcoder, store, mediaRepo, logger)

	// Collaborators
	mail := mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom, cfg.AdminEmail, logger)
	pay := payments.NewClient(cfg.PaymentAPIURL, cfg.PaymentMerchantID, cfg.PaymentAPIKey, cfg.AppURL)

	var sender push.Sender = push.NopSender{}
	if cfg.PushRelayURL != "" {
		sender = push.NewRelaySender(cfg.PushRelayURL)
	}
	fanout := push.NewFanout(subscriptionRepo, sender, cfg.AppURL, logger)

	// Lifecycle
	sweeper := lifecycle.NewSweeper(postRepo, mediaRepo, store, logger, cfg.SweepInterval, cfg.MediaRetention)
	go sweeper.Run(ctx)

	// Services
	lim := limiter.NewPG(pool, cfg.RateLimitWindow)
	geoQuerier := geo.NewPG(pool)
	identitySvc := service.NewIdentityService(identityRepo)
	postSvc := service.NewPostService(postRepo, mediaRepo, interactionRepo, geoQuerier, lim, fanout, logger, cfg.PostTTL, cfg.MaxMediaPerPost)
	interactionSvc := service.NewInteractionService(postRepo, interactionRepo, identitySvc, mail, cfg.AppURL, logger)
	subscriptionSvc := service.NewSubscriptionService(subscriptionRepo)

	jwtKey := []byte(cfg.AdminJWTSecret)
	if len(jwtKey) == 0 {
		// Admin sessions won't survive a restart without a configured key.
		jwtKey = make([]byte, 32)
		if _, err := rand.Read(jwtKey); err != nil {
			logger.Fatal("generate jwt key", zap.Error(err))
		}
		logger.Warn("ADMIN_JWT_SECRET not set, using an ephemeral key")
	}
	adminSvc := service.NewAdminService(adminRepo, sweeper, jwtKey)

	// HTTP
	gin.SetMode(gin.ReleaseMode)
	srv := httpserver.NewServer(postSvc, interactionSvc, identitySvc, subscriptionSvc,
		adminSvc, pipeline, pay, mail, store, httpserver.Options{
			CORSOrigin:    cfg.CORSOrigin,
			IPRateRPS:     cfg.IPRateRPS,
			IPRateBurst:   cfg.IPRateBurst,
			WebhookSecret: cfg.WebhookSecret,
			AdminEmail:    cfg.AdminEmail,
		}, logger)

	server := &http.Server{Addr: cfg.Addr, Handler: srv.Router(ctx)}
	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()
	logger.Info("listening", zap.String("addr", cfg.Addr))

	select {
	case err := <-errCh:
		logger.Fatal("serve", zap.Error(err))
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
