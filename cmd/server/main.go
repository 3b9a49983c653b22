// Package main runs the conference HTTP and signaling server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-webinar/conference/config"
	"github.com/aura-webinar/conference/internal/auth"
	"github.com/aura-webinar/conference/internal/conference"
	"github.com/aura-webinar/conference/internal/conferences"
	"github.com/aura-webinar/conference/internal/files"
	"github.com/aura-webinar/conference/internal/middleware"
	"github.com/aura-webinar/conference/internal/models"
	"github.com/aura-webinar/conference/internal/realtime"
	"github.com/aura-webinar/conference/internal/sessionlog"
	"github.com/aura-webinar/conference/internal/worker"
	"github.com/aura-webinar/conference/pkg/database"
	"github.com/aura-webinar/conference/pkg/queue"
	"github.com/aura-webinar/conference/pkg/redis"
	"github.com/aura-webinar/conference/pkg/response"
	"github.com/aura-webinar/conference/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	logger = logger.With(zap.String("instance", cfg.Instance.ID))

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.Pool(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Client, err = storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			FilesBucket:          cfg.AWS.FilesBucket,
			TranscriptsBucket:    cfg.AWS.TranscriptsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
			s3Client = nil
		}
	}

	hostPolicy, err := conference.ParseHostPolicy(cfg.Conference.HostPolicy)
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	iceServers, err := realtime.ICEServers(cfg.WebRTC.ICEUrls, cfg.WebRTC.TURNUsername, cfg.WebRTC.TURNCredential)
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	sessionLogRepo := sessionlog.NewRepository(pool)
	conferenceRepo := conferences.NewRepository(pool, sessionLogRepo)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	feed := realtime.NewRedisPubSub(rdb.Client, cfg.Instance.ID, logger)
	lease := realtime.NewRedisLease(rdb.Client, cfg.Instance.ID, cfg.Instance.LeaseTTL, logger)

	// Conference core
	manager := conference.NewManager(conference.Options{
		ChatHistoryLimit:       cfg.Conference.ChatHistoryLimit,
		WhiteboardLogLimit:     cfg.Conference.WhiteboardLogLimit,
		FileShareLimit:         cfg.Conference.FileShareLimit,
		DefaultMaxParticipants: cfg.Conference.DefaultMaxParticipants,
		HostPolicy:             hostPolicy,
		EndedRetention:         cfg.Conference.EndedRetention,
	}, logger)
	manager.SetJournal(conferenceRepo)
	manager.SetPublisher(feed)
	manager.SetLease(lease)
	manager.SetEndHandler(func(ctx context.Context, c models.Conference) error {
		endedAt := time.Now().UTC()
		if c.EndedAt != nil {
			endedAt = *c.EndedAt
		}
		return jobQueue.EnqueueTranscriptArchive(ctx, queue.TranscriptArchivePayload{ConferenceID: c.ID, EndedAt: endedAt})
	})

	lease.OnLost(func(id string) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		manager.Evict(ctx, id)
	})
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	go lease.Run(bgCtx)

	conferenceHandler := conferences.NewHandler(manager, conferenceRepo, logger)
	sessionLogHandler := sessionlog.NewHandler(sessionLogRepo)

	origins := middleware.ParseOrigins(cfg.Server.CORSAllowedOrigins)
	optionalAuth := middleware.OptionalJWT(jwtService)
	requireAuth := middleware.JWT(jwtService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(origins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok", "instance": cfg.Instance.ID}) })

	api := router.Group("/api/conferences")
	conferenceHandler.RegisterRoutes(api, optionalAuth, requireAuth)
	api.GET("/:id/attendees", requireAuth, conferenceHandler.RequireManager(), sessionLogHandler.GetAttendees)
	api.GET("/:id/events", requireAuth, conferenceHandler.RequireManager(), realtime.ServeFeed(feed, logger))
	if s3Client != nil {
		filesHandler := files.NewHandler(s3Client, manager, logger)
		api.POST("/:id/files/upload-url", filesHandler.UploadURL)
		api.GET("/:id/transcript", requireAuth, conferenceHandler.RequireManager(), filesHandler.Transcript)

		// Transcript archiving runs in-process as well as in cmd/worker.
		processor := worker.NewTranscriptProcessor(conferenceRepo, s3Client, jobQueue, logger)
		go processor.Run(bgCtx)
		logger.Info("transcript worker started")
	}

	// WebSocket signaling (token in query; guests allowed)
	router.GET("/ws", realtime.ServeWs(manager, realtime.TransportConfig{
		LivenessTimeout: cfg.Conference.LivenessTimeout,
		PingInterval:    cfg.Conference.PingInterval,
		SendBuffer:      cfg.Conference.SendBuffer,
		ReadLimit:       cfg.Conference.ReadLimitBytes,
		ICEServers:      iceServers,
		CheckOrigin:     origins.CheckOrigin,
	}, jwtService.ValidateToken, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	manager.Close(shutdownCtx)
	bgCancel()
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
