package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"faceattend/internal/attendance"
	"faceattend/internal/auth"
	"faceattend/internal/cloudinary"
	"faceattend/internal/config"
	"faceattend/internal/facerec"
	"faceattend/internal/httpapi"
	"faceattend/internal/httpmiddleware"
	"faceattend/internal/identity"
	"faceattend/internal/match"
	"faceattend/internal/pipeline"
	"faceattend/internal/queue"
	"faceattend/internal/session"
	"faceattend/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("api failed: %v", err)
	}
}

func run(cfg config.App) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	// Schema depends on the engine's embedding width.
	if err := db.Migrate(ctx, engine.Dim()); err != nil {
		return err
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	idRepo := identity.NewRepository(db.Client)
	ids := identity.NewService(idRepo, cfg.EnrollCaptures, engine.Dim())

	var marked session.MarkedSet
	var jobs queue.Queue
	var events queue.Notifier
	if cfg.QueueBackend == "memory" {
		marked = session.NewMemoryMarkedSet()
		jobs = queue.NewInMemory(64)
		events = queue.NewMemoryNotifier()
	} else {
		marked = session.NewRedisMarkedSet(redisClient.Client, cfg.SessionMaxAge)
		jobs = queue.NewRedisQueue(redisClient.Client, "faceattend:jobs")
		events = queue.NewRedisNotifier(redisClient.Client, "faceattend:events")
	}

	sessions := session.NewManager(session.NewPGStore(db.Client), marked, idRepo, cfg.SessionMaxAge)
	records := attendance.NewRepository(db.Client)
	users := auth.NewUsers(db.Client)
	signer := auth.Signer{
		Key:        cfg.JWTSigningKey,
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	}

	var archive pipeline.Archiver
	if cfg.CloudinaryCloudName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		archive = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey,
			cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		log.Printf("photo archive configured: %s", cfg.CloudinaryCloudName)
	} else {
		log.Println("photo archive not configured, enrollment photos kept local only")
	}

	gallery := match.NewGallery()
	matcher := match.Matcher{Threshold: cfg.MatchThreshold}
	pipe := pipeline.New(engine, engine, ids, sessions, gallery, matcher, archive, jobs)

	if err := pipe.RefreshGallery(ctx); err != nil {
		log.Printf("initial gallery load failed: %v", err)
	}
	go watchGallery(ctx, events, pipe)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(httpmiddleware.CORS())
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.NewPerIPLimiter(cfg.RateLimitPerMin, cfg.RateLimitPerMin).Gin())

	h := &httpapi.Handler{
		Pipe:     pipe,
		IDs:      ids,
		Sessions: sessions,
		Records:  records,
		Users:    users,
		Signer:   signer,
		DBHealthy: func(ctx context.Context) bool {
			return db.Client.PingContext(ctx) == nil
		},
		RedisHealthy: redisClient.Healthy,
		FaceHealthy: func(ctx context.Context) error {
			if engine.Healthy(ctx) {
				return nil
			}
			return errors.New("face engine unhealthy")
		},
	}
	h.Register(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second, // recognition frames are slow uploads
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("api listening on :%s (backend=%s threshold=%.2f)",
			cfg.HTTPPort, cfg.FaceBackend, cfg.MatchThreshold)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
	log.Println("api exited")
	return nil
}

// watchGallery refreshes the in-memory index whenever an enrollment
// change is broadcast, with an hourly backstop refresh.
func watchGallery(ctx context.Context, events queue.Notifier, pipe *pipeline.Service) {
	sub, err := events.Subscribe(ctx)
	if err != nil {
		log.Printf("gallery event subscribe failed: %v", err)
		sub = nil
	}

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case event, ok := <-sub:
			if !ok {
				sub = nil
				continue
			}
			if event != queue.TypeGalleryRebuild {
				continue
			}
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
		if err := pipe.RefreshGallery(ctx); err != nil {
			log.Printf("gallery refresh failed: %v", err)
		}
	}
}

func newEngine(cfg config.App) (facerec.Engine, error) {
	if cfg.FaceBackend == "remote" {
		return facerec.NewRemoteEngine(cfg.FaceServiceURL, cfg.EmbeddingDim), nil
	}
	return facerec.NewDlibEngine(cfg.FaceModelsDir)
}
