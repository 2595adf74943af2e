package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"faceattend/internal/config"
	"faceattend/internal/identity"
	"faceattend/internal/queue"
	"faceattend/internal/session"
	"faceattend/internal/store"
)

// The worker owns background maintenance: fanning enrollment changes
// out to the API instances and sweeping aged sessions.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var jobs queue.Queue
	var events queue.Notifier
	if cfg.QueueBackend == "memory" {
		jobs = queue.NewInMemory(64)
		events = queue.NewMemoryNotifier()
	} else {
		jobs = queue.NewRedisQueue(redisClient.Client, "faceattend:jobs")
		events = queue.NewRedisNotifier(redisClient.Client, "faceattend:events")
	}

	idRepo := identity.NewRepository(db.Client)
	sessions := session.NewManager(session.NewPGStore(db.Client), nil, idRepo, cfg.SessionMaxAge)

	messages, err := jobs.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	sweep := time.NewTicker(cfg.SweepInterval)
	defer sweep.Stop()

	log.Println("worker started")
	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				log.Println("worker stopped")
				return
			}
			handle(ctx, msg, events, sessions)

		case <-sweep.C:
			if _, err := sessions.Sweep(ctx); err != nil {
				log.Printf("session sweep failed: %v", err)
			}

		case <-ctx.Done():
			log.Println("worker stopped")
			return
		}
	}
}

func handle(ctx context.Context, msg queue.Message, events queue.Notifier, sessions *session.Manager) {
	switch msg.Type {
	case queue.TypeGalleryRebuild:
		// Fan the change out so every API instance reloads its index.
		if err := events.Notify(ctx, queue.TypeGalleryRebuild); err != nil {
			log.Printf("notify gallery rebuild: %v", err)
		}

	case queue.TypeSessionSweep:
		if _, err := sessions.Sweep(ctx); err != nil {
			log.Printf("session sweep failed: %v", err)
		}

	default:
		log.Printf("unknown job type %q dropped", msg.Type)
	}
}
