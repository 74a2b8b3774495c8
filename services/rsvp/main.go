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
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/go-multi-tenant-rsvp/shared/config"
	"github.com/pavitra93/go-multi-tenant-rsvp/shared/middleware"
	"github.com/pavitra93/go-multi-tenant-rsvp/shared/storage"
	"github.com/pavitra93/go-multi-tenant-rsvp/shared/utils"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}

	cfg, err := config.LoadAppConfig()
	if err != nil {
		log.Fatal("Invalid configuration:", err)
	}
	config.SetupLogging(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	backend, err := config.OpenBackend(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to open storage:", err)
	}
	logrus.Infof("Using %s storage backend", backend.Name)

	locker, closeLocker, err := openLocker(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize tenant locker:", err)
	}
	defer closeLocker()

	var events EventPublisher = NoopPublisher{}
	if cfg.KafkaBroker != "" {
		events = NewKafkaPublisher(cfg.KafkaBroker, cfg.KafkaTopic)
	}
	defer events.Close()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := NewRouter(&Deps{
		Backend:   backend,
		Locker:    locker,
		Events:    events,
		AccessLog: true,
		Metrics:   middleware.NewMetrics(),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logrus.Infof("RSVP service starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start RSVP service:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down RSVP service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}
}

func openLocker(ctx context.Context, cfg *config.AppConfig) (storage.Locker, func(), error) {
	switch cfg.LockMode {
	case config.LockLocal:
		return storage.NewMutexLocker(), func() {}, nil
	case config.LockRedis:
		client, err := utils.NewRedisClient(ctx, cfg.RedisHost, cfg.RedisPort, cfg.RedisPass)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewRedisLocker(client, cfg.LockTTL), func() { client.Close() }, nil
	default:
		logrus.Warn("Tenant locking disabled; concurrent writes to one tenant may race")
		return storage.NoopLocker{}, func() {}, nil
	}
}
