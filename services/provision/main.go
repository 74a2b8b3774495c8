package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/go-multi-tenant-rsvp/shared/config"
	"github.com/pavitra93/go-multi-tenant-rsvp/shared/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using environment variables")
	}

	cfg, err := config.LoadAppConfig()
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	config.SetupLogging(cfg.LogLevel, cfg.LogFormat)

	open := func(ctx context.Context) (*storage.Backend, error) {
		return config.OpenBackend(ctx, cfg)
	}

	if err := newRootCommand(open, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
