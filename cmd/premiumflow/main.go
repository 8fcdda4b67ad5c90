package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"premiumflow/config"
	"premiumflow/internal/premium/app"
	"premiumflow/logger"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default: search ./config)")
	flag.Parse()

	// viper config
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize premiumflow", zap.Error(err))
	}

	// run until signalled
	if err := a.Run(ctx); err != nil {
		log.Fatal("premiumflow failed", zap.Error(err))
	}
}
