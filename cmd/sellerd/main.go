// cmd/sellerd/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/seller-bot/internal/app"
	"github.com/rovshanmuradov/seller-bot/internal/config"
	"github.com/rovshanmuradov/seller-bot/internal/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Development = cfg.DebugLogging
	if cfg.LogFile != "" {
		logCfg.LogFile = cfg.LogFile
	}
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting seller")

	runner, err := app.NewRunner(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize seller", zap.Error(err))
	}
	defer runner.Shutdown()

	if err := runner.Run(context.Background()); err != nil {
		log.Fatal("Seller execution error", zap.Error(err))
	}
}
