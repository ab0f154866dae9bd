package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/samvilian/gemini-proxy-panel3/internal/api"
	"github.com/samvilian/gemini-proxy-panel3/internal/client"
	"github.com/samvilian/gemini-proxy-panel3/internal/config"
	"github.com/samvilian/gemini-proxy-panel3/internal/logging"
	"github.com/samvilian/gemini-proxy-panel3/internal/store"
	"github.com/samvilian/gemini-proxy-panel3/internal/watcher"
	log "github.com/sirupsen/logrus"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Configure File Path")
	flag.Parse()

	logging.SetupBaseLogger()

	if configPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			log.Fatalf("failed to get working directory: %v", err)
		}
		configPath = path.Join(wd, "config.yaml")
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
	if err = logging.ConfigureLogOutput(cfg.LoggingToFile, cfg.LogDir); err != nil {
		log.Fatalf("failed to configure log output: %v", err)
	}

	kv, err := store.Open(cfg.StorePath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer func() { _ = kv.Close() }()

	geminiClient := client.NewGeminiClient(cfg)
	server := api.NewServer(cfg, geminiClient, kv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	configWatcher := watcher.New(configPath, func(newCfg *config.Config) {
		if newCfg.Debug {
			log.SetLevel(log.DebugLevel)
		} else {
			log.SetLevel(log.InfoLevel)
		}
		if errLog := logging.ConfigureLogOutput(newCfg.LoggingToFile, newCfg.LogDir); errLog != nil {
			log.Errorf("failed to reconfigure log output: %v", errLog)
		}
		server.UpdateConfig(newCfg)
	})
	if err = configWatcher.Start(ctx); err != nil {
		log.Errorf("config watcher disabled: %v", err)
	}

	go func() {
		if errStart := server.Start(); errStart != nil {
			log.Fatalf("server failed: %v", errStart)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err = server.Stop(shutdownCtx); err != nil {
		log.Errorf("shutdown error: %v", err)
	}
}
