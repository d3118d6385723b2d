package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ctxslim/ctxslim/internal/api"
	"github.com/ctxslim/ctxslim/internal/config"
	"github.com/ctxslim/ctxslim/internal/engine"
	"github.com/ctxslim/ctxslim/internal/pipeline"
	"github.com/ctxslim/ctxslim/internal/rules"
	"github.com/ctxslim/ctxslim/internal/store"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Rule set: built-in unless a rules file is configured.
	ruleSet := rules.DefaultRules()
	if cfg.RulesFile != "" {
		rs, err := rules.LoadFile(cfg.RulesFile)
		if err != nil {
			log.Error("loading rules file failed", "path", cfg.RulesFile, "error", err)
			os.Exit(1)
		}
		ruleSet = rs
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Error("opening database failed", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}

	eng := engine.New(cfg.EngineConfig(), ruleSet, log)

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, eng, db, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, eng, db, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		db.Close()
	}()

	log.Info("starting ctxslim", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
