package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"starbroker/internal/app"
	"starbroker/internal/config"
	"starbroker/internal/server"
	"starbroker/internal/util"
	"starbroker/pkg/store"
)

func main() {
	seedFlag := flag.Bool("seed", false, "replace the star catalog with the embedded seed data and exit")
	configPath := flag.String("config", config.ConfigPath, "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	catalog, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}

	if *seedFlag {
		stars, err := store.SeedStars()
		if err != nil {
			log.Fatalf("failed to load seed catalog: %v", err)
		}
		if err := catalog.ReplaceStars(stars); err != nil {
			log.Fatalf("failed to seed stars: %v", err)
		}
		slog.Info("catalog seeded", "stars", len(stars))
		return
	}

	// A demo gallery must render non-empty, so an empty table is seeded on
	// startup; existing rows are left alone.
	seeded, err := store.EnsureSeeded(catalog)
	if err != nil {
		log.Fatalf("failed to ensure seed data: %v", err)
	}
	if seeded > 0 {
		slog.Info("empty catalog seeded", "stars", seeded)
	}

	appCore, err := app.New(cfg, catalog)
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:                    appCore,
		Catalog:                catalog,
		Theme:                  cfg.Theme,
		RedisAddr:              cfg.RedisAddr,
		RedisPassword:          cfg.RedisPassword,
		ChatRateLimitPerMinute: cfg.ChatRateLimitPerMinute,
		TrustedProxyCIDRs:      cfg.TrustedProxyCIDRs,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server listening", "addr", addr, "provider", cfg.Provider, "model", cfg.ChatModel)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
