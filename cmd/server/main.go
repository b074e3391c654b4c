package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"invoicing/internal/config"
	"invoicing/internal/infra"
	"invoicing/internal/repository"
	"invoicing/internal/router"
	"invoicing/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	db, err := infra.NewDatabase(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("failed to connect to database")
	}
	if cfg.AutoMigrate {
		if err := infra.RunMigrations(db, cfg.DBDriver); err != nil {
			log.Fatal().Err(err).Msg("migrations failed")
		}
	}

	// Without Redis the API still serves; report caching and emails are off.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = infra.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, running without cache and email queue")
			rdb = nil
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	letterhead := router.Letterhead(cfg)
	var pool *worker.Pool
	if rdb != nil {
		mailer := infra.NewMailer(cfg)
		if !mailer.Configured() {
			log.Warn().Msg("SMTP_HOST not set, invoice emails will land in the dead-letter queue")
		}
		emailWorker := worker.NewEmailWorker(
			repository.NewInvoiceRepository(db),
			mailer,
			infra.NewBreaker("smtp", 5, time.Minute),
			letterhead,
			cfg.PDFStoragePath,
		)
		pool = worker.NewPool(rdb, map[string]worker.Handler{
			worker.JobInvoiceEmail: emailWorker,
		})
		pool.Start(ctx, cfg.WorkerPoolSize)
	}

	r := router.New(cfg, db, rdb)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("invoicing backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	// Workers finish or dead-letter their current job before Redis closes.
	cancel()
	if pool != nil {
		pool.Wait()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Info().Msg("server exited")
}

// setupLogger: dev gets the pretty console writer, prod gets JSON.
func setupLogger(cfg *config.Config) {
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
