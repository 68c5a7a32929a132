package main

import (
	"context"
	"delivery-reschedule-service/internal/adapters/mail"
	"delivery-reschedule-service/internal/adapters/repositories"
	"delivery-reschedule-service/internal/adapters/signature"
	"delivery-reschedule-service/internal/api"
	"delivery-reschedule-service/internal/config"
	"delivery-reschedule-service/internal/platform/logging"
	"delivery-reschedule-service/internal/ports"
	"delivery-reschedule-service/internal/services"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

// main is the application composition root.
// It wires concrete adapters behind ports and starts the HTTP server.
func main() {
	configPath := pflag.StringP("config", "c", "", "path to an optional YAML config file")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatalLogger := logging.New(logging.Config{Format: "console"})
		fatalLogger.Fatal().Err(err).Msg("config")
	}

	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	store, err := repositories.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	// Seed demo data on startup for local runs.
	if cfg.Store.SeedOnStart {
		if err := store.Seed(ctx, cfg.Store.SeedPath); err != nil {
			return err
		}
		logger.Info().Str("seed_path", cfg.Store.SeedPath).Msg("store seeded")
	}

	svc := services.NewRescheduleService(store, services.NewCallNotifier(newMailSender(cfg.Mail, logger)))
	svc.NotifyTimeout = cfg.Mail.Timeout

	router := api.NewRouter(api.Options{
		Service:         svc,
		Verifier:        signature.NewRetellVerifier(),
		SigningKey:      cfg.SigningKey,
		SignatureHeader: cfg.SignatureHeader,
		Logger:          logger,
		HealthCheck:     store.Ping,
		RateLimitRPS:    cfg.RateLimitRPS,
		RateLimitBurst:  cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Leaves room for the confirmation email on finish_call.
		WriteTimeout: cfg.Mail.Timeout + 20*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("store", store.Driver).
			Str("mail", cfg.Mail.Driver).
			Msg("server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newMailSender(cfg config.MailConfig, logger zerolog.Logger) ports.MailSender {
	if cfg.Driver == "gmail" {
		return mail.NewGmailSender(cfg.GmailTokenPath)
	}
	return mail.NewLogSender(logger)
}
