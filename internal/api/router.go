package api

import (
	"context"
	"delivery-reschedule-service/internal/api/handlers"
	"delivery-reschedule-service/internal/ports"
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Options carries the dependencies NewRouter wires into the handlers.
type Options struct {
	Service         handlers.Service
	Verifier        ports.SignatureVerifier
	SigningKey      string
	SignatureHeader string
	Logger          zerolog.Logger

	// HealthCheck probes the backing store for /health. Nil skips the probe.
	HealthCheck func(ctx context.Context) error

	// RateLimitRPS <= 0 disables rate limiting of the webhook routes.
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// Handlers stay unaware of concrete adapters.
func NewRouter(opts Options) http.Handler {
	mux := http.NewServeMux()

	webhooks := &handlers.WebhookHandler{
		Service:         opts.Service,
		Verifier:        opts.Verifier,
		SigningKey:      opts.SigningKey,
		SignatureHeader: opts.SignatureHeader,
	}
	health := &handlers.HealthHandler{Check: opts.HealthCheck}

	limit := func(h http.HandlerFunc) http.Handler { return h }
	if opts.RateLimitRPS > 0 {
		burst := opts.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		mw := rateLimitMiddleware(rate.NewLimiter(rate.Limit(opts.RateLimitRPS), burst))
		limit = func(h http.HandlerFunc) http.Handler { return mw(h) }
	}

	mux.HandleFunc("/health", health.Health)
	mux.Handle("/verify", limit(webhooks.Verify))
	mux.Handle("/update_date", limit(webhooks.UpdateDate))
	mux.Handle("/finish_call", limit(webhooks.FinishCall))

	return requestIDMiddleware(opts.Logger)(loggingMiddleware(mux))
}
