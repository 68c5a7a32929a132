package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HealthHandler reports liveness. When Check is set it also probes the
// backing store and answers 503 if the probe fails.
type HealthHandler struct {
	Check   func(ctx context.Context) error
	Timeout time.Duration
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if h.Check != nil {
		timeout := h.Timeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if err := h.Check(ctx); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("health check failed")
			writeError(w, r, http.StatusServiceUnavailable, "store unavailable")
			return
		}
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
