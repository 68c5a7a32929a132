package handlers

import (
	"context"
	"delivery-reschedule-service/internal/adapters/signature"
	"delivery-reschedule-service/internal/api/dto"
	"delivery-reschedule-service/internal/ports"
	"delivery-reschedule-service/internal/services"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"
)

const defaultMaxBodyBytes = 1 << 20

// Service is the business API the webhook endpoints drive.
type Service interface {
	VerifyRecipient(ctx context.Context, trackingID, postalCode string) (services.Decision, error)
	RescheduleDelivery(ctx context.Context, trackingID, newDate string) (services.Decision, error)
	FinishCall(ctx context.Context, trackingID, transcript string) (services.Decision, error)
}

// WebhookHandler exposes the voice agent's function-call endpoints.
// Every request must carry a valid signature of its canonical JSON body.
type WebhookHandler struct {
	Service         Service
	Verifier        ports.SignatureVerifier
	SigningKey      string
	SignatureHeader string
	MaxBodyBytes    int64
}

// Verify checks the caller's tracking id and postal code and offers
// delivery windows when the package can be rescheduled.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	env, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var args dto.VerifyArgs
	if err := decodeArgs(env.Args, &args); err != nil || args.TrackingID == nil || args.PostalCode == nil {
		writeDecision(w, r, http.StatusOK, services.InvalidInput)
		return
	}

	d, err := h.Service.VerifyRecipient(r.Context(), *args.TrackingID, *args.PostalCode)
	if err != nil {
		h.internalError(w, r, "verify", err)
		return
	}

	writeDecision(w, r, http.StatusOK, d)
}

// UpdateDate stores the delivery window the caller picked.
func (h *WebhookHandler) UpdateDate(w http.ResponseWriter, r *http.Request) {
	env, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var args dto.UpdateDateArgs
	if err := decodeArgs(env.Args, &args); err != nil || args.TrackingID == nil || args.NewDate == nil {
		writeError(w, r, http.StatusBadRequest, "invalid request data")
		return
	}

	d, err := h.Service.RescheduleDelivery(r.Context(), *args.TrackingID, *args.NewDate)
	if err != nil {
		h.internalError(w, r, "update_date", err)
		return
	}

	writeDecision(w, r, http.StatusOK, d)
}

// FinishCall logs the call transcript and emails the recipient a summary.
func (h *WebhookHandler) FinishCall(w http.ResponseWriter, r *http.Request) {
	env, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var call dto.FinishCallDetails
	var args dto.FinishCallArgs
	if err := decodeArgs(env.Call, &call); err != nil || call.Transcript == nil {
		writeError(w, r, http.StatusBadRequest, "invalid request data")
		return
	}
	if err := decodeArgs(env.Args, &args); err != nil || args.TrackingID == nil {
		writeError(w, r, http.StatusBadRequest, "invalid request data")
		return
	}

	d, err := h.Service.FinishCall(r.Context(), *args.TrackingID, *call.Transcript)
	if err != nil {
		h.internalError(w, r, "finish_call", err)
		return
	}

	status := http.StatusOK
	if d.Outcome == services.OutcomeNotFound {
		status = http.StatusNotFound
	}
	writeDecision(w, r, status, d)
}

// authenticate reads the body, checks its signature and decodes the envelope.
// It writes the failure response itself and returns ok=false on any failure.
func (h *WebhookHandler) authenticate(w http.ResponseWriter, r *http.Request) (dto.Envelope, bool) {
	if !requirePost(w, r) {
		return dto.Envelope{}, false
	}

	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	defer r.Body.Close()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
			return dto.Envelope{}, false
		}
		writeError(w, r, http.StatusBadRequest, "could not read request body")
		return dto.Envelope{}, false
	}

	canonical, err := signature.Canonicalize(body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return dto.Envelope{}, false
	}

	if !h.Verifier.Verify(canonical, h.SigningKey, r.Header.Get(h.signatureHeader())) {
		zerolog.Ctx(r.Context()).Warn().
			Str("path", r.URL.Path).
			Msg("rejected webhook with invalid signature")
		writeError(w, r, http.StatusForbidden, "Invalid signature")
		return dto.Envelope{}, false
	}

	// A body that is valid JSON but not an object carries no args.
	var env dto.Envelope
	_ = json.Unmarshal(body, &env)
	return env, true
}

func (h *WebhookHandler) signatureHeader() string {
	if h.SignatureHeader == "" {
		return "X-Retell-Signature"
	}
	return h.SignatureHeader
}

func (h *WebhookHandler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	zerolog.Ctx(r.Context()).Error().
		Err(err).
		Str("op", op).
		Msg("webhook failed")
	writeError(w, r, http.StatusInternalServerError, "internal server error")
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errors.New("missing object")
	}
	return json.Unmarshal(raw, v)
}

func writeDecision(w http.ResponseWriter, r *http.Request, status int, d services.Decision) {
	res := dto.WebhookResponse{
		Status:  d.Status,
		Action:  d.Action,
		Message: d.Message,
	}
	if d.Action == services.ActionReschedule {
		res.Message = d.Windows
	}
	writeJSON(w, r, status, res)
}
