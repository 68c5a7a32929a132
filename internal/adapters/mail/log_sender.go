package mail

import (
	"context"
	"delivery-reschedule-service/internal/platform/obs"

	"github.com/rs/zerolog"
)

// LogSender logs outgoing mail instead of delivering it. Used for local runs.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, to string, subject string, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.log.Info().
		Str("req_id", obs.RequestID(ctx)).
		Str("to", to).
		Str("subject", subject).
		Int("body_bytes", len(body)).
		Msg("mail not sent (log driver)")
	return nil
}
