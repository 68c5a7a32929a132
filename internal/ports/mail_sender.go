package ports

import "context"

// Contract for delivering a plain-text email to a single recipient.
type MailSender interface {
	Send(ctx context.Context, to string, subject string, body string) error
}
