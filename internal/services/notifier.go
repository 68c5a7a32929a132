package services

import (
	"context"
	"delivery-reschedule-service/internal/ports"
	"errors"
	"fmt"
)

// CallNotifier sends the call-completed confirmation to a package's recipient.
type CallNotifier struct {
	Sender ports.MailSender
}

func NewCallNotifier(sender ports.MailSender) *CallNotifier {
	return &CallNotifier{Sender: sender}
}

// NotifyCallComplete builds and sends the confirmation message.
// Every failure, including a panic in the sender, is returned as an error.
func (n *CallNotifier) NotifyCallComplete(
	ctx context.Context,
	trackingID string,
	customerName string,
	customerEmail string,
	transcript string,
) (err error) {
	if n == nil || n.Sender == nil {
		return errors.New("notify call complete: no mail sender configured")
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notify call complete: sender panicked: %v", r)
		}
	}()

	subject, body := CallCompleteMessage(trackingID, customerName, transcript)
	if err := n.Sender.Send(ctx, customerEmail, subject, body); err != nil {
		return fmt.Errorf("notify call complete: %w", err)
	}
	return nil
}

// CallCompleteMessage returns the subject and body of the confirmation email.
func CallCompleteMessage(trackingID, customerName, transcript string) (string, string) {
	subject := fmt.Sprintf("Call Completed - Package %s", trackingID)
	body := fmt.Sprintf(
		"Hello %s,\n\nYour call regarding package %s has been completed.\n\nCall Summary:\n%s\n\nThank you for using our service!",
		customerName, trackingID, transcript,
	)
	return subject, body
}
