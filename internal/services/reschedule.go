package services

import (
	"context"
	"delivery-reschedule-service/internal/domain"
	"delivery-reschedule-service/internal/platform/obs"
	"delivery-reschedule-service/internal/ports"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	StatusOK    = "ok"
	StatusError = "error"

	ActionEscalate   = "escalate"
	ActionReschedule = "reschedule"
)

// Outcome classifies a Decision so the transport can pick a response shape.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeInvalidInput
	OutcomeNotVerified
	OutcomeIneligible
	OutcomeNotFound
)

// Decision is the business result of one webhook call.
// Negative business outcomes are Decisions, not errors.
type Decision struct {
	Outcome Outcome
	Status  string
	Action  string
	Message string
	// Windows is set only when Action is ActionReschedule.
	Windows []string
}

// InvalidInput is returned for a verify request whose arguments are missing or mistyped.
var InvalidInput = Decision{
	Outcome: OutcomeInvalidInput,
	Status:  StatusError,
	Action:  ActionEscalate,
	Message: "Invalid request data. Escalating to a human agent.",
}

var (
	notVerified = Decision{
		Outcome: OutcomeNotVerified,
		Status:  StatusError,
		Action:  ActionEscalate,
		Message: "Could not verify package. Escalating to a human agent.",
	}
	ineligible = Decision{
		Outcome: OutcomeIneligible,
		Status:  StatusError,
		Action:  ActionEscalate,
		Message: "Package not eligible for rescheduling. Escalating to a human agent.",
	}
	rescheduleNotFound = Decision{
		Outcome: OutcomeNotFound,
		Status:  StatusError,
		Message: "Package not found or not eligible for rescheduling.",
	}
	finishNotFound = Decision{
		Outcome: OutcomeNotFound,
		Status:  StatusError,
		Message: "Package not found",
	}
)

// Notifier sends the call-completed confirmation. Its error is logged and
// dropped by FinishCall.
type Notifier interface {
	NotifyCallComplete(ctx context.Context, trackingID, customerName, customerEmail, transcript string) error
}

// RescheduleService runs the verify / reschedule / finish-call flows
// against an injected record store.
type RescheduleService struct {
	Store         ports.RecordStore
	Notifier      Notifier
	NotifyTimeout time.Duration
	Now           func() time.Time
}

func NewRescheduleService(store ports.RecordStore, notifier Notifier) *RescheduleService {
	return &RescheduleService{
		Store:         store,
		Notifier:      notifier,
		NotifyTimeout: 10 * time.Second,
		Now:           time.Now,
	}
}

func (s *RescheduleService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// VerifyRecipient checks the caller's postal code against the package and,
// when the package can be rescheduled, offers the current delivery windows.
func (s *RescheduleService) VerifyRecipient(
	ctx context.Context,
	trackingID string,
	postalCode string,
) (_ Decision, err error) {
	defer obs.Time(ctx, "services.VerifyRecipient")(&err)

	pkg, err := s.Store.FindPackage(ctx, trackingID)
	if errors.Is(err, ports.ErrPackageNotFound) {
		return notVerified, nil
	}
	if err != nil {
		return Decision{}, fmt.Errorf("verify recipient: %w", err)
	}

	if !pkg.MatchesPostalCode(postalCode) {
		return notVerified, nil
	}

	if !pkg.Reschedulable() {
		return ineligible, nil
	}

	return Decision{
		Outcome: OutcomeOK,
		Status:  StatusOK,
		Action:  ActionReschedule,
		Windows: AvailableWindows(s.now()),
	}, nil
}

// RescheduleDelivery stores newDate verbatim as the package's scheduled_at.
// newDate is neither parsed nor checked against the offered windows.
func (s *RescheduleService) RescheduleDelivery(
	ctx context.Context,
	trackingID string,
	newDate string,
) (_ Decision, err error) {
	defer obs.Time(ctx, "services.RescheduleDelivery")(&err)

	err = s.Store.UpdatePackageSchedule(ctx, trackingID, newDate)
	if errors.Is(err, ports.ErrPackageNotFound) {
		return rescheduleNotFound, nil
	}
	if err != nil {
		return Decision{}, fmt.Errorf("reschedule delivery: %w", err)
	}

	return Decision{
		Outcome: OutcomeOK,
		Status:  StatusOK,
		Message: fmt.Sprintf("Package %s rescheduled to %s.", trackingID, newDate),
	}, nil
}

// FinishCall logs the transcript as a completed call, closes any earlier
// incomplete logs for the package and sends a best-effort confirmation email.
func (s *RescheduleService) FinishCall(
	ctx context.Context,
	trackingID string,
	transcript string,
) (_ Decision, err error) {
	defer obs.Time(ctx, "services.FinishCall")(&err)

	pkg, err := s.Store.FindPackage(ctx, trackingID)
	if errors.Is(err, ports.ErrPackageNotFound) {
		return finishNotFound, nil
	}
	if err != nil {
		return Decision{}, fmt.Errorf("finish call: %w", err)
	}

	logID, err := s.Store.AppendCallLog(ctx, domain.CallLog{
		TrackingID: trackingID,
		Transcript: transcript,
		Completed:  true,
		Escalated:  false,
		CreatedAt:  s.now(),
	})
	if err != nil {
		return Decision{}, fmt.Errorf("finish call: %w", err)
	}

	if err := s.Store.MarkIncompleteLogsCompleted(ctx, trackingID); err != nil {
		return Decision{}, fmt.Errorf("finish call: %w", err)
	}

	logger := zerolog.Ctx(ctx)
	logger.Info().
		Str("tracking_id", trackingID).
		Int64("call_log_id", logID).
		Msg("call logged")

	if err := s.notify(ctx, pkg, transcript); err != nil {
		logger.Warn().
			Err(err).
			Str("tracking_id", trackingID).
			Msg("confirmation email failed; call still finished")
	}

	return Decision{
		Outcome: OutcomeOK,
		Status:  StatusOK,
		Message: fmt.Sprintf("Call for package %s finished and transcript logged.", trackingID),
	}, nil
}

func (s *RescheduleService) notify(ctx context.Context, pkg *domain.Package, transcript string) error {
	if s.Notifier == nil {
		return errors.New("no notifier configured")
	}

	if s.NotifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.NotifyTimeout)
		defer cancel()
	}

	return s.Notifier.NotifyCallComplete(ctx, pkg.TrackingID, pkg.CustomerName, pkg.Email, transcript)
}
