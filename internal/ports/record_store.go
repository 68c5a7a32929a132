package ports

import (
	"context"
	"delivery-reschedule-service/internal/domain"
	"errors"
)

// ErrPackageNotFound is returned when no package has the requested tracking id.
var ErrPackageNotFound = errors.New("package not found")

// Port: a boundary for reading and mutating packages and call logs.
type RecordStore interface {
	// Return the package with the exact tracking id, or ErrPackageNotFound.
	FindPackage(ctx context.Context, trackingID string) (*domain.Package, error)
	// Set scheduled_at on the matching package, or return ErrPackageNotFound.
	UpdatePackageSchedule(ctx context.Context, trackingID string, newDate string) error
	// Append a call log and return its id (max existing id + 1).
	AppendCallLog(ctx context.Context, log domain.CallLog) (int64, error)
	// Mark every incomplete log for the tracking id as completed.
	MarkIncompleteLogsCompleted(ctx context.Context, trackingID string) error
	// Return the call logs for the tracking id ordered by id.
	ListCallLogs(ctx context.Context, trackingID string) ([]domain.CallLog, error)
}
