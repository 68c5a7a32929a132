package domain

import "time"

// CreatedAtLayout is the persisted form of CallLog.CreatedAt (local time, second precision).
const CreatedAtLayout = "2006-01-02T15:04:05"

// Represents one finished agent call for a package.
// TrackingID is not enforced against existing packages; several logs may
// share the same TrackingID. Logs are never deleted or re-opened.
type CallLog struct {
	ID         int64
	TrackingID string
	Transcript string
	Completed  bool
	Escalated  bool
	CreatedAt  time.Time
}
