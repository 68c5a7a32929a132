package domain

// Package statuses that allow a delivery to be rescheduled.
// Any other status value is stored and returned as-is.
const (
	StatusOutForDelivery = "Out for Delivery"
	StatusScheduled      = "Scheduled"
)

// Represents a single parcel addressed to one recipient.
// TrackingID is the unique key. ScheduledAt is kept as the exact string the
// caller supplied, it is never parsed.
type Package struct {
	ID           int64
	TrackingID   string
	CustomerName string
	Phone        string
	Address      string
	PostalCode   string
	Email        string
	ScheduledAt  string
	Status       string
}

// Reschedulable reports whether the package status allows a new delivery window.
func (p *Package) Reschedulable() bool {
	switch p.Status {
	case StatusOutForDelivery, StatusScheduled:
		return true
	default:
		return false
	}
}

// MatchesPostalCode compares the postal code case-sensitively and without trimming.
func (p *Package) MatchesPostalCode(postalCode string) bool {
	return p.PostalCode == postalCode
}
