package dto

import "encoding/json"

// Envelope is the outer body the voice platform posts to every function
// webhook. Fields other than args and call are ignored.
type Envelope struct {
	Args json.RawMessage `json:"args"`
	Call json.RawMessage `json:"call"`
}

// Pointer fields distinguish a missing argument from an empty string.

type VerifyArgs struct {
	TrackingID *string `json:"tracking_id"`
	PostalCode *string `json:"postal_code"`
}

type UpdateDateArgs struct {
	TrackingID *string `json:"tracking_id"`
	NewDate    *string `json:"new_date"`
}

type FinishCallArgs struct {
	TrackingID *string `json:"tracking_id"`
}

type FinishCallDetails struct {
	Transcript *string `json:"transcript"`
}

// WebhookResponse is the body of every webhook reply.
// Message is a string, or the list of delivery windows for a reschedule offer.
type WebhookResponse struct {
	Status  string `json:"status"`
	Action  string `json:"action,omitempty"`
	Message any    `json:"message"`
}
