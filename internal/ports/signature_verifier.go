package ports

// Contract for authenticating a webhook body against a shared secret.
// payload is the canonical serialization of the request body.
type SignatureVerifier interface {
	Verify(payload []byte, secret string, signature string) bool
}
