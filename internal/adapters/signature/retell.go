package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// DefaultTolerance is how far a signature timestamp may drift from now.
const DefaultTolerance = 5 * time.Minute

// RetellVerifier checks signature headers of the form "v=<unix-millis>,d=<hex>",
// where the digest is HMAC-SHA256 over the canonical body followed by the
// decimal timestamp, keyed by the shared secret.
type RetellVerifier struct {
	Tolerance time.Duration
	Now       func() time.Time
}

func NewRetellVerifier() *RetellVerifier {
	return &RetellVerifier{
		Tolerance: DefaultTolerance,
		Now:       time.Now,
	}
}

// Verify reports whether signature is a fresh, valid signature of payload.
func (v *RetellVerifier) Verify(payload []byte, secret string, signature string) bool {
	if secret == "" {
		return false
	}

	stamp, digest, ok := parseHeader(signature)
	if !ok {
		return false
	}

	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	tolerance := v.Tolerance
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	diff := now().UnixMilli() - stamp
	if diff < 0 {
		diff = -diff
	}
	if diff > tolerance.Milliseconds() {
		return false
	}

	expected := computeDigest(payload, secret, stamp)
	return hmac.Equal([]byte(expected), []byte(digest))
}

// Sign returns a signature header for payload stamped at the given time.
func Sign(payload []byte, secret string, at time.Time) string {
	stamp := at.UnixMilli()
	return "v=" + strconv.FormatInt(stamp, 10) + ",d=" + computeDigest(payload, secret, stamp)
}

func computeDigest(payload []byte, secret string, stamp int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	mac.Write([]byte(strconv.FormatInt(stamp, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

func parseHeader(signature string) (int64, string, bool) {
	v, d, ok := strings.Cut(strings.TrimSpace(signature), ",")
	if !ok {
		return 0, "", false
	}

	rawStamp, ok := strings.CutPrefix(v, "v=")
	if !ok || rawStamp == "" {
		return 0, "", false
	}
	for _, c := range rawStamp {
		if c < '0' || c > '9' {
			return 0, "", false
		}
	}
	stamp, err := strconv.ParseInt(rawStamp, 10, 64)
	if err != nil {
		return 0, "", false
	}

	digest, ok := strings.CutPrefix(d, "d=")
	if !ok || digest == "" {
		return 0, "", false
	}

	return stamp, digest, true
}
