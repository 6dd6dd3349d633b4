package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"farmstand/internal/model"
)

// SignatureHeader is the request header the processor signs webhook
// deliveries with. Its value is comma-separated `t=<unix>,v1=<hex>` pairs.
const SignatureHeader = "Farm-Signature"

// DefaultSignatureTolerance bounds how stale a signed timestamp may be.
// Replays inside the window are harmless: the transitions they carry are
// idempotent.
const DefaultSignatureTolerance = 5 * time.Minute

// Sign computes the hex HMAC-SHA256 of `{timestamp}.{raw body}` with the
// shared webhook secret.
func Sign(secret []byte, timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeaderValue renders a full signature header for a payload. Used
// by tests and local tooling that simulate processor deliveries.
func SignatureHeaderValue(secret []byte, timestamp int64, body []byte) string {
	return fmt.Sprintf("t=%d,v1=%s", timestamp, Sign(secret, timestamp, body))
}

// VerifySignature authenticates a webhook delivery. The body must be the raw
// unparsed request bytes; hashing a re-serialised body would not match. A
// missing or malformed header, a signature mismatch, or a timestamp outside
// the tolerance window all fail with an authentication error.
func VerifySignature(secret []byte, header string, body []byte, now time.Time, tolerance time.Duration) error {
	if header == "" {
		return model.ErrInvalidSignature
	}

	var timestamp int64 = -1
	var provided []byte
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			return model.ErrInvalidSignature
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return model.ErrInvalidSignature
			}
			timestamp = ts
		case "v1":
			sig, err := hex.DecodeString(value)
			if err != nil {
				return model.ErrInvalidSignature
			}
			provided = sig
		}
	}

	if timestamp < 0 || provided == nil {
		return model.ErrInvalidSignature
	}

	if tolerance > 0 {
		age := now.Sub(time.Unix(timestamp, 0))
		if age > tolerance || age < -tolerance {
			return model.ErrInvalidSignature
		}
	}

	expected, err := hex.DecodeString(Sign(secret, timestamp, body))
	if err != nil {
		return fmt.Errorf("failed to decode computed signature: %w", err)
	}

	if !hmac.Equal(expected, provided) {
		return model.ErrInvalidSignature
	}

	return nil
}
