// Package signature verifies gateway webhook deliveries signed with the
// Stripe signing scheme: HMAC-SHA256 over "<timestamp>.<payload>" carried
// in the Stripe-Signature header.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultTolerance bounds the accepted clock skew between the signed
// timestamp and the receiver.
const DefaultTolerance = 5 * time.Minute

var (
	ErrMissingHeader    = errors.New("missing signature header")
	ErrMalformedHeader  = errors.New("malformed signature header")
	ErrTimestampExpired = errors.New("signature timestamp outside tolerance")
	ErrNoMatch          = errors.New("no matching signature")
)

type header struct {
	timestamp  int64
	signatures [][]byte
}

func parseHeader(raw string) (*header, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrMissingHeader
	}

	h := &header{}
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			continue
		}
		switch parts[0] {
		case "t":
			ts, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad timestamp", ErrMalformedHeader)
			}
			h.timestamp = ts
		case "v1":
			sig, err := hex.DecodeString(parts[1])
			if err != nil {
				continue
			}
			h.signatures = append(h.signatures, sig)
		}
	}

	if h.timestamp == 0 || len(h.signatures) == 0 {
		return nil, ErrMalformedHeader
	}
	return h, nil
}

// Verify checks the signature header against the raw payload.
func Verify(payload []byte, rawHeader, secret string, now time.Time, tolerance time.Duration) error {
	h, err := parseHeader(rawHeader)
	if err != nil {
		return err
	}

	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	signedAt := time.Unix(h.timestamp, 0)
	if signedAt.Before(now.Add(-tolerance)) || signedAt.After(now.Add(tolerance)) {
		return ErrTimestampExpired
	}

	expected := Sign(payload, secret, h.timestamp)
	for _, sig := range h.signatures {
		if hmac.Equal(sig, expected) {
			return nil
		}
	}
	return ErrNoMatch
}

// Sign computes the v1 signature for a payload at the given timestamp.
func Sign(payload []byte, secret string, timestamp int64) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(payload)
	return mac.Sum(nil)
}

// Header renders a signed header for a payload. Used by tests and tooling.
func Header(payload []byte, secret string, timestamp int64) string {
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(Sign(payload, secret, timestamp)))
}
