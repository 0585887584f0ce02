// Package webhook verifies signed inbound payment-provider events.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/citywatch-app/citywatch/internal/errs"
)

// MaxSkew bounds how far a signed timestamp may drift from now before
// the event is treated as a replay.
const MaxSkew = 300 * time.Second

// Verify checks a signature header of the form "t=<unix>,v1=<hex-mac>"
// against the raw body and shared secret. The MAC covers
// "{timestamp}.{body}" and is compared in constant time. Any parse,
// comparison or freshness failure yields the same uniform rejection.
func Verify(body []byte, header, secret string, now time.Time) error {
	var tsPart, macPart string
	for _, part := range strings.Split(header, ",") {
		switch {
		case strings.HasPrefix(part, "t="):
			tsPart = part[len("t="):]
		case strings.HasPrefix(part, "v1="):
			macPart = part[len("v1="):]
		}
	}
	if tsPart == "" || macPart == "" {
		return errs.ErrInvalidSignature
	}

	ts, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return errs.ErrInvalidSignature
	}
	if d := now.Sub(time.Unix(ts, 0)); d > MaxSkew || d < -MaxSkew {
		return errs.ErrInvalidSignature
	}

	provided, err := hex.DecodeString(macPart)
	if err != nil {
		return errs.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(tsPart))
	mac.Write([]byte("."))
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), provided) {
		return errs.ErrInvalidSignature
	}
	return nil
}

// Sign produces a header value for the body at the given instant. Used
// by tests and by outbound relays that speak the same scheme.
func Sign(body []byte, secret string, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(body)
	return "t=" + ts + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}
