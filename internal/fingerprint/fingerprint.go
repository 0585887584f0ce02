// Package fingerprint derives stable anonymous principal tokens from
// request metadata. The token identifies a client without any PII: it is
// a one-way hash and is never stored as a standalone row, only referenced.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// placeholder substitutes any missing metadata component so derivation is
// total and never errors.
const placeholder = "unknown"

// ShortLen is the display-prefix length used for degraded aliases.
const ShortLen = 12

// Derive maps (ip, userAgent, acceptLanguage) to a 64-character hex token.
// It is pure and stateless: identical inputs always yield the identical
// token. Clients sharing an address, software identifier and language
// (e.g. behind one proxy) collide onto one fingerprint; that is an
// accepted anonymity trade-off, not a defect.
func Derive(ip, userAgent, acceptLanguage string) string {
	if ip = strings.TrimSpace(ip); ip == "" {
		ip = placeholder
	}
	if userAgent == "" {
		userAgent = placeholder
	}
	if acceptLanguage == "" {
		acceptLanguage = placeholder
	}
	sum := sha256.Sum256([]byte(ip + "|" + userAgent + "|" + acceptLanguage))
	return hex.EncodeToString(sum[:])
}

// Short returns the display prefix of a fingerprint.
func Short(fp string) string {
	if len(fp) <= ShortLen {
		return fp
	}
	return fp[:ShortLen]
}
