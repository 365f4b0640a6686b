// Package secret generates opaque bearer secrets and their comparison digests.
package secret

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// EntropyBytes is the number of random bytes in every generated secret (256 bits).
const EntropyBytes = 32

// Marker prefixes make secrets recognizable to scanning and revocation tooling.
const (
	InvitationMarker = "oki_"
	APIKeyMarker     = "okk_"
	WebhookMarker    = "whsec_"
)

// New returns marker followed by base58 of EntropyBytes random bytes.
func New(marker string) (string, error) {
	buf := make([]byte, EntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return marker + base58.Encode(buf), nil
}

// Digest returns the hex SHA-256 of s. Only digests are persisted.
func Digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Matches compares presented against a stored digest in constant time.
func Matches(presented, digest string) bool {
	return subtle.ConstantTimeCompare([]byte(Digest(presented)), []byte(digest)) == 1
}

// WellFormed reports whether s carries marker followed by a base58 body of the expected size.
func WellFormed(s, marker string) bool {
	body, ok := strings.CutPrefix(s, marker)
	if !ok || body == "" {
		return false
	}
	raw, err := base58.Decode(body)
	if err != nil {
		return false
	}
	return len(raw) == EntropyBytes
}

// DisplayPrefix returns the marker and the first six characters of the body, safe to show in listings.
func DisplayPrefix(s, marker string) string {
	body := strings.TrimPrefix(s, marker)
	if len(body) > 6 {
		body = body[:6]
	}
	return marker + body
}
