// Package secrets generates random keys for the server configuration.
package secrets

import (
	"crypto/rand"
	"encoding/base64"

	dErrors "inclusao/pkg/domain-errors"
)

// KeyBytes is the entropy of a generated key.
const KeyBytes = 32

// Generate returns KeyBytes of randomness, base64url-encoded without
// padding. The result is long enough for CSRF_KEY and AUTH_SIGNING_KEY.
func Generate() (string, error) {
	buf := make([]byte, KeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate secret")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
