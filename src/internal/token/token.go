// Package token issues the opaque identifiers stored in the session table.
// Tokens come from the OS CSPRNG with 256 bits of entropy; no timestamp or
// counter component leaks into the value.
package token

import (
	"crypto/rand"
	"encoding/base64"
)

const tokenBytes = 32

// New returns a fresh opaque token. Session and refresh tokens are minted by
// independent calls and are never derived from one another.
func New() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
