package internal

import (
	"crypto/rand"
	"encoding/base64"
)

const csrfSecretSize = 32

type SessionID [16]byte

func NewSessionID() (SessionID, error) {
	var sid SessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

func (s SessionID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(s[:])
}

// NewCSRFSecret returns a fresh 32-byte random secret, base64url encoded.
func NewCSRFSecret() (string, error) {
	var secret [csrfSecretSize]byte
	if _, err := rand.Read(secret[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(secret[:]), nil
}
