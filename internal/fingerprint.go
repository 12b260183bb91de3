package internal

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint derives a device fingerprint from stable request attributes.
// The same (userAgent, accept, ip) triple always yields the same value, so
// it can be compared across requests as a weak consistency signal.
func Fingerprint(userAgent, accept, ip string) string {
	sum := sha256.Sum256([]byte(userAgent + "|" + accept + "|" + ip))
	return hex.EncodeToString(sum[:16])
}
