package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// StableID derives a 32-character identifier from parts. The same parts
// always give the same ID, so re-submitting a record overwrites it.
func StableID(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:16])
}
