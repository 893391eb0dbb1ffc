// Package fingerprint hashes dataset documents for change detection. A
// dataset whose content hash is unchanged since the last parse can be
// skipped entirely.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Generate creates a deterministic fingerprint of a raw document.
func Generate(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// HasChanged compares two fingerprints to detect changes
func HasChanged(oldFingerprint, newFingerprint string) bool {
	return oldFingerprint != newFingerprint
}
