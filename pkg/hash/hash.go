package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Hex returns the hex-encoded SHA256 hash of the input string.
func SHA256Hex(input string) string {
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:])
}

// IteratedSHA256 applies SHA256 iteratively n times to produce a derived hash.
// Fewer than one iteration is treated as one.
func IteratedSHA256(input string, iterations int) string {
	data := []byte(input)
	for range max(iterations, 1) {
		h := sha256.Sum256(data)
		data = h[:]
	}
	return hex.EncodeToString(data)
}

// HashIdentity derives the throttling identity for a requester address.
// The salt is appended to the address before hashing.
func HashIdentity(address, salt string, iterations int) string {
	return IteratedSHA256(address+salt, iterations)
}

// LogPrefix returns a short, irreversible prefix of SHA256(input) for log
// correlation.
func LogPrefix(input string) string {
	return SHA256Hex(input)[:12]
}
