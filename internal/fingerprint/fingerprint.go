// Package fingerprint derives stable content keys used for deduplication and
// result caching.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// PrefixLength is the number of characters of normalized text that feed the digest.
const PrefixLength = 1000

// Of returns the hex-encoded SHA-256 digest of the first PrefixLength
// characters of text. Text is expected to be normalized already.
func Of(text string) string {
	runes := []rune(text)
	if len(runes) > PrefixLength {
		runes = runes[:PrefixLength]
	}
	sum := sha256.Sum256([]byte(string(runes)))
	return hex.EncodeToString(sum[:])
}

// Short truncates a fingerprint for log output.
func Short(fp string) string {
	if len(fp) > 16 {
		return fp[:16]
	}
	return fp
}
