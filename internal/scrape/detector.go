package scrape

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint hashes normalized content. Whitespace runs are collapsed
// first so reflowed markup does not register as a regulatory change.
func Fingerprint(content string) string {
	normalized := strings.Join(strings.Fields(content), " ")
	h := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(h[:])
}

// Changed reports whether content differs from the previous revision's
// hash. An empty previous hash means the source has never been captured.
func Changed(previousHash, content string) bool {
	if previousHash == "" {
		return true
	}
	return Fingerprint(content) != previousHash
}
