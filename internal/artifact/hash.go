package artifact

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashText computes a deterministic hex digest of the given text. It is used
// purely as a change-detection signal for cache validity, not for security.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
