// Package cache provides answer cache adapters implementing ports.AnswerCache.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// questionKey normalizes a question so trivially different spellings share an entry.
func questionKey(question string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(question)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
