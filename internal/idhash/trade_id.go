package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(run_id|entry_bar|exit_bar|direction)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(runID string, entryBar, exitBar int, direction string) string {
	data := fmt.Sprintf("%s|%d|%d|%s", runID, entryBar, exitBar, direction)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
