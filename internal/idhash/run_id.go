// Package idhash computes deterministic identifiers for runs and
// trades. The same inputs always hash to the same ID, which makes
// persisted results idempotent across re-runs.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(series_id|strategy_id|config_fingerprint)
// Returns hex-encoded hash (64 characters).
func ComputeRunID(seriesID, strategyID, configFingerprint string) string {
	data := fmt.Sprintf("%s|%s|%s", seriesID, strategyID, configFingerprint)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
