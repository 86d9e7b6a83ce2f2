package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputePositionID computes a deterministic position_id using SHA256.
// Formula: "pos_" + SHA256(asset_address|signal_id|opened_ms)[:16]
func ComputePositionID(assetAddress, signalID string, openedMs int64) string {
	data := fmt.Sprintf("%s|%s|%d", assetAddress, signalID, openedMs)
	hash := sha256.Sum256([]byte(data))
	return "pos_" + hex.EncodeToString(hash[:])[:16]
}
