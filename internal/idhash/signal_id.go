package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeSignalID computes a deterministic signal_id using SHA256.
// Formula: "sig_" + SHA256(asset_address|snapshot_ms)[:16]
// One asset can fire at most one signal per snapshot timestamp, so a
// duplicate delivery collapses onto the same row at insert time.
func ComputeSignalID(assetAddress string, snapshotMs int64) string {
	data := fmt.Sprintf("%s|%d", assetAddress, snapshotMs)
	hash := sha256.Sum256([]byte(data))
	return "sig_" + hex.EncodeToString(hash[:])[:16]
}

// ComputeRejectionID computes a deterministic rejection_id using SHA256.
// Formula: "rej_" + SHA256(asset_address|snapshot_ms)[:16]
func ComputeRejectionID(assetAddress string, snapshotMs int64) string {
	data := fmt.Sprintf("%s|%d", assetAddress, snapshotMs)
	hash := sha256.Sum256([]byte(data))
	return "rej_" + hex.EncodeToString(hash[:])[:16]
}
