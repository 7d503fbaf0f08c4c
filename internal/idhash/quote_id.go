// Package idhash computes deterministic record identifiers.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeQuoteID computes a deterministic quote_id using SHA256.
// Formula: SHA256(operation|input_mint|output_mint|in_amount|timestamp_ms|epoch)
// Returns hex-encoded hash (64 characters).
func ComputeQuoteID(
	operation string,
	inputMint string,
	outputMint string,
	inAmount uint64,
	timestampMs int64,
	epoch uint64,
) string {
	data := fmt.Sprintf("%s|%s|%s|%d|%d|%d",
		operation,
		inputMint,
		outputMint,
		inAmount,
		timestampMs,
		epoch,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
