// Package solana provides the chain access layer: a JSON-RPC HTTP client for
// account reads, a WebSocket client for account-change subscriptions, and
// parsers for the raw account layouts the exchange core consumes.
package solana

import "context"

// RPCClient defines the Solana JSON-RPC HTTP surface the exchange uses.
type RPCClient interface {
	// GetAccountInfo fetches one account. Returns nil when the account does
	// not exist.
	GetAccountInfo(ctx context.Context, pubkey Pubkey) (*AccountInfo, error)

	// GetMultipleAccounts fetches up to 100 accounts in one round trip.
	// Missing accounts are nil in the result slice, positionally.
	GetMultipleAccounts(ctx context.Context, pubkeys []Pubkey) ([]*AccountInfo, error)

	// GetEpochInfo fetches the current epoch and slot position.
	GetEpochInfo(ctx context.Context) (*EpochInfo, error)

	// GetSlot fetches the current confirmed slot.
	GetSlot(ctx context.Context) (int64, error)

	// GetLatestBlockhash fetches the most recent blockhash. Used as a
	// liveness probe for the RPC endpoint.
	GetLatestBlockhash(ctx context.Context) (string, error)
}

// AccountInfo is a decoded account snapshot.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       []byte // raw account data, base64-decoded
	Executable bool
	RentEpoch  uint64
}

// EpochInfo is the cluster's current epoch position.
type EpochInfo struct {
	AbsoluteSlot uint64
	BlockHeight  uint64
	Epoch        uint64
	SlotIndex    uint64
	SlotsInEpoch uint64
}
