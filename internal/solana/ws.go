package solana

import "context"

// WSClient defines the Solana WebSocket subscription surface the exchange
// uses: account-change notifications for the handful of accounts the state
// tracker watches.
type WSClient interface {
	// SubscribeAccount subscribes to data changes of a single account.
	SubscribeAccount(ctx context.Context, pubkey Pubkey) (<-chan AccountNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// AccountNotification is one account-change message.
type AccountNotification struct {
	Pubkey   Pubkey
	Slot     int64
	Lamports uint64
	Owner    string
	Data     []byte // raw account data, base64-decoded
}
