// Package stub provides in-memory chain clients for tests.
package stub

import (
	"context"
	"sync"

	"solana-exchange-core/internal/solana"
)

// RPCClient implements solana.RPCClient over an in-memory account map.
type RPCClient struct {
	mu       sync.RWMutex
	accounts map[solana.Pubkey]*solana.AccountInfo
	epoch    solana.EpochInfo
	slot     int64
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		accounts: make(map[solana.Pubkey]*solana.AccountInfo),
	}
}

var _ solana.RPCClient = (*RPCClient)(nil)

// SetAccount stores account data under a pubkey.
func (c *RPCClient) SetAccount(pubkey solana.Pubkey, info *solana.AccountInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[pubkey] = info
}

// SetAccountData stores an account with only its data payload populated.
func (c *RPCClient) SetAccountData(pubkey solana.Pubkey, data []byte) {
	c.SetAccount(pubkey, &solana.AccountInfo{Data: data})
}

// SetEpoch sets the epoch returned by GetEpochInfo.
func (c *RPCClient) SetEpoch(epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch.Epoch = epoch
}

// SetSlot sets the slot returned by GetSlot.
func (c *RPCClient) SetSlot(slot int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slot = slot
}

// GetAccountInfo returns the stored account, or nil when absent.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey solana.Pubkey) (*solana.AccountInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accounts[pubkey], nil
}

// GetMultipleAccounts returns stored accounts positionally; absent accounts
// are nil.
func (c *RPCClient) GetMultipleAccounts(_ context.Context, pubkeys []solana.Pubkey) ([]*solana.AccountInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	infos := make([]*solana.AccountInfo, len(pubkeys))
	for i, pk := range pubkeys {
		infos[i] = c.accounts[pk]
	}
	return infos, nil
}

// GetEpochInfo returns the configured epoch.
func (c *RPCClient) GetEpochInfo(_ context.Context) (*solana.EpochInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info := c.epoch
	return &info, nil
}

// GetSlot returns the configured slot.
func (c *RPCClient) GetSlot(_ context.Context) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.slot, nil
}

// GetLatestBlockhash returns a fixed placeholder hash.
func (c *RPCClient) GetLatestBlockhash(_ context.Context) (string, error) {
	return "11111111111111111111111111111111", nil
}
