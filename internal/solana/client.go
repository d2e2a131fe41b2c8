package solana

import (
	"context"
	"sync"

	"pump-sentinel/internal/pool"
)

// PooledClient is an RPCClient that routes every call through the endpoint
// pool: the next healthy endpoint serves the call and the request is
// attributed to its rate budget. HTTP clients are built once per endpoint
// and reused.
type PooledClient struct {
	pool    *pool.Pool
	factory func(httpURL string) RPCClient

	mu      sync.Mutex
	clients map[string]RPCClient
	lastID  string
}

// NewPooledClient creates a pool-routed RPC client.
func NewPooledClient(p *pool.Pool, opts ...ClientOption) *PooledClient {
	return &PooledClient{
		pool: p,
		factory: func(httpURL string) RPCClient {
			return NewHTTPClient(httpURL, opts...)
		},
		clients: make(map[string]RPCClient),
	}
}

var _ RPCClient = (*PooledClient)(nil)

// Rotate takes the most recently used endpoint out of rotation so the next
// call lands elsewhere. The retry policy calls this between attempts.
func (c *PooledClient) Rotate() {
	c.mu.Lock()
	id := c.lastID
	c.mu.Unlock()
	if id != "" {
		c.pool.MarkError(id)
	}
}

// pick selects the next healthy endpoint and charges the request to it.
func (c *PooledClient) pick() (RPCClient, error) {
	ep, err := c.pool.NextHealthy()
	if err != nil {
		return nil, err
	}
	c.pool.RecordRequest(ep.ID)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastID = ep.ID
	client, ok := c.clients[ep.ID]
	if !ok {
		client = c.factory(ep.HTTPURL)
		c.clients[ep.ID] = client
	}
	return client, nil
}

// GetBlockHeight retrieves the current block height.
func (c *PooledClient) GetBlockHeight(ctx context.Context) (uint64, error) {
	client, err := c.pick()
	if err != nil {
		return 0, err
	}
	return client.GetBlockHeight(ctx)
}

// GetTransaction retrieves a confirmed transaction by signature.
func (c *PooledClient) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	client, err := c.pick()
	if err != nil {
		return nil, err
	}
	return client.GetTransaction(ctx, signature)
}

// GetParsedAccountInfo retrieves an account with jsonParsed encoding.
func (c *PooledClient) GetParsedAccountInfo(ctx context.Context, pubkey string) (*ParsedAccountInfo, error) {
	client, err := c.pick()
	if err != nil {
		return nil, err
	}
	return client.GetParsedAccountInfo(ctx, pubkey)
}

// GetAccountInfoAndContext retrieves raw account data with its read slot.
func (c *PooledClient) GetAccountInfoAndContext(ctx context.Context, pubkey string, minContextSlot int64) (*AccountInfo, int64, error) {
	client, err := c.pick()
	if err != nil {
		return nil, 0, err
	}
	return client.GetAccountInfoAndContext(ctx, pubkey, minContextSlot)
}
