package ledger

import (
	"context"

	"github.com/goliatone/go-ledgerflow/core"
)

// TokenStandardClient talks to ledgers addressed by owner/subaccount pairs.
type TokenStandardClient struct {
	client httpClient
}

func NewTokenStandardClient(adapter core.TransportAdapter, cfg Config) (*TokenStandardClient, error) {
	client, err := newHTTPClient(adapter, cfg, core.ProtocolTokenStandard)
	if err != nil {
		return nil, err
	}
	return &TokenStandardClient{client: client}, nil
}

func (c *TokenStandardClient) Transfer(ctx context.Context, ledger core.CanisterID, args core.TokenStandardTransferArgs) (uint64, error) {
	res, err := c.client.post(ctx, ledger, args)
	if err != nil {
		return 0, err
	}
	return decodeReply[core.TokenStandardTransferError](res, core.ProtocolTokenStandard)
}

var _ core.TokenStandardLedger = (*TokenStandardClient)(nil)
