package ledger

import (
	"context"

	"github.com/goliatone/go-ledgerflow/core"
)

// LegacyClient talks to ledgers addressed by account identifiers.
type LegacyClient struct {
	client httpClient
}

func NewLegacyClient(adapter core.TransportAdapter, cfg Config) (*LegacyClient, error) {
	client, err := newHTTPClient(adapter, cfg, core.ProtocolLegacy)
	if err != nil {
		return nil, err
	}
	return &LegacyClient{client: client}, nil
}

func (c *LegacyClient) Transfer(ctx context.Context, ledger core.CanisterID, args core.LegacyTransferArgs) (uint64, error) {
	res, err := c.client.post(ctx, ledger, args)
	if err != nil {
		return 0, err
	}
	return decodeReply[core.LegacyTransferError](res, core.ProtocolLegacy)
}

var _ core.LegacyLedger = (*LegacyClient)(nil)
