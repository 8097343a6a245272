// Package ledger implements the two ledger transfer protocols over HTTP.
//
// Both clients post the transfer arguments as JSON to
// {base}/ledgers/{ledger}/transfer and expect a reply carrying either a
// block index or a typed rejection:
//
//	{"block_index": 42}
//	{"error": {"kind": "insufficient_funds", "balance": 10}}
package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-ledgerflow/core"
	"github.com/goliatone/go-ledgerflow/transport"
)

const transferPath = "transfer"

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type transferReply[E any] struct {
	BlockIndex *uint64 `json:"block_index,omitempty"`
	Error      *E      `json:"error,omitempty"`
}

type httpClient struct {
	transport core.TransportAdapter
	config    Config
	protocol  core.LedgerProtocol
}

func newHTTPClient(adapter core.TransportAdapter, cfg Config, protocol core.LedgerProtocol) (httpClient, error) {
	if adapter == nil {
		adapter = transport.NewRESTAdapter(nil)
	}
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if cfg.BaseURL == "" {
		return httpClient{}, goerrors.New("ledger: base url is required", goerrors.CategoryValidation).
			WithTextCode(core.ServiceErrorBadInput).
			WithMetadata(map[string]any{"protocol": string(protocol)})
	}
	return httpClient{transport: adapter, config: cfg, protocol: protocol}, nil
}

func (c httpClient) post(ctx context.Context, ledger core.CanisterID, args any) (core.TransportResponse, error) {
	body, err := json.Marshal(args)
	if err != nil {
		return core.TransportResponse{}, goerrors.Wrap(err, goerrors.CategoryBadInput, "ledger: encode transfer args").
			WithTextCode(core.ServiceErrorBadInput)
	}
	res, err := c.transport.Do(ctx, core.TransportRequest{
		Method:  http.MethodPost,
		URL:     transport.JoinURL(c.config.BaseURL, "ledgers/"+ledger.String()+"/"+transferPath),
		Headers: map[string]string{"Content-Type": "application/json", "Accept": "application/json"},
		Body:    body,
		Timeout: c.config.Timeout,
		Metadata: map[string]any{
			"protocol": string(c.protocol),
			"ledger":   ledger.String(),
		},
	})
	if err != nil {
		return core.TransportResponse{}, err
	}
	if err := transport.StatusError(res, string(c.protocol)+" transfer"); err != nil {
		return core.TransportResponse{}, err
	}
	return res, nil
}

// decodeReply returns the block index, or the typed rejection as err when
// the ledger refused the transfer.
func decodeReply[E any, P interface {
	*E
	error
}](res core.TransportResponse, protocol core.LedgerProtocol) (uint64, error) {
	var reply transferReply[E]
	if err := json.Unmarshal(res.Body, &reply); err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryExternal, "ledger: decode transfer reply").
			WithTextCode(core.ServiceErrorExternalFailure).
			WithMetadata(map[string]any{"protocol": string(protocol)})
	}
	if reply.Error != nil {
		return 0, P(reply.Error)
	}
	if reply.BlockIndex == nil {
		return 0, goerrors.New("ledger: transfer reply has neither block_index nor error", goerrors.CategoryExternal).
			WithTextCode(core.ServiceErrorExternalFailure).
			WithMetadata(map[string]any{"protocol": string(protocol)})
	}
	return *reply.BlockIndex, nil
}
