package query

import (
	"github.com/goliatone/go-ledgerflow/core"
)

const (
	TypeListRetries     = "ledgerflow.query.retry.list"
	TypeListSubmissions = "ledgerflow.query.submission.list"
	TypeFormatAmount    = "ledgerflow.query.amount.format"
)

type ListRetriesMessage struct {
	// Status filters entries; empty lists every status.
	Status core.RetryStatus
	Limit  int
}

func (ListRetriesMessage) Type() string { return TypeListRetries }

func (m ListRetriesMessage) Validate() error {
	switch m.Status {
	case "", core.RetryStatusPending, core.RetryStatusProcessing, core.RetryStatusDelivered, core.RetryStatusFailed:
	default:
		return queryValidationError("status", "unknown retry status "+string(m.Status))
	}
	if m.Limit < 0 {
		return queryValidationError("limit", "limit must not be negative")
	}
	return nil
}

type ListSubmissionsMessage struct {
	Caller core.UserID
	Limit  int
}

func (ListSubmissionsMessage) Type() string { return TypeListSubmissions }

func (m ListSubmissionsMessage) Validate() error {
	if m.Caller.IsZero() {
		return queryValidationError("caller", "caller is required")
	}
	if m.Limit < 0 {
		return queryValidationError("limit", "limit must not be negative")
	}
	return nil
}

// FormatAmountMessage renders Amount either for a catalogued Token or with
// explicit Decimals when Token is empty.
type FormatAmountMessage struct {
	Amount     core.Units
	Token      core.Cryptocurrency
	Decimals   uint8
	WithSymbol bool
}

func (FormatAmountMessage) Type() string { return TypeFormatAmount }

func (m FormatAmountMessage) Validate() error {
	if m.Token != "" && !m.Token.Valid() {
		return queryValidationError("token", "unsupported token "+string(m.Token))
	}
	if m.Token == "" && m.WithSymbol {
		return queryValidationError("token", "a token is required to render a symbol")
	}
	return nil
}
