package core

import (
	"fmt"
	"strings"
)

// PendingTransaction is a transfer ready for submission. It is implemented by
// exactly two shapes, one per ledger protocol; switch on the concrete type.
type PendingTransaction interface {
	LedgerProtocol() LedgerProtocol
	Cryptocurrency() Cryptocurrency
	isPendingTransaction()
}

// LegacyPendingTransaction targets the account-identifier ledger. A nil Fee
// lets the ledger charge DefaultLegacyFee; a nil Memo sends memo 0.
type LegacyPendingTransaction struct {
	Ledger  CanisterID
	Token   Cryptocurrency
	Amount  Tokens
	To      UserOrAccount
	Fee     *Tokens
	Memo    *Memo
	Created TimestampNanos
}

func (LegacyPendingTransaction) LedgerProtocol() LedgerProtocol { return ProtocolLegacy }

func (t LegacyPendingTransaction) Cryptocurrency() Cryptocurrency { return t.Token }

func (LegacyPendingTransaction) isPendingTransaction() {}

// TokenStandardPendingTransaction targets the structured-account ledger.
type TokenStandardPendingTransaction struct {
	Ledger  CanisterID
	Token   Cryptocurrency
	Amount  Units
	Fee     Units
	To      Account
	Memo    []byte
	Created TimestampNanos
}

func (TokenStandardPendingTransaction) LedgerProtocol() LedgerProtocol { return ProtocolTokenStandard }

func (t TokenStandardPendingTransaction) Cryptocurrency() Cryptocurrency { return t.Token }

func (TokenStandardPendingTransaction) isPendingTransaction() {}

// LegacyTransferArgs is the request accepted by the legacy ledger.
type LegacyTransferArgs struct {
	Memo           Memo              `json:"memo"`
	Amount         Tokens            `json:"amount"`
	Fee            Tokens            `json:"fee"`
	FromSubaccount *Subaccount       `json:"from_subaccount,omitempty"`
	To             AccountIdentifier `json:"to"`
	CreatedAtTime  *TimestampNanos   `json:"created_at_time,omitempty"`
}

// TokenStandardTransferArgs is the request accepted by the token-standard ledger.
type TokenStandardTransferArgs struct {
	FromSubaccount *Subaccount     `json:"from_subaccount,omitempty"`
	To             Account         `json:"to"`
	Fee            *Units          `json:"fee,omitempty"`
	CreatedAtTime  *TimestampNanos `json:"created_at_time,omitempty"`
	Memo           []byte          `json:"memo,omitempty"`
	Amount         Units           `json:"amount"`
}

// CompletedTransaction is the protocol-agnostic record of a committed transfer.
type CompletedTransaction struct {
	Protocol        LedgerProtocol
	Ledger          CanisterID
	Token           Cryptocurrency
	Amount          Units
	Fee             Units
	From            string
	To              string
	Memo            []byte
	Created         TimestampNanos
	TransactionHash *TransactionHash
	BlockIndex      uint64
}

// FailedTransaction reports a transfer the ledger did not confirm. ErrorMessage
// is adapter specific and must be surfaced, not interpreted.
type FailedTransaction struct {
	Protocol     LedgerProtocol
	Ledger       CanisterID
	Token        Cryptocurrency
	Amount       Units
	Fee          Units
	To           string
	Created      TimestampNanos
	ErrorMessage string
}

func (f *FailedTransaction) Error() string {
	if f == nil {
		return ""
	}
	return f.ErrorMessage
}

type LegacyTransferErrorKind string

const (
	LegacyBadFee            LegacyTransferErrorKind = "bad_fee"
	LegacyInsufficientFunds LegacyTransferErrorKind = "insufficient_funds"
	LegacyTxTooOld          LegacyTransferErrorKind = "tx_too_old"
	LegacyTxCreatedInFuture LegacyTransferErrorKind = "tx_created_in_future"
	LegacyTxDuplicate       LegacyTransferErrorKind = "tx_duplicate"
)

// LegacyTransferError is a typed rejection from the legacy ledger.
type LegacyTransferError struct {
	Kind               LegacyTransferErrorKind `json:"kind"`
	ExpectedFee        Tokens                  `json:"expected_fee,omitempty"`
	Balance            Tokens                  `json:"balance,omitempty"`
	AllowedWindowNanos uint64                  `json:"allowed_window_nanos,omitempty"`
	DuplicateOf        uint64                  `json:"duplicate_of,omitempty"`
}

func (e *LegacyTransferError) Error() string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case LegacyBadFee:
		return fmt.Sprintf("BadFee { expected_fee: %d }", e.ExpectedFee)
	case LegacyInsufficientFunds:
		return fmt.Sprintf("InsufficientFunds { balance: %d }", e.Balance)
	case LegacyTxTooOld:
		return fmt.Sprintf("TxTooOld { allowed_window_nanos: %d }", e.AllowedWindowNanos)
	case LegacyTxCreatedInFuture:
		return "TxCreatedInFuture"
	case LegacyTxDuplicate:
		return fmt.Sprintf("TxDuplicate { duplicate_of: %d }", e.DuplicateOf)
	default:
		return fmt.Sprintf("UnknownTransferError { kind: %q }", string(e.Kind))
	}
}

type TokenStandardTransferErrorKind string

const (
	TokenStandardBadFee                 TokenStandardTransferErrorKind = "bad_fee"
	TokenStandardBadBurn                TokenStandardTransferErrorKind = "bad_burn"
	TokenStandardInsufficientFunds      TokenStandardTransferErrorKind = "insufficient_funds"
	TokenStandardTooOld                 TokenStandardTransferErrorKind = "too_old"
	TokenStandardCreatedInFuture        TokenStandardTransferErrorKind = "created_in_future"
	TokenStandardTemporarilyUnavailable TokenStandardTransferErrorKind = "temporarily_unavailable"
	TokenStandardDuplicate              TokenStandardTransferErrorKind = "duplicate"
	TokenStandardGenericError           TokenStandardTransferErrorKind = "generic_error"
)

// TokenStandardTransferError is a typed rejection from the token-standard ledger.
type TokenStandardTransferError struct {
	Kind          TokenStandardTransferErrorKind `json:"kind"`
	ExpectedFee   *Units                         `json:"expected_fee,omitempty"`
	MinBurnAmount *Units                         `json:"min_burn_amount,omitempty"`
	Balance       *Units                         `json:"balance,omitempty"`
	LedgerTime    uint64                         `json:"ledger_time,omitempty"`
	DuplicateOf   *Units                         `json:"duplicate_of,omitempty"`
	ErrorCode     *Units                         `json:"error_code,omitempty"`
	Message       string                         `json:"message,omitempty"`
}

func (e *TokenStandardTransferError) Error() string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case TokenStandardBadFee:
		return fmt.Sprintf("BadFee { expected_fee: %s }", unitsOrZero(e.ExpectedFee))
	case TokenStandardBadBurn:
		return fmt.Sprintf("BadBurn { min_burn_amount: %s }", unitsOrZero(e.MinBurnAmount))
	case TokenStandardInsufficientFunds:
		return fmt.Sprintf("InsufficientFunds { balance: %s }", unitsOrZero(e.Balance))
	case TokenStandardTooOld:
		return "TooOld"
	case TokenStandardCreatedInFuture:
		return fmt.Sprintf("CreatedInFuture { ledger_time: %d }", e.LedgerTime)
	case TokenStandardTemporarilyUnavailable:
		return "TemporarilyUnavailable"
	case TokenStandardDuplicate:
		return fmt.Sprintf("Duplicate { duplicate_of: %s }", unitsOrZero(e.DuplicateOf))
	case TokenStandardGenericError:
		return fmt.Sprintf("GenericError { error_code: %s, message: %q }", unitsOrZero(e.ErrorCode), strings.TrimSpace(e.Message))
	default:
		return fmt.Sprintf("UnknownTransferError { kind: %q }", string(e.Kind))
	}
}

func unitsOrZero(value *Units) Units {
	if value == nil {
		return Units{}
	}
	return *value
}
