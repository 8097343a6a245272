package core

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
)

// LegacyLedger submits a transfer to an account-identifier ledger and returns
// the committed block index. Typed rejections should be *LegacyTransferError.
type LegacyLedger interface {
	Transfer(ctx context.Context, ledger CanisterID, args LegacyTransferArgs) (uint64, error)
}

// TokenStandardLedger submits a transfer to a structured-account ledger and
// returns the committed block index. Typed rejections should be
// *TokenStandardTransferError.
type TokenStandardLedger interface {
	Transfer(ctx context.Context, ledger CanisterID, args TokenStandardTransferArgs) (uint64, error)
}

// TransferDispatcher routes a pending transaction to its protocol adapter and
// normalizes both result shapes. Each Submit makes at most one remote call.
type TransferDispatcher struct {
	legacy        LegacyLedger
	tokenStandard TokenStandardLedger
}

func NewTransferDispatcher(legacy LegacyLedger, tokenStandard TokenStandardLedger) *TransferDispatcher {
	return &TransferDispatcher{legacy: legacy, tokenStandard: tokenStandard}
}

// Submit returns the completed transaction or a *FailedTransaction.
func (d *TransferDispatcher) Submit(
	ctx context.Context,
	pending PendingTransaction,
	sender Principal,
) (CompletedTransaction, error) {
	switch tx := pending.(type) {
	case LegacyPendingTransaction:
		return d.submitLegacy(ctx, tx, sender)
	case *LegacyPendingTransaction:
		if tx == nil {
			return CompletedTransaction{}, &FailedTransaction{ErrorMessage: "core: pending transaction is required"}
		}
		return d.submitLegacy(ctx, *tx, sender)
	case TokenStandardPendingTransaction:
		return d.submitTokenStandard(ctx, tx, sender)
	case *TokenStandardPendingTransaction:
		if tx == nil {
			return CompletedTransaction{}, &FailedTransaction{ErrorMessage: "core: pending transaction is required"}
		}
		return d.submitTokenStandard(ctx, *tx, sender)
	case nil:
		return CompletedTransaction{}, &FailedTransaction{ErrorMessage: "core: pending transaction is required"}
	default:
		return CompletedTransaction{}, &FailedTransaction{
			ErrorMessage: fmt.Sprintf("%v: %T", ErrUnsupportedProtocol, pending),
		}
	}
}

func (d *TransferDispatcher) submitLegacy(
	ctx context.Context,
	tx LegacyPendingTransaction,
	sender Principal,
) (CompletedTransaction, error) {
	fee := DefaultLegacyFee
	if tx.Fee != nil {
		fee = *tx.Fee
	}
	var memo Memo
	if tx.Memo != nil {
		memo = *tx.Memo
	}
	to := tx.To.AccountIdentifier()
	created := tx.Created
	args := LegacyTransferArgs{
		Memo:          memo,
		Amount:        tx.Amount,
		Fee:           fee,
		To:            to,
		CreatedAtTime: &created,
	}
	failed := func(message string) (CompletedTransaction, error) {
		return CompletedTransaction{}, &FailedTransaction{
			Protocol:     ProtocolLegacy,
			Ledger:       tx.Ledger,
			Token:        tx.Token,
			Amount:       tx.Amount.Units(),
			Fee:          fee.Units(),
			To:           to.String(),
			Created:      tx.Created,
			ErrorMessage: message,
		}
	}

	if d == nil || d.legacy == nil {
		return failed("core: legacy ledger is not configured")
	}
	hash, err := CalculateTransactionHash(sender, args)
	if err != nil {
		return failed(err.Error())
	}
	blockIndex, err := d.legacy.Transfer(ctx, tx.Ledger, args)
	if err != nil {
		return failed(transferErrorMessage(err))
	}
	return CompletedTransaction{
		Protocol:        ProtocolLegacy,
		Ledger:          tx.Ledger,
		Token:           tx.Token,
		Amount:          tx.Amount.Units(),
		Fee:             fee.Units(),
		From:            DefaultLedgerAccount(sender).String(),
		To:              to.String(),
		Memo:            memoBytes(memo),
		Created:         tx.Created,
		TransactionHash: &hash,
		BlockIndex:      blockIndex,
	}, nil
}

func (d *TransferDispatcher) submitTokenStandard(
	ctx context.Context,
	tx TokenStandardPendingTransaction,
	sender Principal,
) (CompletedTransaction, error) {
	fee := tx.Fee
	created := tx.Created
	args := TokenStandardTransferArgs{
		To:            tx.To,
		Fee:           &fee,
		CreatedAtTime: &created,
		Memo:          cloneBytes(tx.Memo),
		Amount:        tx.Amount,
	}
	failed := func(message string) (CompletedTransaction, error) {
		return CompletedTransaction{}, &FailedTransaction{
			Protocol:     ProtocolTokenStandard,
			Ledger:       tx.Ledger,
			Token:        tx.Token,
			Amount:       tx.Amount,
			Fee:          tx.Fee,
			To:           tx.To.String(),
			Created:      tx.Created,
			ErrorMessage: message,
		}
	}

	if d == nil || d.tokenStandard == nil {
		return failed("core: token-standard ledger is not configured")
	}
	blockIndex, err := d.tokenStandard.Transfer(ctx, tx.Ledger, args)
	if err != nil {
		return failed(transferErrorMessage(err))
	}
	return CompletedTransaction{
		Protocol:   ProtocolTokenStandard,
		Ledger:     tx.Ledger,
		Token:      tx.Token,
		Amount:     tx.Amount,
		Fee:        tx.Fee,
		From:       AccountOf(sender).String(),
		To:         tx.To.String(),
		Memo:       cloneBytes(tx.Memo),
		Created:    tx.Created,
		BlockIndex: blockIndex,
	}, nil
}

func transferErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	message := strings.TrimSpace(err.Error())
	if message == "" {
		return "transfer failed"
	}
	return message
}

// memoBytes renders a legacy memo as 8 big-endian bytes.
func memoBytes(memo Memo) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(memo))
}

func cloneBytes(in []byte) []byte {
	if in == nil {
		return nil
	}
	return append([]byte(nil), in...)
}
