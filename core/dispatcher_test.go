package core

import (
	"context"
	"errors"
	"testing"
)

func TestTransferDispatcher_LegacySuccess(t *testing.T) {
	legacy := &stubLegacyLedger{blockIndex: 42}
	tokenStandard := &stubTokenStandardLedger{}
	dispatcher := NewTransferDispatcher(legacy, tokenStandard)

	pending, err := CreatePendingTransaction(InternetComputer, testLedger, NewUnits(400_000_000), Units{}, testGovernance, 1_700_000_000_000_000_000)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	completed, err := dispatcher.Submit(context.Background(), pending, testOther)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if legacy.callCount() != 1 || tokenStandard.callCount() != 0 {
		t.Fatalf("expected exactly one legacy call, got legacy=%d token=%d", legacy.callCount(), tokenStandard.callCount())
	}
	args := legacy.calls[0]
	if args.Fee != DefaultLegacyFee {
		t.Fatalf("expected default legacy fee, got %d", args.Fee)
	}
	if args.To != DefaultLedgerAccount(testGovernance) {
		t.Fatalf("expected user recipient resolved to default account")
	}
	if args.CreatedAtTime == nil || *args.CreatedAtTime != 1_700_000_000_000_000_000 {
		t.Fatalf("expected created_at_time forwarded")
	}
	if completed.BlockIndex != 42 || completed.Protocol != ProtocolLegacy {
		t.Fatalf("unexpected completed transaction %+v", completed)
	}
	if completed.TransactionHash == nil || completed.TransactionHash.String() != goldenTransactionHash {
		t.Fatalf("expected golden transaction hash, got %v", completed.TransactionHash)
	}
	if completed.From != DefaultLedgerAccount(testOther).String() {
		t.Fatalf("expected from rendered as sender default account, got %s", completed.From)
	}
	if len(completed.Memo) != 8 {
		t.Fatalf("expected 8 byte memo, got %d", len(completed.Memo))
	}
}

func TestTransferDispatcher_TokenStandardSuccess(t *testing.T) {
	legacy := &stubLegacyLedger{}
	tokenStandard := &stubTokenStandardLedger{blockIndex: 7}
	dispatcher := NewTransferDispatcher(legacy, tokenStandard)

	pending, err := CreatePendingTransaction(CHAT, testLedger, NewUnits(400_000_000), CHAT.Fee(), testBot, 99)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	tx := pending.(TokenStandardPendingTransaction)
	completed, err := dispatcher.Submit(context.Background(), &tx, testCaller)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if legacy.callCount() != 0 || tokenStandard.callCount() != 1 {
		t.Fatalf("expected exactly one token-standard call")
	}
	call := tokenStandard.calls[0]
	if call.ledger != testLedger {
		t.Fatalf("expected ledger %s, got %s", testLedger, call.ledger)
	}
	if call.args.Fee == nil || *call.args.Fee != CHAT.Fee() {
		t.Fatalf("expected token fee forwarded")
	}
	if call.args.To.Owner != testBot {
		t.Fatalf("expected recipient account owner %s", testBot)
	}
	if completed.BlockIndex != 7 || completed.TransactionHash != nil {
		t.Fatalf("unexpected completed transaction %+v", completed)
	}
	if completed.From != testCaller.String() {
		t.Fatalf("expected from rendered as sender account, got %s", completed.From)
	}
}

func TestTransferDispatcher_FailuresCarryAdapterMessage(t *testing.T) {
	expected := &TokenStandardTransferError{Kind: TokenStandardInsufficientFunds, Balance: ptrUnits(NewUnits(12))}
	tokenStandard := &stubTokenStandardLedger{err: expected}
	dispatcher := NewTransferDispatcher(nil, tokenStandard)

	pending, _ := CreatePendingTransaction(CHAT, testLedger, NewUnits(1), CHAT.Fee(), testBot, 1)
	_, err := dispatcher.Submit(context.Background(), pending, testCaller)
	var failed *FailedTransaction
	if !errors.As(err, &failed) {
		t.Fatalf("expected *FailedTransaction, got %T", err)
	}
	if failed.ErrorMessage != "InsufficientFunds { balance: 12 }" {
		t.Fatalf("unexpected error message %q", failed.ErrorMessage)
	}
	if tokenStandard.callCount() != 1 {
		t.Fatalf("expected a single attempt, got %d", tokenStandard.callCount())
	}

	legacyErr := &LegacyTransferError{Kind: LegacyBadFee, ExpectedFee: 10_000}
	dispatcher = NewTransferDispatcher(&stubLegacyLedger{err: legacyErr}, nil)
	legacyPending, _ := CreatePendingTransaction(InternetComputer, testLedger, NewUnits(1), Units{}, testBot, 1)
	_, err = dispatcher.Submit(context.Background(), legacyPending, testCaller)
	if !errors.As(err, &failed) || failed.ErrorMessage != "BadFee { expected_fee: 10000 }" {
		t.Fatalf("unexpected legacy failure %v", err)
	}
}

func TestTransferDispatcher_MissingAdapter(t *testing.T) {
	dispatcher := NewTransferDispatcher(nil, nil)
	pending, _ := CreatePendingTransaction(CHAT, testLedger, NewUnits(1), CHAT.Fee(), testBot, 1)
	_, err := dispatcher.Submit(context.Background(), pending, testCaller)
	var failed *FailedTransaction
	if !errors.As(err, &failed) {
		t.Fatalf("expected *FailedTransaction, got %v", err)
	}
	if _, err := dispatcher.Submit(context.Background(), nil, testCaller); !errors.As(err, &failed) {
		t.Fatalf("expected nil pending transaction to fail, got %v", err)
	}
}

func ptrUnits(value Units) *Units {
	return &value
}
