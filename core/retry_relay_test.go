package core

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRetryRelay_AckOnDelivery(t *testing.T) {
	store := &memoryRetryStore{}
	_ = store.Send(context.Background(), RetryMessage{Destination: testBot, Operation: "op", Payload: []byte("x")})

	relay, err := NewRetryRelay(store, DefaultRetryRelayConfig())
	if err != nil {
		t.Fatalf("new relay: %v", err)
	}
	var delivered []RetryEntry
	relay.Register("op", RetryDelivererFunc(func(_ context.Context, entry RetryEntry) error {
		delivered = append(delivered, entry)
		return nil
	}))

	stats, err := relay.DispatchPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("dispatch pending: %v", err)
	}
	if stats.Claimed != 1 || stats.Delivered != 1 || stats.Retried != 0 || stats.Failed != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(store.acked) != 1 || store.acked[0] != "retry_1" {
		t.Fatalf("expected ack for retry_1, got %v", store.acked)
	}
	if len(delivered) != 1 || delivered[0].Destination != testBot || string(delivered[0].Payload) != "x" {
		t.Fatalf("unexpected delivered entries %+v", delivered)
	}
}

func TestRetryRelay_ReleasesAndParks(t *testing.T) {
	store := &memoryRetryStore{
		pending: []RetryEntry{
			{ID: "fresh", Operation: "op", Attempts: 0},
			{ID: "tired", Operation: "op", Attempts: 2},
		},
	}
	relay, err := NewRetryRelay(store, RetryRelayConfig{BatchSize: 10, MaxAttempts: 3})
	if err != nil {
		t.Fatalf("new relay: %v", err)
	}
	relay.Register("op", RetryDelivererFunc(func(context.Context, RetryEntry) error {
		return errors.New("still down")
	}))

	stats, err := relay.DispatchPending(context.Background(), 0)
	if err == nil {
		t.Fatalf("expected dispatch error")
	}
	if stats.Claimed != 2 || stats.Retried != 1 || stats.Failed != 1 || stats.Delivered != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(store.released) != 2 {
		t.Fatalf("expected two releases, got %d", len(store.released))
	}
	if store.released[0].id != "fresh" || store.released[0].park {
		t.Fatalf("expected fresh entry to return to pending, got %+v", store.released[0])
	}
	if store.released[1].id != "tired" || !store.released[1].park {
		t.Fatalf("expected tired entry to be parked, got %+v", store.released[1])
	}
	if len(store.acked) != 0 {
		t.Fatalf("expected no acks")
	}
}

func TestRetryRelay_UnknownOperationIsReleased(t *testing.T) {
	store := &memoryRetryStore{pending: []RetryEntry{{ID: "orphan", Operation: "nobody"}}}
	relay, err := NewRetryRelay(store, DefaultRetryRelayConfig())
	if err != nil {
		t.Fatalf("new relay: %v", err)
	}
	stats, err := relay.DispatchPending(context.Background(), 1)
	if err == nil || stats.Retried != 1 {
		t.Fatalf("expected unknown operation to be retried later, got %+v, %v", stats, err)
	}
}

func TestRetryRelay_CancelledPassSettlesEveryClaim(t *testing.T) {
	store := &memoryRetryStore{
		pending: []RetryEntry{
			{ID: "first", Operation: "op", Attempts: 9},
			{ID: "second", Operation: "op"},
			{ID: "third", Operation: "op"},
		},
	}
	relay, err := NewRetryRelay(store, RetryRelayConfig{BatchSize: 10, MaxAttempts: 10})
	if err != nil {
		t.Fatalf("new relay: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	relay.Register("op", RetryDelivererFunc(func(ctx context.Context, _ RetryEntry) error {
		cancel()
		return ctx.Err()
	}))

	stats, err := relay.DispatchPending(ctx, 0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation to surface, got %v", err)
	}
	if stats.Claimed != 3 || stats.Retried != 1 || stats.Requeued != 2 || stats.Failed != 0 || stats.Unsettled != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(store.released) != 1 || store.released[0].id != "first" || store.released[0].park {
		t.Fatalf("expected interrupted attempt to return to pending, got %+v", store.released)
	}
	if len(store.unclaimed) != 2 || store.unclaimed[0] != "second" || store.unclaimed[1] != "third" {
		t.Fatalf("expected untouched entries to be unclaimed, got %v", store.unclaimed)
	}
}

func TestRetryRelay_SettleFailuresAreNotCounted(t *testing.T) {
	store := &memoryRetryStore{
		pending:    []RetryEntry{{ID: "down", Operation: "down"}, {ID: "up", Operation: "up"}},
		releaseErr: errors.New("release: database is locked"),
		ackErr:     errors.New("ack: database is locked"),
	}
	relay, err := NewRetryRelay(store, DefaultRetryRelayConfig())
	if err != nil {
		t.Fatalf("new relay: %v", err)
	}
	relay.Register("down", RetryDelivererFunc(func(context.Context, RetryEntry) error {
		return errors.New("still down")
	}))
	relay.Register("up", RetryDelivererFunc(func(context.Context, RetryEntry) error {
		return nil
	}))

	stats, err := relay.DispatchPending(context.Background(), 0)
	if err == nil || !strings.Contains(err.Error(), "release: database is locked") || !strings.Contains(err.Error(), "ack: database is locked") {
		t.Fatalf("expected settle errors to surface, got %v", err)
	}
	if stats.Claimed != 2 || stats.Unsettled != 2 || stats.Retried != 0 || stats.Delivered != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestRetryRelay_RequiresStore(t *testing.T) {
	if _, err := NewRetryRelay(nil, DefaultRetryRelayConfig()); err == nil {
		t.Fatalf("expected missing store error")
	}
	var relay *RetryRelay
	if _, err := relay.DispatchPending(context.Background(), 1); err == nil {
		t.Fatalf("expected nil relay error")
	}
}

func TestProposalRetryDeliverer(t *testing.T) {
	payload, err := EncodeSubmitProposalArgs(SubmitProposalArgs{
		GovernanceCanisterID: testGovernance,
		Proposal:             testProposalRequest().Proposal,
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	entry := RetryEntry{ID: "r1", Destination: testBot, Operation: RetryOperationSubmitProposal, Payload: payload}

	bot := &stubProposalsBot{response: DownstreamResponse{Status: DownstreamInternalError, Message: "typed"}}
	if err := (ProposalRetryDeliverer{Client: bot}).Deliver(context.Background(), entry); err != nil {
		t.Fatalf("expected typed response to acknowledge, got %v", err)
	}
	if bot.callCount() != 1 || bot.calls[0].bot != testBot || bot.calls[0].args.GovernanceCanisterID != testGovernance {
		t.Fatalf("unexpected downstream call %+v", bot.calls)
	}
	if bot.calls[0].key != "r1" {
		t.Fatalf("expected replay to reuse the entry id as idempotency key, got %q", bot.calls[0].key)
	}

	bot.err = errors.New("unreachable")
	if err := (ProposalRetryDeliverer{Client: bot}).Deliver(context.Background(), entry); err == nil {
		t.Fatalf("expected delivery failure to surface")
	}

	entry.Payload = []byte{0xc1}
	if err := (ProposalRetryDeliverer{Client: bot}).Deliver(context.Background(), entry); err == nil {
		t.Fatalf("expected malformed payload error")
	}
}

func TestService_DispatchRetriesReplaysQueuedProposal(t *testing.T) {
	store := &memoryRetryStore{}
	bot := &stubProposalsBot{err: errors.New("unreachable")}
	svc, err := NewService(DefaultConfig(),
		WithTokenStandardLedger(&stubTokenStandardLedger{}),
		WithProposalsBotClient(bot),
		WithRetryStore(store),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	response := svc.SubmitProposal(context.Background(), RuntimeSnapshot{Caller: testCaller}, testProposalRequest())
	if response.Status != ProposalRetrying {
		t.Fatalf("expected retrying, got %s", response)
	}
	if len(store.pending) != 1 {
		t.Fatalf("expected retry store to receive the entry, got %d", len(store.pending))
	}

	bot.err = nil
	bot.response = DownstreamResponse{Status: DownstreamSuccess}
	stats, err := svc.DispatchRetries(context.Background(), 10)
	if err != nil {
		t.Fatalf("dispatch retries: %v", err)
	}
	if stats.Delivered != 1 {
		t.Fatalf("expected one delivery, got %+v", stats)
	}
	if bot.callCount() != 2 {
		t.Fatalf("expected direct call plus replay, got %d", bot.callCount())
	}
	if bot.calls[0].key == "" || bot.calls[0].key != bot.calls[1].key {
		t.Fatalf("expected replay to reuse the direct call key, got %q and %q", bot.calls[0].key, bot.calls[1].key)
	}
}

func TestService_DispatchRetriesRequiresStore(t *testing.T) {
	svc, err := NewService(DefaultConfig())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := svc.DispatchRetries(context.Background(), 1); err == nil {
		t.Fatalf("expected relay not configured error")
	}
}
