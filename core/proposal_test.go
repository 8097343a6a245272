package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type proposalFixture struct {
	legacy        *stubLegacyLedger
	tokenStandard *stubTokenStandardLedger
	bot           *stubProposalsBot
	queue         *memoryRetryQueue
	service       *Service
}

func newProposalFixture(t *testing.T, opts ...Option) *proposalFixture {
	t.Helper()
	fixture := &proposalFixture{
		legacy:        &stubLegacyLedger{blockIndex: 1},
		tokenStandard: &stubTokenStandardLedger{blockIndex: 2},
		bot:           &stubProposalsBot{response: DownstreamResponse{Status: DownstreamSuccess}},
		queue:         &memoryRetryQueue{},
	}
	base := []Option{
		WithLegacyLedger(fixture.legacy),
		WithTokenStandardLedger(fixture.tokenStandard),
		WithProposalsBotClient(fixture.bot),
		WithRetryQueue(fixture.queue),
		WithClock(fixedClock(time.Unix(1_700_000_000, 0).UTC())),
	}
	svc, err := NewService(DefaultConfig(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	fixture.service = svc
	return fixture
}

func (f *proposalFixture) remoteCalls() int {
	return f.legacy.callCount() + f.tokenStandard.callCount() + f.bot.callCount() + len(f.queue.sent())
}

func testProposalRequest() SubmitProposalRequest {
	return SubmitProposalRequest{
		GovernanceCanisterID: testGovernance,
		Proposal: Proposal{
			Title:   "Upgrade",
			Summary: "Upgrade the wasm",
			URL:     "https://example.com/proposal",
			Action:  ProposalAction{Kind: "motion", Payload: []byte("text")},
		},
	}
}

func TestSubmitProposal_SuspendedMakesNoCalls(t *testing.T) {
	fixture := newProposalFixture(t)
	response := fixture.service.SubmitProposal(context.Background(), RuntimeSnapshot{Caller: testCaller, Suspended: true}, testProposalRequest())
	if response.Status != ProposalUserSuspended {
		t.Fatalf("expected user_suspended, got %s", response)
	}
	if fixture.remoteCalls() != 0 {
		t.Fatalf("expected zero remote calls, got %d", fixture.remoteCalls())
	}
}

func TestSubmitProposal_UnsupportedGovernanceMakesNoCalls(t *testing.T) {
	fixture := newProposalFixture(t)
	for _, target := range []CanisterID{testOther, testBot, {}} {
		req := testProposalRequest()
		req.GovernanceCanisterID = target
		response := fixture.service.SubmitProposal(context.Background(), RuntimeSnapshot{Caller: testCaller}, req)
		if response.Status != ProposalGovernanceCanisterNotSupported {
			t.Fatalf("expected governance_canister_not_supported for %q, got %s", target.String(), response)
		}
	}
	if fixture.remoteCalls() != 0 {
		t.Fatalf("expected zero remote calls, got %d", fixture.remoteCalls())
	}
}

func TestSubmitProposal_SuccessChargesFixedFee(t *testing.T) {
	fixture := newProposalFixture(t)
	response := fixture.service.SubmitProposal(context.Background(), RuntimeSnapshot{Caller: testCaller}, testProposalRequest())
	if response.Status != ProposalSuccess || response.Message != "" {
		t.Fatalf("expected success, got %s", response)
	}
	if fixture.tokenStandard.callCount() != 1 || fixture.legacy.callCount() != 0 {
		t.Fatalf("expected one CHAT transfer")
	}
	call := fixture.tokenStandard.calls[0]
	if call.ledger != testLedger {
		t.Fatalf("expected SNS ledger, got %s", call.ledger)
	}
	if call.args.Amount != NewUnits(400_000_000) {
		t.Fatalf("expected 4 CHAT, got %s", call.args.Amount)
	}
	if call.args.Fee == nil || *call.args.Fee != CHAT.Fee() {
		t.Fatalf("expected CHAT fee")
	}
	if call.args.To.Owner != testBot {
		t.Fatalf("expected proposals bot recipient")
	}
	wantCreated := TimestampNanos(uint64(time.Unix(1_700_000_000, 0).UnixNano()))
	if call.args.CreatedAtTime == nil || *call.args.CreatedAtTime != wantCreated {
		t.Fatalf("expected created_at_time from clock")
	}
	if call.args.Memo != nil {
		t.Fatalf("expected memo absent")
	}
	if fixture.bot.callCount() != 1 {
		t.Fatalf("expected one downstream call")
	}
	botCall := fixture.bot.calls[0]
	if botCall.bot != testBot || botCall.args.GovernanceCanisterID != testGovernance {
		t.Fatalf("unexpected downstream call %+v", botCall)
	}
	if botCall.args.Proposal.Title != "Upgrade" {
		t.Fatalf("expected proposal payload forwarded")
	}
	if len(fixture.queue.sent()) != 0 {
		t.Fatalf("expected no retry entries")
	}
}

func TestSubmitProposal_TransferFailureSkipsDownstream(t *testing.T) {
	fixture := newProposalFixture(t)
	fixture.tokenStandard.err = &TokenStandardTransferError{Kind: TokenStandardInsufficientFunds, Balance: ptrUnits(NewUnits(5))}

	response := fixture.service.SubmitProposal(context.Background(), RuntimeSnapshot{Caller: testCaller}, testProposalRequest())
	if response.Status != ProposalTransferFailed {
		t.Fatalf("expected transfer_failed, got %s", response)
	}
	if response.Message != "InsufficientFunds { balance: 5 }" {
		t.Fatalf("expected adapter message verbatim, got %q", response.Message)
	}
	if fixture.tokenStandard.callCount() != 1 {
		t.Fatalf("expected the transfer to be attempted once, got %d", fixture.tokenStandard.callCount())
	}
	if fixture.bot.callCount() != 0 || len(fixture.queue.sent()) != 0 {
		t.Fatalf("expected no downstream call and no retry")
	}
}

func TestSubmitProposal_TypedResponsesNeverEnqueue(t *testing.T) {
	cases := []struct {
		downstream DownstreamResponse
		want       SubmitProposalResponse
	}{
		{DownstreamResponse{Status: DownstreamSuccess}, SubmitProposalResponse{Status: ProposalSuccess}},
		{DownstreamResponse{Status: DownstreamGovernanceCanisterNotSupported}, SubmitProposalResponse{Status: ProposalGovernanceCanisterNotSupported}},
		{DownstreamResponse{Status: DownstreamRetrying, Message: "busy"}, SubmitProposalResponse{Status: ProposalRetrying, Message: "busy"}},
		{DownstreamResponse{Status: DownstreamInternalError, Message: "boom"}, SubmitProposalResponse{Status: ProposalInternalError, Message: "boom"}},
	}
	for _, tc := range cases {
		fixture := newProposalFixture(t)
		fixture.bot.response = tc.downstream

		response := fixture.service.SubmitProposal(context.Background(), RuntimeSnapshot{Caller: testCaller}, testProposalRequest())
		if response != tc.want {
			t.Fatalf("downstream %+v: expected %s, got %s", tc.downstream, tc.want, response)
		}
		if len(fixture.queue.sent()) != 0 {
			t.Fatalf("downstream %+v: expected zero retry entries", tc.downstream)
		}
		if fixture.bot.callCount() != 1 {
			t.Fatalf("downstream %+v: expected exactly one downstream call", tc.downstream)
		}
	}
}

func TestSubmitProposal_UnknownDownstreamStatus(t *testing.T) {
	fixture := newProposalFixture(t)
	fixture.bot.response = DownstreamResponse{Status: "mystery"}
	response := fixture.service.SubmitProposal(context.Background(), RuntimeSnapshot{Caller: testCaller}, testProposalRequest())
	if response.Status != ProposalInternalError {
		t.Fatalf("expected internal_error, got %s", response)
	}
	if len(fixture.queue.sent()) != 0 {
		t.Fatalf("expected zero retry entries")
	}
}

func TestSubmitProposal_DeliveryFailureEnqueuesOnce(t *testing.T) {
	fixture := newProposalFixture(t)
	fixture.bot.err = errors.New("connection reset by peer")

	response := fixture.service.SubmitProposal(context.Background(), RuntimeSnapshot{Caller: testCaller}, testProposalRequest())
	if response.Status != ProposalRetrying {
		t.Fatalf("expected retrying, got %s", response)
	}
	if response.Message != "connection reset by peer" {
		t.Fatalf("expected delivery error as message, got %q", response.Message)
	}
	sent := fixture.queue.sent()
	if len(sent) != 1 {
		t.Fatalf("expected exactly one retry entry, got %d", len(sent))
	}
	if sent[0].Destination != testBot || sent[0].Operation != RetryOperationSubmitProposal {
		t.Fatalf("unexpected retry message %+v", sent[0])
	}
	args, err := DecodeSubmitProposalArgs(sent[0].Payload)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if args.GovernanceCanisterID != testGovernance || args.Proposal.Summary != "Upgrade the wasm" || string(args.Proposal.Action.Payload) != "text" {
		t.Fatalf("expected original payload, got %+v", args)
	}
}

func TestSubmitProposal_IdenticalSubmissionsGetDistinctIDs(t *testing.T) {
	fixture := newProposalFixture(t)
	fixture.bot.err = errors.New("timeout")

	for _, caller := range []UserID{testCaller, testOther} {
		response := fixture.service.SubmitProposal(context.Background(), RuntimeSnapshot{Caller: caller}, testProposalRequest())
		if response.Status != ProposalRetrying {
			t.Fatalf("expected retrying for %s, got %s", caller, response)
		}
	}

	sent := fixture.queue.sent()
	if len(sent) != 2 {
		t.Fatalf("expected one retry entry per submission, got %d", len(sent))
	}
	if sent[0].ID == "" || sent[1].ID == "" || sent[0].ID == sent[1].ID {
		t.Fatalf("expected distinct submission ids, got %q and %q", sent[0].ID, sent[1].ID)
	}
	if string(sent[0].Payload) != string(sent[1].Payload) {
		t.Fatalf("expected identical payloads for identical requests")
	}
	for i, call := range fixture.bot.calls {
		if call.key != sent[i].ID {
			t.Fatalf("expected direct call %d to carry submission id %q, got %q", i, sent[i].ID, call.key)
		}
	}
}

func TestSubmitProposal_EnqueueFailureIsInternalError(t *testing.T) {
	fixture := newProposalFixture(t)
	fixture.bot.err = errors.New("timeout")
	fixture.queue.err = errors.New("queue down")

	response := fixture.service.SubmitProposal(context.Background(), RuntimeSnapshot{Caller: testCaller}, testProposalRequest())
	if response.Status != ProposalInternalError {
		t.Fatalf("expected internal_error, got %s", response)
	}
	if !strings.Contains(response.Message, "timeout") || !strings.Contains(response.Message, "queue down") {
		t.Fatalf("expected both errors in message, got %q", response.Message)
	}
}

func TestSubmitProposal_MissingQueueIsInternalError(t *testing.T) {
	bot := &stubProposalsBot{err: errors.New("unreachable")}
	svc, err := NewService(DefaultConfig(),
		WithTokenStandardLedger(&stubTokenStandardLedger{}),
		WithProposalsBotClient(bot),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	response := svc.SubmitProposal(context.Background(), RuntimeSnapshot{Caller: testCaller}, testProposalRequest())
	if response.Status != ProposalInternalError || !strings.Contains(response.Message, ErrRetryQueueUnavailable.Error()) {
		t.Fatalf("expected retry queue unavailable, got %s", response)
	}
}

func TestSubmitProposal_IgnoresCallerCancellation(t *testing.T) {
	fixture := newProposalFixture(t)
	fixture.bot.err = errors.New("deadline exceeded")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	queue := &cancelAwareQueue{}
	svc, err := NewService(DefaultConfig(),
		WithTokenStandardLedger(fixture.tokenStandard),
		WithProposalsBotClient(fixture.bot),
		WithRetryQueue(queue),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	response := svc.SubmitProposal(ctx, RuntimeSnapshot{Caller: testCaller}, testProposalRequest())
	if response.Status != ProposalRetrying {
		t.Fatalf("expected retrying, got %s", response)
	}
	if queue.sawCanceled {
		t.Fatalf("expected enqueue to run on a detached context")
	}
}

type cancelAwareQueue struct {
	sawCanceled bool
}

func (q *cancelAwareQueue) Send(ctx context.Context, _ RetryMessage) error {
	if ctx.Err() != nil {
		q.sawCanceled = true
		return ctx.Err()
	}
	return nil
}

func TestSubmitProposal_SnapshotOverridesTargets(t *testing.T) {
	fixture := newProposalFixture(t)
	req := testProposalRequest()
	req.GovernanceCanisterID = testOther
	snapshot := RuntimeSnapshot{Caller: testCaller, SupportedGovernance: testOther, ProposalsBot: testCaller}

	response := fixture.service.SubmitProposal(context.Background(), snapshot, req)
	if response.Status != ProposalSuccess {
		t.Fatalf("expected success, got %s", response)
	}
	if fixture.bot.calls[0].bot != testCaller {
		t.Fatalf("expected downstream call to snapshot bot")
	}
	if fixture.tokenStandard.calls[0].args.To.Owner != testCaller {
		t.Fatalf("expected fee paid to snapshot bot")
	}
}

func TestResolveSnapshot(t *testing.T) {
	source := stubSnapshotSource{suspended: map[string]bool{testCaller.String(): true}}
	svc, err := NewService(DefaultConfig(), WithSnapshotSource(source))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	snapshot, err := svc.ResolveSnapshot(context.Background(), testCaller)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !snapshot.Suspended || snapshot.SupportedGovernance != testGovernance || snapshot.ProposalsBot != testBot {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}

	other, err := svc.ResolveSnapshot(context.Background(), testOther)
	if err != nil || other.Suspended {
		t.Fatalf("expected active caller, got %+v, %v", other, err)
	}

	failing, _ := NewService(DefaultConfig(), WithSnapshotSource(stubSnapshotSource{err: errors.New("db down")}))
	if _, err := failing.ResolveSnapshot(context.Background(), testCaller); err == nil {
		t.Fatalf("expected snapshot source error")
	}
}

func TestSubmitProposalResponse_Validate(t *testing.T) {
	for _, status := range []ProposalStatus{
		ProposalSuccess, ProposalUserSuspended, ProposalGovernanceCanisterNotSupported,
		ProposalTransferFailed, ProposalRetrying, ProposalInternalError,
	} {
		if err := (SubmitProposalResponse{Status: status}).Validate(); err != nil {
			t.Fatalf("%s: %v", status, err)
		}
	}
	if err := (SubmitProposalResponse{Status: "unknown"}).Validate(); err == nil {
		t.Fatalf("expected unknown status to be rejected")
	}
}
