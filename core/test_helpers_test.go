package core

import (
	"context"
	"fmt"
	"sync"
	"time"
)

var (
	testGovernance = MustParsePrincipal(DefaultSupportedGovernanceID)
	testBot        = MustParsePrincipal(DefaultProposalsBotID)
	testLedger     = MustParsePrincipal(DefaultProposalLedgerID)
	testCaller     = MustParsePrincipal("rrkah-fqaaa-aaaaa-aaaaq-cai")
	testOther      = MustParsePrincipal("ryjl3-tyaaa-aaaaa-aaaba-cai")
)

type stubLegacyLedger struct {
	mu         sync.Mutex
	calls      []LegacyTransferArgs
	blockIndex uint64
	err        error
}

func (l *stubLegacyLedger) Transfer(_ context.Context, _ CanisterID, args LegacyTransferArgs) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, args)
	if l.err != nil {
		return 0, l.err
	}
	return l.blockIndex, nil
}

func (l *stubLegacyLedger) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

type tokenStandardCall struct {
	ledger CanisterID
	args   TokenStandardTransferArgs
}

type stubTokenStandardLedger struct {
	mu         sync.Mutex
	calls      []tokenStandardCall
	blockIndex uint64
	err        error
}

func (l *stubTokenStandardLedger) Transfer(_ context.Context, ledger CanisterID, args TokenStandardTransferArgs) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, tokenStandardCall{ledger: ledger, args: args})
	if l.err != nil {
		return 0, l.err
	}
	return l.blockIndex, nil
}

func (l *stubTokenStandardLedger) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

type botCall struct {
	bot  CanisterID
	args SubmitProposalArgs
	key  string
}

type stubProposalsBot struct {
	mu       sync.Mutex
	calls    []botCall
	response DownstreamResponse
	err      error
}

func (b *stubProposalsBot) SubmitProposal(ctx context.Context, bot CanisterID, args SubmitProposalArgs) (DownstreamResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, botCall{bot: bot, args: args, key: IdempotencyKeyFromContext(ctx)})
	if b.err != nil {
		return DownstreamResponse{}, b.err
	}
	return b.response, nil
}

func (b *stubProposalsBot) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

type memoryRetryQueue struct {
	mu       sync.Mutex
	messages []RetryMessage
	err      error
}

func (q *memoryRetryQueue) Send(_ context.Context, message RetryMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.messages = append(q.messages, message)
	return nil
}

func (q *memoryRetryQueue) sent() []RetryMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]RetryMessage(nil), q.messages...)
}

type releasedEntry struct {
	id    string
	cause error
	park  bool
}

type memoryRetryStore struct {
	mu         sync.Mutex
	nextID     int
	pending    []RetryEntry
	acked      []string
	released   []releasedEntry
	unclaimed  []string
	claimErr   error
	ackErr     error
	releaseErr error
}

func (s *memoryRetryStore) Send(_ context.Context, message RetryMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := message.ID
	if id == "" {
		id = fmt.Sprintf("retry_%d", s.nextID)
	}
	now := time.Now().UTC()
	s.pending = append(s.pending, RetryEntry{
		ID:          id,
		Destination: message.Destination,
		Operation:   message.Operation,
		Payload:     append([]byte(nil), message.Payload...),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	return nil
}

func (s *memoryRetryStore) ClaimBatch(_ context.Context, limit int) ([]RetryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimErr != nil {
		return nil, s.claimErr
	}
	if limit > len(s.pending) {
		limit = len(s.pending)
	}
	claimed := append([]RetryEntry(nil), s.pending[:limit]...)
	s.pending = append([]RetryEntry(nil), s.pending[limit:]...)
	return claimed, nil
}

func (s *memoryRetryStore) Ack(ctx context.Context, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.ackErr != nil {
		return s.ackErr
	}
	s.acked = append(s.acked, entryID)
	return nil
}

func (s *memoryRetryStore) Release(ctx context.Context, entryID string, cause error, park bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.releaseErr != nil {
		return s.releaseErr
	}
	s.released = append(s.released, releasedEntry{id: entryID, cause: cause, park: park})
	return nil
}

func (s *memoryRetryStore) Unclaim(ctx context.Context, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	s.unclaimed = append(s.unclaimed, entryID)
	return nil
}

type stubSnapshotSource struct {
	suspended map[string]bool
	err       error
}

func (s stubSnapshotSource) Snapshot(_ context.Context, caller UserID) (RuntimeSnapshot, error) {
	if s.err != nil {
		return RuntimeSnapshot{}, s.err
	}
	return RuntimeSnapshot{Caller: caller, Suspended: s.suspended[caller.String()]}, nil
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.values))
	for key, value := range l.values {
		out[key] = value
	}
	return out, nil
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
