package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type TransportRequest struct {
	Method               string
	URL                  string
	Headers              map[string]string
	Query                map[string]string
	Body                 []byte
	Metadata             map[string]any
	Timeout              time.Duration
	MaxResponseBodyBytes int64
	Idempotency          string
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

// ProposalsBotClient performs the dependent downstream call. A non-nil error
// means no typed response was received and the call may be retried.
type ProposalsBotClient interface {
	SubmitProposal(ctx context.Context, bot CanisterID, args SubmitProposalArgs) (DownstreamResponse, error)
}

// RetryQueue hands a message to durable at-least-once delivery.
type RetryQueue interface {
	Send(ctx context.Context, message RetryMessage) error
}

type SnapshotSource interface {
	Snapshot(ctx context.Context, caller UserID) (RuntimeSnapshot, error)
}

type RetryStore interface {
	RetryQueue
	ClaimBatch(ctx context.Context, limit int) ([]RetryEntry, error)
	Ack(ctx context.Context, entryID string) error
	// Release records a failed attempt and returns the entry to the queue,
	// or parks it as failed.
	Release(ctx context.Context, entryID string, cause error, park bool) error
	// Unclaim returns a claimed entry that was never attempted to the queue
	// without counting an attempt.
	Unclaim(ctx context.Context, entryID string) error
}

type RetryDeliverer interface {
	Deliver(ctx context.Context, entry RetryEntry) error
}

type RetryDelivererFunc func(ctx context.Context, entry RetryEntry) error

func (f RetryDelivererFunc) Deliver(ctx context.Context, entry RetryEntry) error {
	return f(ctx, entry)
}

// DispatchStats counts persisted transitions only. Unsettled entries stay
// claimed until the store lease expires and a later pass reclaims them.
type DispatchStats struct {
	Claimed   int
	Delivered int
	Retried   int
	Failed    int
	Requeued  int
	Unsettled int
}

type RetryDispatcher interface {
	DispatchPending(ctx context.Context, batchSize int) (DispatchStats, error)
}

type RetryDispatcherFunc func(ctx context.Context, batchSize int) (DispatchStats, error)

func (f RetryDispatcherFunc) DispatchPending(ctx context.Context, batchSize int) (DispatchStats, error) {
	return f(ctx, batchSize)
}

// RetryLister exposes queued entries for inspection. An empty status lists
// every entry.
type RetryLister interface {
	ListRetries(ctx context.Context, status RetryStatus, limit int) ([]RetryEntry, error)
}

type AccountStateStore interface {
	SnapshotSource
	SetAccountState(ctx context.Context, state AccountState) (AccountState, error)
}

type SubmissionStore interface {
	RecordSubmission(ctx context.Context, record SubmissionRecord) (SubmissionRecord, error)
	ListSubmissions(ctx context.Context, caller UserID, limit int) ([]SubmissionRecord, error)
}

type StoreProvider interface {
	RetryStore() RetryStore
	SnapshotSource() SnapshotSource
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

type ProposalService interface {
	SubmitProposal(ctx context.Context, snapshot RuntimeSnapshot, req SubmitProposalRequest) SubmitProposalResponse
	ResolveSnapshot(ctx context.Context, caller UserID) (RuntimeSnapshot, error)
	ProcessTransaction(ctx context.Context, pending PendingTransaction, sender Principal) (CompletedTransaction, error)
	DispatchRetries(ctx context.Context, batchSize int) (DispatchStats, error)
}
