// Package ledgerflow is the entry point for the cross-ledger transaction
// engine: transfer dispatch, proposal submission and the durable retry relay.
// It re-exports the core service surface and a command/query facade.
package ledgerflow

import "github.com/goliatone/go-ledgerflow/core"

type Config = core.Config

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies

type LegacyLedger = core.LegacyLedger
type TokenStandardLedger = core.TokenStandardLedger
type ProposalsBotClient = core.ProposalsBotClient
type RetryQueue = core.RetryQueue
type RetryStore = core.RetryStore
type SnapshotSource = core.SnapshotSource

type SubmitProposalRequest = core.SubmitProposalRequest
type SubmitProposalResponse = core.SubmitProposalResponse
type PendingTransaction = core.PendingTransaction
type CompletedTransaction = core.CompletedTransaction
type FailedTransaction = core.FailedTransaction

var (
	WithLogger              = core.WithLogger
	WithLoggerProvider      = core.WithLoggerProvider
	WithMetricsRecorder     = core.WithMetricsRecorder
	WithErrorFactory        = core.WithErrorFactory
	WithErrorMapper         = core.WithErrorMapper
	WithPersistenceClient   = core.WithPersistenceClient
	WithRepositoryFactory   = core.WithRepositoryFactory
	WithConfigProvider      = core.WithConfigProvider
	WithOptionsResolver     = core.WithOptionsResolver
	WithLegacyLedger        = core.WithLegacyLedger
	WithTokenStandardLedger = core.WithTokenStandardLedger
	WithProposalsBotClient  = core.WithProposalsBotClient
	WithRetryQueue          = core.WithRetryQueue
	WithRetryStore          = core.WithRetryStore
	WithSnapshotSource      = core.WithSnapshotSource
	WithClock               = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
