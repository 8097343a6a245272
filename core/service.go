package core

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

type Service struct {
	config            Config
	proposals         ProposalSettings
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	persistenceClient any
	repositoryFactory any
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	dispatcher        *TransferDispatcher
	proposalsBot      ProposalsBotClient
	retryQueue        RetryQueue
	retryStore        RetryStore
	retryRelay        *RetryRelay
	snapshotSource    SnapshotSource
	clock             func() time.Time
}

type ServiceDependencies struct {
	Logger              Logger
	LoggerProvider      LoggerProvider
	MetricsRecorder     MetricsRecorder
	ErrorFactory        ErrorFactory
	ErrorMapper         ErrorMapper
	PersistenceClient   any
	RepositoryFactory   any
	ConfigProvider      ConfigProvider
	OptionsResolver     OptionsResolver
	LegacyLedger        LegacyLedger
	TokenStandardLedger TokenStandardLedger
	ProposalsBot        ProposalsBotClient
	RetryQueue          RetryQueue
	RetryStore          RetryStore
	SnapshotSource      SnapshotSource
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("ledgerflow", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("ledgerflow"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.clock == nil {
		builder.clock = func() time.Time { return time.Now().UTC() }
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	proposals, err := finalConfig.Proposals.Resolve()
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if (builder.retryStore == nil || builder.snapshotSource == nil) && builder.repositoryFactory != nil {
		if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			stores, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			applyStoreProvider(&builder, stores)
		} else if stores, ok := builder.repositoryFactory.(StoreProvider); ok {
			applyStoreProvider(&builder, stores)
		}
	}
	if builder.retryQueue == nil && builder.retryStore != nil {
		builder.retryQueue = builder.retryStore
	}

	var relay *RetryRelay
	if builder.retryStore != nil {
		relay, err = NewRetryRelay(builder.retryStore, RetryRelayConfig{
			BatchSize:   finalConfig.Retry.BatchSize,
			MaxAttempts: finalConfig.Retry.MaxAttempts,
		})
		if err != nil {
			return nil, mapBuildError(builder.errorMapper, err)
		}
		if builder.proposalsBot != nil {
			relay.Register(proposals.RetryOperation, ProposalRetryDeliverer{Client: builder.proposalsBot})
		}
	}

	return &Service{
		config:            finalConfig,
		proposals:         proposals,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		dispatcher:        NewTransferDispatcher(builder.legacyLedger, builder.tokenStandardLedger),
		proposalsBot:      builder.proposalsBot,
		retryQueue:        builder.retryQueue,
		retryStore:        builder.retryStore,
		retryRelay:        relay,
		snapshotSource:    builder.snapshotSource,
		clock:             builder.clock,
	}, nil
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return NewService(cfg, opts...)
}

func applyStoreProvider(builder *serviceBuilder, stores StoreProvider) {
	if builder == nil || stores == nil {
		return
	}
	if builder.retryStore == nil {
		builder.retryStore = stores.RetryStore()
	}
	if builder.snapshotSource == nil {
		builder.snapshotSource = stores.SnapshotSource()
	}
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) ProposalSettings() ProposalSettings {
	if s == nil {
		return ProposalSettings{}
	}
	return s.proposals
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	deps := ServiceDependencies{
		Logger:            s.logger,
		LoggerProvider:    s.loggerProvider,
		MetricsRecorder:   s.metricsRecorder,
		ErrorFactory:      s.errorFactory,
		ErrorMapper:       s.errorMapper,
		PersistenceClient: s.persistenceClient,
		RepositoryFactory: s.repositoryFactory,
		ConfigProvider:    s.configProvider,
		OptionsResolver:   s.optionsResolver,
		ProposalsBot:      s.proposalsBot,
		RetryQueue:        s.retryQueue,
		RetryStore:        s.retryStore,
		SnapshotSource:    s.snapshotSource,
	}
	if s.dispatcher != nil {
		deps.LegacyLedger = s.dispatcher.legacy
		deps.TokenStandardLedger = s.dispatcher.tokenStandard
	}
	return deps
}

// ProcessTransaction submits a pending transfer exactly once. A non-nil error
// is always a *FailedTransaction.
func (s *Service) ProcessTransaction(
	ctx context.Context,
	pending PendingTransaction,
	sender Principal,
) (completed CompletedTransaction, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"sender": principalField(sender),
	}
	if pending != nil {
		fields["token"] = string(pending.Cryptocurrency())
		fields["protocol"] = string(pending.LedgerProtocol())
	}
	defer func() {
		if err == nil {
			fields["block_index"] = completed.BlockIndex
			if completed.TransactionHash != nil {
				fields["transaction_hash"] = completed.TransactionHash.String()
			}
		}
		s.observeOperation(ctx, startedAt, "process_transaction", err, fields)
	}()

	if s == nil {
		return CompletedTransaction{}, &FailedTransaction{ErrorMessage: "core: service is not configured"}
	}
	return s.dispatcher.Submit(ctx, pending, sender)
}

// DispatchRetries drains one batch of the durable retry queue.
func (s *Service) DispatchRetries(ctx context.Context, batchSize int) (stats DispatchStats, err error) {
	startedAt := time.Now().UTC()
	defer func() {
		s.observeOperation(ctx, startedAt, "dispatch_retries", err, map[string]any{
			"claimed":   stats.Claimed,
			"delivered": stats.Delivered,
			"retried":   stats.Retried,
			"failed":    stats.Failed,
			"requeued":  stats.Requeued,
			"unsettled": stats.Unsettled,
		})
	}()

	if s == nil || s.retryRelay == nil {
		return DispatchStats{}, fmt.Errorf("core: retry relay is not configured")
	}
	return s.retryRelay.DispatchPending(ctx, batchSize)
}

func (s *Service) nowNanos() TimestampNanos {
	now := time.Now().UTC()
	if s != nil && s.clock != nil {
		now = s.clock()
	}
	return TimestampNanos(uint64(now.UnixNano()))
}
