package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ErrorFactory func(message string, category ...goerrors.Category) *goerrors.Error

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type serviceBuilder struct {
	runtimeConfig       Config
	logger              Logger
	loggerProvider      LoggerProvider
	metricsRecorder     MetricsRecorder
	errorFactory        ErrorFactory
	errorMapper         ErrorMapper
	persistenceClient   any
	repositoryFactory   any
	configProvider      ConfigProvider
	optionsResolver     OptionsResolver
	legacyLedger        LegacyLedger
	tokenStandardLedger TokenStandardLedger
	proposalsBot        ProposalsBotClient
	retryQueue          RetryQueue
	retryStore          RetryStore
	snapshotSource      SnapshotSource
	clock               func() time.Time
}

type Option func(*serviceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorFactory(factory ErrorFactory) Option {
	return func(b *serviceBuilder) {
		b.errorFactory = factory
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *serviceBuilder) {
		b.errorMapper = mapper
	}
}

func WithPersistenceClient(client any) Option {
	return func(b *serviceBuilder) {
		b.persistenceClient = client
	}
}

// WithRepositoryFactory accepts a RepositoryStoreFactory or a StoreProvider.
func WithRepositoryFactory(factory any) Option {
	return func(b *serviceBuilder) {
		b.repositoryFactory = factory
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *serviceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *serviceBuilder) {
		b.optionsResolver = resolver
	}
}

func WithLegacyLedger(ledger LegacyLedger) Option {
	return func(b *serviceBuilder) {
		b.legacyLedger = ledger
	}
}

func WithTokenStandardLedger(ledger TokenStandardLedger) Option {
	return func(b *serviceBuilder) {
		b.tokenStandardLedger = ledger
	}
}

func WithProposalsBotClient(client ProposalsBotClient) Option {
	return func(b *serviceBuilder) {
		b.proposalsBot = client
	}
}

// WithRetryQueue overrides where failed downstream calls are enqueued. When
// unset the retry store is used.
func WithRetryQueue(queue RetryQueue) Option {
	return func(b *serviceBuilder) {
		b.retryQueue = queue
	}
}

func WithRetryStore(store RetryStore) Option {
	return func(b *serviceBuilder) {
		b.retryStore = store
	}
}

func WithSnapshotSource(source SnapshotSource) Option {
	return func(b *serviceBuilder) {
		b.snapshotSource = source
	}
}

func WithClock(clock func() time.Time) Option {
	return func(b *serviceBuilder) {
		b.clock = clock
	}
}

func defaultServiceBuilder(runtime Config) serviceBuilder {
	loggerProvider, logger := glog.Resolve("ledgerflow", nil, nil)
	return serviceBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		errorFactory:    goerrors.New,
		errorMapper:     defaultErrorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return serviceErrorMapper(err)
}

// MapError converts err into the service error envelope.
func MapError(err error) *goerrors.Error {
	return defaultErrorMapper(err)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// NewStaticRawConfigLoader serves a fixed raw map, e.g. one decoded from a
// config file.
func NewStaticRawConfigLoader(values map[string]any) RawConfigLoader {
	return staticRawConfigLoader{Values: values}
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

// configToLayerMap keeps only set values unless includeZero is true, so a
// higher layer never blanks out a lower one.
func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}

	proposals := map[string]any{}
	setString := func(key, value string) {
		if includeZero || strings.TrimSpace(value) != "" {
			proposals[key] = value
		}
	}
	setString("supported_governance_id", cfg.Proposals.SupportedGovernanceID)
	setString("proposals_bot_id", cfg.Proposals.ProposalsBotID)
	setString("ledger_id", cfg.Proposals.LedgerID)
	setString("fee_token", cfg.Proposals.FeeToken)
	setString("fee_units", cfg.Proposals.FeeUnits)
	setString("retry_operation", cfg.Proposals.RetryOperation)
	if len(proposals) > 0 {
		layer["proposals"] = proposals
	}

	retry := map[string]any{}
	if includeZero || cfg.Retry.BatchSize != 0 {
		retry["batch_size"] = cfg.Retry.BatchSize
	}
	if includeZero || cfg.Retry.MaxAttempts != 0 {
		retry["max_attempts"] = cfg.Retry.MaxAttempts
	}
	if len(retry) > 0 {
		layer["retry"] = retry
	}

	downstream := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Downstream.BaseURL) != "" {
		downstream["base_url"] = cfg.Downstream.BaseURL
	}
	if includeZero || cfg.Downstream.TimeoutMS != 0 {
		downstream["timeout_ms"] = cfg.Downstream.TimeoutMS
	}
	if includeZero || cfg.Downstream.BreakerFailures != 0 {
		downstream["breaker_failures"] = cfg.Downstream.BreakerFailures
	}
	if includeZero || cfg.Downstream.BreakerCooldownMS != 0 {
		downstream["breaker_cooldown_ms"] = cfg.Downstream.BreakerCooldownMS
	}
	if len(downstream) > 0 {
		layer["downstream"] = downstream
	}

	ledgers := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Ledgers.LegacyURL) != "" {
		ledgers["legacy_url"] = cfg.Ledgers.LegacyURL
	}
	if includeZero || strings.TrimSpace(cfg.Ledgers.TokenStandardURL) != "" {
		ledgers["token_standard_url"] = cfg.Ledgers.TokenStandardURL
	}
	if includeZero || cfg.Ledgers.TimeoutMS != 0 {
		ledgers["timeout_ms"] = cfg.Ledgers.TimeoutMS
	}
	if len(ledgers) > 0 {
		layer["ledgers"] = ledgers
	}
	return layer
}
