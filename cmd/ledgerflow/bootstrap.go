package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	command "github.com/goliatone/go-command"
	"github.com/goliatone/go-ledgerflow"
	"github.com/goliatone/go-ledgerflow/adapters/gocommand"
	"github.com/goliatone/go-ledgerflow/adapters/gologger"
	"github.com/goliatone/go-ledgerflow/adapters/rabbitmq"
	"github.com/goliatone/go-ledgerflow/core"
	ledgermigrations "github.com/goliatone/go-ledgerflow/migrations"
	"github.com/goliatone/go-ledgerflow/providers/ledger"
	"github.com/goliatone/go-ledgerflow/providers/proposalsbot"
	sqlstore "github.com/goliatone/go-ledgerflow/store/sql"
	"github.com/goliatone/go-ledgerflow/transport"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type persistenceConfig struct {
	driver      string
	dsn         string
	debug       bool
	pingTimeout time.Duration
}

func (c persistenceConfig) GetDebug() bool {
	return c.debug
}

func (c persistenceConfig) GetDriver() string {
	return c.driver
}

func (c persistenceConfig) GetServer() string {
	return c.dsn
}

func (c persistenceConfig) GetPingTimeout() time.Duration {
	return c.pingTimeout
}

func (c persistenceConfig) GetOtelIdentifier() string {
	return "go-ledgerflow"
}

// openPersistence opens the database and registers the embedded migrations
// for its dialect. Migrations are not applied.
func openPersistence(ctx context.Context, cfg databaseConfig) (*persistence.Client, string, error) {
	dialect, err := ledgermigrations.DialectForDriver(cfg.Driver)
	if err != nil {
		return nil, "", err
	}
	pcfg := persistenceConfig{
		driver:      cfg.Driver,
		dsn:         cfg.DSN,
		debug:       cfg.Debug,
		pingTimeout: cfg.PingTimeout,
	}
	if pcfg.pingTimeout <= 0 {
		pcfg.pingTimeout = 5 * time.Second
	}

	var client *persistence.Client
	switch dialect {
	case ledgermigrations.DialectSQLite:
		pcfg.driver = "sqlite3"
		sqlDB, err := sql.Open(pcfg.driver, pcfg.dsn)
		if err != nil {
			return nil, "", fmt.Errorf("open sqlite db: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
		client, err = persistence.New(pcfg, sqlDB, sqlitedialect.New())
		if err != nil {
			_ = sqlDB.Close()
			return nil, "", fmt.Errorf("new persistence client: %w", err)
		}
	case ledgermigrations.DialectPostgres:
		pcfg.driver = "postgres"
		sqlDB, err := sql.Open(pcfg.driver, pcfg.dsn)
		if err != nil {
			return nil, "", fmt.Errorf("open postgres db: %w", err)
		}
		client, err = persistence.New(pcfg, sqlDB, pgdialect.New())
		if err != nil {
			_ = sqlDB.Close()
			return nil, "", fmt.Errorf("new persistence client: %w", err)
		}
	}

	_, err = ledgermigrations.Register(ctx, dialect, func(_ context.Context, _ string, fsys fs.FS) error {
		client.RegisterSQLMigrations(fsys)
		return nil
	})
	if err != nil {
		_ = client.Close()
		return nil, "", fmt.Errorf("register migrations: %w", err)
	}
	return client, dialect, nil
}

// runtime is the fully wired engine behind the stateful subcommands.
type runtime struct {
	config  core.Config
	file    fileConfig
	bridge  gologger.Bridge
	client  *persistence.Client
	factory *sqlstore.RepositoryFactory
	service *core.Service
	facade  *ledgerflow.Facade
	bot     *proposalsbot.Client
	subs    gocommand.Subscriptions

	amqpConn  *amqp.Connection
	amqpQueue *rabbitmq.RetryQueue
}

func newRuntime(ctx context.Context, opts *rootOptions) (*runtime, error) {
	file, err := opts.fileConfig()
	if err != nil {
		return nil, err
	}
	provider := file.configProvider()
	cfg, err := provider.Load(ctx, core.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	rt := &runtime{config: cfg, file: file}
	rt.bridge = gologger.NewBridge(cfg.ServiceName, opts.loggerProvider(), nil)

	rt.client, _, err = openPersistence(ctx, file.Database)
	if err != nil {
		return nil, err
	}
	if err := rt.client.Migrate(ctx); err != nil {
		rt.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	cacheConfig := repositorycache.DefaultConfig()
	if file.Database.CacheTTL > 0 {
		cacheConfig.TTL = file.Database.CacheTTL
	}
	cacheService, err := repositorycache.NewCacheService(cacheConfig)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("snapshot cache: %w", err)
	}
	rt.factory, err = sqlstore.NewRepositoryFactoryFromPersistence(rt.client,
		sqlstore.WithSnapshotCache(cacheService),
		sqlstore.WithRetryQueueOptions(sqlstore.WithRetryLease(file.Database.RetryLease)),
	)
	if err != nil {
		rt.Close()
		return nil, err
	}

	serviceOpts, err := rt.clientOptions(cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}
	if file.AMQP.enabled() {
		queue, err := rt.dialRetryQueue(file.AMQP)
		if err != nil {
			rt.Close()
			return nil, err
		}
		serviceOpts = append(serviceOpts, ledgerflow.WithRetryQueue(queue))
	}
	serviceOpts = append(serviceOpts,
		ledgerflow.WithConfigProvider(provider),
		ledgerflow.WithLoggerProvider(rt.bridge.Provider),
		ledgerflow.WithPersistenceClient(rt.client),
		ledgerflow.WithRepositoryFactory(rt.factory),
	)

	rt.service, err = ledgerflow.NewService(core.Config{}, serviceOpts...)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.facade, err = ledgerflow.NewFacade(rt.service)
	if err != nil {
		rt.Close()
		return nil, err
	}
	if err := rt.subscribe(); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

// clientOptions builds the ledger and proposals bot clients whose URLs are
// configured.
func (rt *runtime) clientOptions(cfg core.Config) ([]core.Option, error) {
	var opts []core.Option

	ledgerTimeout := time.Duration(cfg.Ledgers.TimeoutMS) * time.Millisecond
	ledgerAdapter := transport.NewRESTAdapter(&http.Client{Timeout: ledgerTimeout})
	if cfg.Ledgers.LegacyURL != "" {
		client, err := ledger.NewLegacyClient(ledgerAdapter, ledger.Config{BaseURL: cfg.Ledgers.LegacyURL, Timeout: ledgerTimeout})
		if err != nil {
			return nil, err
		}
		opts = append(opts, ledgerflow.WithLegacyLedger(client))
	}
	if cfg.Ledgers.TokenStandardURL != "" {
		client, err := ledger.NewTokenStandardClient(ledgerAdapter, ledger.Config{BaseURL: cfg.Ledgers.TokenStandardURL, Timeout: ledgerTimeout})
		if err != nil {
			return nil, err
		}
		opts = append(opts, ledgerflow.WithTokenStandardLedger(client))
	}

	if cfg.Downstream.BaseURL != "" {
		botConfig := proposalsbot.ConfigFrom(cfg.Downstream)
		bot, err := proposalsbot.NewClient(
			transport.NewRESTAdapter(&http.Client{Timeout: botConfig.Timeout}),
			botConfig,
			rt.bridge.Provider.GetLogger("proposalsbot"),
		)
		if err != nil {
			return nil, err
		}
		rt.bot = bot
		opts = append(opts, ledgerflow.WithProposalsBotClient(bot))
	}
	return opts, nil
}

func (rt *runtime) dialRetryQueue(cfg amqpConfig) (*rabbitmq.RetryQueue, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	rt.amqpConn = conn
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	queue, err := rabbitmq.NewRetryQueue(ch, rabbitmq.Config{
		Exchange:       cfg.Exchange,
		RoutingKey:     cfg.RoutingKey,
		ConfirmTimeout: cfg.ConfirmTimeout,
	}, rt.bridge.Provider.GetLogger("rabbitmq"))
	if err != nil {
		_ = ch.Close()
		return nil, err
	}
	rt.amqpQueue = queue
	return queue, nil
}

func (rt *runtime) subscribe() error {
	commands := rt.facade.Commands()
	queries := rt.facade.Queries()
	adapter := gocommand.NewRegistryAdapter(command.NewRegistry())
	subs, err := gocommand.RegisterHandlers(adapter, gocommand.Handlers{
		SubmitProposal:  commands.SubmitProposal,
		DispatchRetries: commands.DispatchRetries,
		SetAccountState: commands.SetAccountState,
		ListRetries:     queries.ListRetries,
		ListSubmissions: queries.ListSubmissions,
		FormatAmount:    queries.FormatAmount,
	})
	if err != nil {
		return err
	}
	rt.subs = subs
	return adapter.Initialize()
}

func (rt *runtime) Close() {
	if rt == nil {
		return
	}
	rt.subs.Unsubscribe()
	if rt.amqpQueue != nil {
		_ = rt.amqpQueue.Close()
	}
	if rt.amqpConn != nil {
		_ = rt.amqpConn.Close()
	}
	if rt.client != nil {
		_ = rt.client.Close()
	}
}
