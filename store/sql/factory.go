package sqlstore

import (
	"fmt"

	"github.com/goliatone/go-ledgerflow/core"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"
)

type FactoryOption func(*RepositoryFactory)

// WithSnapshotCache serves runtime snapshots through the given cache.
func WithSnapshotCache(cacheService repositorycache.CacheService) FactoryOption {
	return func(f *RepositoryFactory) {
		f.snapshotCache = cacheService
	}
}

// WithRetryQueueOptions configures the retry queue store the factory builds.
func WithRetryQueueOptions(opts ...RetryQueueStoreOption) FactoryOption {
	return func(f *RepositoryFactory) {
		f.retryQueueOpts = append(f.retryQueueOpts, opts...)
	}
}

type RepositoryFactory struct {
	db             *bun.DB
	snapshotCache  repositorycache.CacheService
	retryQueueOpts []RetryQueueStoreOption

	retryQueueStore   *RetryQueueStore
	accountStateStore core.AccountStateStore
	submissionStore   *SubmissionStore
}

func NewRepositoryFactory(opts ...FactoryOption) *RepositoryFactory {
	factory := &RepositoryFactory{}
	for _, opt := range opts {
		if opt != nil {
			opt(factory)
		}
	}
	return factory
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) (core.StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.retryQueueStore != nil && f.accountStateStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RepositoryFactory) RetryStore() core.RetryStore {
	if f == nil || f.retryQueueStore == nil {
		return nil
	}
	return f.retryQueueStore
}

func (f *RepositoryFactory) SnapshotSource() core.SnapshotSource {
	if f == nil || f.accountStateStore == nil {
		return nil
	}
	return f.accountStateStore
}

func (f *RepositoryFactory) RetryQueueStore() *RetryQueueStore {
	if f == nil {
		return nil
	}
	return f.retryQueueStore
}

func (f *RepositoryFactory) AccountStateStore() core.AccountStateStore {
	if f == nil {
		return nil
	}
	return f.accountStateStore
}

func (f *RepositoryFactory) SubmissionStore() *SubmissionStore {
	if f == nil {
		return nil
	}
	return f.submissionStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) initStores() error {
	retryQueueStore, err := NewRetryQueueStore(f.db, f.retryQueueOpts...)
	if err != nil {
		return err
	}
	accountStateStore, err := NewAccountStateStore(f.db)
	if err != nil {
		return err
	}
	submissionStore, err := NewSubmissionStore(f.db)
	if err != nil {
		return err
	}

	f.retryQueueStore = retryQueueStore
	f.submissionStore = submissionStore
	f.accountStateStore = accountStateStore
	if f.snapshotCache != nil {
		cached, err := NewCachedAccountStateStore(accountStateStore, f.snapshotCache)
		if err != nil {
			return err
		}
		f.accountStateStore = cached
	}
	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
