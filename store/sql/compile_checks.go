package sqlstore

import "github.com/goliatone/go-ledgerflow/core"

var (
	_ core.RetryQueue             = (*RetryQueueStore)(nil)
	_ core.SnapshotSource         = (*AccountStateStore)(nil)
	_ core.SnapshotSource         = (*CachedAccountStateStore)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
)
