package ledgerflow

import (
	"context"
	"fmt"
	"reflect"

	lfcommand "github.com/goliatone/go-ledgerflow/command"
	"github.com/goliatone/go-ledgerflow/core"
	lfquery "github.com/goliatone/go-ledgerflow/query"
)

// CommandQueryService is what the facade drives. *core.Service satisfies it.
type CommandQueryService interface {
	lfcommand.ProposalWorkflow
	DispatchRetries(ctx context.Context, batchSize int) (core.DispatchStats, error)
}

type Commands struct {
	SubmitProposal  *lfcommand.SubmitProposalCommand
	DispatchRetries *lfcommand.DispatchRetriesCommand
	SetAccountState *lfcommand.SetAccountStateCommand
}

type Queries struct {
	ListRetries     *lfquery.ListRetriesQuery
	ListSubmissions *lfquery.ListSubmissionsQuery
	FormatAmount    *lfquery.FormatAmountQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	submissions  core.SubmissionStore
	accountState core.AccountStateStore
	retryLister  core.RetryLister
}

func WithSubmissionStore(store core.SubmissionStore) FacadeOption {
	return func(options *facadeOptions) {
		options.submissions = store
	}
}

func WithAccountStateStore(store core.AccountStateStore) FacadeOption {
	return func(options *facadeOptions) {
		options.accountState = store
	}
}

func WithRetryLister(lister core.RetryLister) FacadeOption {
	return func(options *facadeOptions) {
		options.retryLister = lister
	}
}

// NewFacade wires commands and queries around service. Stores not passed as
// options are discovered from the service's repository factory.
func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("ledgerflow: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	resolveFacadeStores(service, &cfg)

	facade := &Facade{service: service}
	facade.commands = Commands{
		SubmitProposal:  lfcommand.NewSubmitProposalCommand(service, cfg.submissions),
		DispatchRetries: lfcommand.NewDispatchRetriesCommand(core.RetryDispatcherFunc(service.DispatchRetries)),
		SetAccountState: lfcommand.NewSetAccountStateCommand(cfg.accountState),
	}
	facade.queries = Queries{
		ListRetries:     lfquery.NewListRetriesQuery(cfg.retryLister),
		ListSubmissions: lfquery.NewListSubmissionsQuery(cfg.submissions),
		FormatAmount:    lfquery.NewFormatAmountQuery(),
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

func resolveFacadeStores(service CommandQueryService, cfg *facadeOptions) {
	provider, ok := service.(interface {
		Dependencies() core.ServiceDependencies
	})
	if !ok {
		return
	}
	deps := provider.Dependencies()

	if cfg.retryLister == nil {
		if lister, ok := deps.RetryStore.(core.RetryLister); ok {
			cfg.retryLister = lister
		}
	}
	if cfg.accountState == nil {
		if store, ok := deps.SnapshotSource.(core.AccountStateStore); ok {
			cfg.accountState = store
		}
	}
	if cfg.submissions == nil {
		if store, ok := factoryMethod(deps.RepositoryFactory, "SubmissionStore").(core.SubmissionStore); ok {
			cfg.submissions = store
		}
	}
	if cfg.retryLister == nil {
		if lister, ok := factoryMethod(deps.RepositoryFactory, "RetryQueueStore").(core.RetryLister); ok {
			cfg.retryLister = lister
		}
	}
	if cfg.accountState == nil {
		if store, ok := factoryMethod(deps.RepositoryFactory, "AccountStateStore").(core.AccountStateStore); ok {
			cfg.accountState = store
		}
	}
}

// factoryMethod calls a zero-argument accessor on the repository factory and
// returns its result, or nil when the accessor is missing or returns nil.
func factoryMethod(factory any, name string) any {
	if factory == nil {
		return nil
	}
	factoryValue := reflect.ValueOf(factory)
	if !factoryValue.IsValid() {
		return nil
	}
	if factoryValue.Kind() == reflect.Ptr && factoryValue.IsNil() {
		return nil
	}
	method := factoryValue.MethodByName(name)
	if !method.IsValid() || method.Type().NumIn() != 0 || method.Type().NumOut() != 1 {
		return nil
	}

	results, ok := safeReflectCall(method)
	if !ok || len(results) != 1 {
		return nil
	}
	candidate := results[0]
	if !candidate.IsValid() {
		return nil
	}
	switch candidate.Kind() {
	case reflect.Ptr, reflect.Interface:
		if candidate.IsNil() {
			return nil
		}
	}
	return candidate.Interface()
}

func safeReflectCall(method reflect.Value) (_ []reflect.Value, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return method.Call(nil), true
}

var _ CommandQueryService = (*core.Service)(nil)
