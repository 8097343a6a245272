package query

import (
	"context"

	"github.com/goliatone/go-ledgerflow/core"
)

type ListRetriesQuery struct {
	lister core.RetryLister
}

func NewListRetriesQuery(lister core.RetryLister) *ListRetriesQuery {
	return &ListRetriesQuery{lister: lister}
}

func (q *ListRetriesQuery) Query(ctx context.Context, msg ListRetriesMessage) ([]core.RetryEntry, error) {
	if q == nil || q.lister == nil {
		return nil, queryDependencyError("query: retry lister is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return q.lister.ListRetries(ctx, msg.Status, msg.Limit)
}

type ListSubmissionsQuery struct {
	store core.SubmissionStore
}

func NewListSubmissionsQuery(store core.SubmissionStore) *ListSubmissionsQuery {
	return &ListSubmissionsQuery{store: store}
}

func (q *ListSubmissionsQuery) Query(ctx context.Context, msg ListSubmissionsMessage) ([]core.SubmissionRecord, error) {
	if q == nil || q.store == nil {
		return nil, queryDependencyError("query: submission store is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return q.store.ListSubmissions(ctx, msg.Caller, msg.Limit)
}

type FormatAmountQuery struct{}

func NewFormatAmountQuery() *FormatAmountQuery {
	return &FormatAmountQuery{}
}

func (q *FormatAmountQuery) Query(_ context.Context, msg FormatAmountMessage) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}
	switch {
	case msg.Token == "":
		return core.FormatAmount(msg.Amount, msg.Decimals), nil
	case msg.WithSymbol:
		return core.FormatTokenAmount(msg.Amount, msg.Token), nil
	default:
		return core.FormatAmount(msg.Amount, msg.Token.Decimals()), nil
	}
}
