package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-ledgerflow/core"
)

var (
	_ gocmd.Querier[ListRetriesMessage, []core.RetryEntry]           = (*ListRetriesQuery)(nil)
	_ gocmd.Querier[ListSubmissionsMessage, []core.SubmissionRecord] = (*ListSubmissionsQuery)(nil)
	_ gocmd.Querier[FormatAmountMessage, string]                     = (*FormatAmountQuery)(nil)
)
