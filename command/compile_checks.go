package command

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-ledgerflow/core"
)

var (
	_ gocmd.Commander[SubmitProposalMessage]  = (*SubmitProposalCommand)(nil)
	_ gocmd.Commander[DispatchRetriesMessage] = (*DispatchRetriesCommand)(nil)
	_ gocmd.Commander[SetAccountStateMessage] = (*SetAccountStateCommand)(nil)

	_ ProposalWorkflow = (*core.Service)(nil)
)
