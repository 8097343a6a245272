package command

import (
	"context"
	"time"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-ledgerflow/core"
)

// ProposalWorkflow is the slice of core.Service the submit command drives.
type ProposalWorkflow interface {
	ResolveSnapshot(ctx context.Context, caller core.UserID) (core.RuntimeSnapshot, error)
	SubmitProposal(ctx context.Context, snapshot core.RuntimeSnapshot, req core.SubmitProposalRequest) core.SubmitProposalResponse
}

type SubmitProposalCommand struct {
	workflow    ProposalWorkflow
	submissions core.SubmissionStore
	now         func() time.Time
}

// NewSubmitProposalCommand builds the submit command. submissions is optional;
// when set every completed workflow is recorded.
func NewSubmitProposalCommand(workflow ProposalWorkflow, submissions core.SubmissionStore) *SubmitProposalCommand {
	return &SubmitProposalCommand{
		workflow:    workflow,
		submissions: submissions,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Execute stores the workflow response before recording it, so a failed
// audit write still leaves the caller-facing result in the collector.
func (c *SubmitProposalCommand) Execute(ctx context.Context, msg SubmitProposalMessage) error {
	if c == nil || c.workflow == nil {
		return commandDependencyError("command: proposal workflow is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	snapshot, err := c.workflow.ResolveSnapshot(ctx, msg.Caller)
	if err != nil {
		return commandWrapInternal(err, "command: resolve caller snapshot")
	}
	response := c.workflow.SubmitProposal(ctx, snapshot, msg.Request)
	storeResult(ctx, response)

	if c.submissions == nil {
		return nil
	}
	_, err = c.submissions.RecordSubmission(ctx, core.SubmissionRecord{
		Caller:     msg.Caller,
		Governance: msg.Request.GovernanceCanisterID,
		Title:      msg.Request.Proposal.Title,
		Status:     response.Status,
		Message:    response.Message,
		CreatedAt:  c.now(),
	})
	if err != nil {
		return commandWrapInternal(err, "command: record proposal submission")
	}
	return nil
}

type DispatchRetriesCommand struct {
	dispatcher core.RetryDispatcher
}

func NewDispatchRetriesCommand(dispatcher core.RetryDispatcher) *DispatchRetriesCommand {
	return &DispatchRetriesCommand{dispatcher: dispatcher}
}

func (c *DispatchRetriesCommand) Execute(ctx context.Context, msg DispatchRetriesMessage) error {
	if c == nil || c.dispatcher == nil {
		return commandDependencyError("command: retry dispatcher is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	stats, err := c.dispatcher.DispatchPending(ctx, msg.BatchSize)
	storeResult(ctx, stats)
	return err
}

type SetAccountStateCommand struct {
	store core.AccountStateStore
}

func NewSetAccountStateCommand(store core.AccountStateStore) *SetAccountStateCommand {
	return &SetAccountStateCommand{store: store}
}

func (c *SetAccountStateCommand) Execute(ctx context.Context, msg SetAccountStateMessage) error {
	if c == nil || c.store == nil {
		return commandDependencyError("command: account state store is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	saved, err := c.store.SetAccountState(ctx, core.AccountState{
		User:      msg.User,
		Suspended: msg.Suspended,
		Reason:    msg.Reason,
	})
	if err != nil {
		return err
	}
	storeResult(ctx, saved)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
