package command

import (
	"strings"

	"github.com/goliatone/go-ledgerflow/core"
)

const (
	TypeSubmitProposal  = "ledgerflow.command.proposal.submit"
	TypeDispatchRetries = "ledgerflow.command.retry.dispatch"
	TypeSetAccountState = "ledgerflow.command.account_state.set"
)

type SubmitProposalMessage struct {
	Caller  core.UserID
	Request core.SubmitProposalRequest
}

func (SubmitProposalMessage) Type() string { return TypeSubmitProposal }

func (m SubmitProposalMessage) Validate() error {
	if m.Caller.IsZero() {
		return commandValidationError("caller", "caller is required")
	}
	if m.Request.GovernanceCanisterID.IsZero() {
		return commandValidationError("governance_canister_id", "governance canister id is required")
	}
	if strings.TrimSpace(m.Request.Proposal.Title) == "" {
		return commandValidationError("proposal.title", "proposal title is required")
	}
	return nil
}

type DispatchRetriesMessage struct {
	// BatchSize <= 0 uses the relay default.
	BatchSize int
}

func (DispatchRetriesMessage) Type() string { return TypeDispatchRetries }

func (m DispatchRetriesMessage) Validate() error {
	if m.BatchSize < 0 {
		return commandValidationError("batch_size", "batch size must not be negative")
	}
	return nil
}

type SetAccountStateMessage struct {
	User      core.UserID
	Suspended bool
	Reason    string
}

func (SetAccountStateMessage) Type() string { return TypeSetAccountState }

func (m SetAccountStateMessage) Validate() error {
	if m.User.IsZero() {
		return commandValidationError("user", "user id is required")
	}
	if m.Suspended && strings.TrimSpace(m.Reason) == "" {
		return commandValidationError("reason", "a suspension reason is required")
	}
	return nil
}
