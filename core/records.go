package core

import "time"

// AccountState is the persisted per-user runtime flag set.
type AccountState struct {
	User      UserID
	Suspended bool
	Reason    string
	UpdatedAt time.Time
}

// SubmissionRecord is the audit row written after each proposal submission.
type SubmissionRecord struct {
	ID         string
	Caller     UserID
	Governance CanisterID
	Title      string
	Status     ProposalStatus
	Message    string
	CreatedAt  time.Time
}
