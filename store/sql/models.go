package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type retryQueueRecord struct {
	bun.BaseModel `bun:"table:ledgerflow_retry_queue,alias:lrq"`

	ID          string    `bun:"id,pk"`
	Destination string    `bun:"destination,notnull"`
	Operation   string    `bun:"operation,notnull"`
	Payload     []byte    `bun:"payload,notnull"`
	Status      string    `bun:"status,notnull"`
	Attempts    int       `bun:"attempts,notnull"`
	LastError   string    `bun:"last_error,notnull"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type accountStateRecord struct {
	bun.BaseModel `bun:"table:ledgerflow_account_state,alias:las"`

	UserID    string    `bun:"user_id,pk"`
	Suspended bool      `bun:"suspended,notnull"`
	Reason    string    `bun:"reason,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type submissionRecord struct {
	bun.BaseModel `bun:"table:ledgerflow_proposal_submissions,alias:lps"`

	ID           string    `bun:"id,pk"`
	CallerID     string    `bun:"caller_id,notnull"`
	GovernanceID string    `bun:"governance_id,notnull"`
	Title        string    `bun:"title,notnull"`
	Status       string    `bun:"status,notnull"`
	Message      string    `bun:"message,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
