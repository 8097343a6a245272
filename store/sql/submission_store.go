package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-ledgerflow/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

const defaultSubmissionListLimit = 50

type SubmissionStore struct {
	db   *bun.DB
	repo repository.Repository[*submissionRecord]
	now  func() time.Time
}

func NewSubmissionStore(db *bun.DB) (*SubmissionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*submissionRecord](db, submissionHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid submission repository wiring: %w", err)
		}
	}
	return &SubmissionStore{db: db, repo: repo, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *SubmissionStore) RecordSubmission(ctx context.Context, record core.SubmissionRecord) (core.SubmissionRecord, error) {
	if s == nil || s.repo == nil {
		return core.SubmissionRecord{}, fmt.Errorf("sqlstore: submission store is not configured")
	}
	if record.Caller.IsZero() {
		return core.SubmissionRecord{}, fmt.Errorf("sqlstore: submission caller is required")
	}
	if err := (core.SubmitProposalResponse{Status: record.Status}).Validate(); err != nil {
		return core.SubmissionRecord{}, err
	}
	if strings.TrimSpace(record.ID) == "" {
		record.ID = newOrderedID()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now()
	}
	governance := ""
	if !record.Governance.IsZero() {
		governance = record.Governance.String()
	}
	_, err := s.repo.Create(ctx, &submissionRecord{
		ID:           record.ID,
		CallerID:     record.Caller.String(),
		GovernanceID: governance,
		Title:        strings.TrimSpace(record.Title),
		Status:       string(record.Status),
		Message:      record.Message,
		CreatedAt:    record.CreatedAt.UTC(),
	})
	if err != nil {
		return core.SubmissionRecord{}, err
	}
	return record, nil
}

// ListSubmissions returns the caller's submissions, newest first.
func (s *SubmissionStore) ListSubmissions(ctx context.Context, caller core.UserID, limit int) ([]core.SubmissionRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: submission store is not configured")
	}
	if caller.IsZero() {
		return nil, fmt.Errorf("sqlstore: submission caller is required")
	}
	if limit <= 0 {
		limit = defaultSubmissionListLimit
	}
	var records []submissionRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.caller_id = ?", caller.String()).
		OrderExpr("?TableAlias.created_at DESC, ?TableAlias.id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]core.SubmissionRecord, 0, len(records))
	for _, record := range records {
		item := core.SubmissionRecord{
			ID:        record.ID,
			Caller:    caller,
			Title:     record.Title,
			Status:    core.ProposalStatus(record.Status),
			Message:   record.Message,
			CreatedAt: record.CreatedAt,
		}
		if strings.TrimSpace(record.GovernanceID) != "" {
			governance, err := core.ParsePrincipal(record.GovernanceID)
			if err != nil {
				return nil, fmt.Errorf("sqlstore: submission %s has invalid governance id: %w", record.ID, err)
			}
			item.Governance = governance
		}
		out = append(out, item)
	}
	return out, nil
}

var _ core.SubmissionStore = (*SubmissionStore)(nil)
