package sqlstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-ledgerflow/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// DefaultRetryLease bounds how long a claimed entry may stay in processing
// before another relay pass reclaims it.
const DefaultRetryLease = 5 * time.Minute

// RetryQueueStore persists queued downstream calls. Claimed entries move to
// processing so concurrent relays never deliver the same row twice. A claim
// is a lease: rows left in processing past the lease are claimable again.
type RetryQueueStore struct {
	db    *bun.DB
	repo  repository.Repository[*retryQueueRecord]
	now   func() time.Time
	lease time.Duration
}

type RetryQueueStoreOption func(*RetryQueueStore)

func WithRetryLease(lease time.Duration) RetryQueueStoreOption {
	return func(s *RetryQueueStore) {
		if lease > 0 {
			s.lease = lease
		}
	}
}

func WithRetryClock(now func() time.Time) RetryQueueStoreOption {
	return func(s *RetryQueueStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewRetryQueueStore(db *bun.DB, opts ...RetryQueueStoreOption) (*RetryQueueStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*retryQueueRecord](db, retryQueueHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid retry queue repository wiring: %w", err)
		}
	}
	store := &RetryQueueStore{
		db:    db,
		repo:  repo,
		now:   func() time.Time { return time.Now().UTC() },
		lease: DefaultRetryLease,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

func (s *RetryQueueStore) Send(ctx context.Context, message core.RetryMessage) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: retry queue store is not configured")
	}
	if message.Destination.IsZero() {
		return fmt.Errorf("sqlstore: retry destination is required")
	}
	operation := strings.TrimSpace(message.Operation)
	if operation == "" {
		return fmt.Errorf("sqlstore: retry operation is required")
	}
	if len(message.Payload) == 0 {
		return fmt.Errorf("sqlstore: retry payload is required")
	}

	id := strings.TrimSpace(message.ID)
	if id == "" {
		id = newOrderedID()
	}
	now := s.now()
	_, err := s.repo.Create(ctx, &retryQueueRecord{
		ID:          id,
		Destination: message.Destination.String(),
		Operation:   operation,
		Payload:     append([]byte(nil), message.Payload...),
		Status:      string(core.RetryStatusPending),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	return err
}

func (s *RetryQueueStore) ClaimBatch(ctx context.Context, limit int) ([]core.RetryEntry, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: retry queue store is not configured")
	}
	if limit <= 0 {
		limit = 1
	}
	now := s.now()
	staleBefore := now.Add(-s.lease)
	var records []retryQueueRecord
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		query := `
WITH claimed AS (
	SELECT id
	FROM ledgerflow_retry_queue
	WHERE status = ? OR (status = ? AND updated_at < ?)
	ORDER BY created_at ASC, id ASC
	LIMIT ?
)
UPDATE ledgerflow_retry_queue
SET status = ?, updated_at = ?
WHERE id IN (SELECT id FROM claimed)
  AND (status = ? OR (status = ? AND updated_at < ?))
RETURNING
	id,
	destination,
	operation,
	payload,
	status,
	attempts,
	last_error,
	created_at,
	updated_at
`
		return tx.NewRaw(
			query,
			string(core.RetryStatusPending),
			string(core.RetryStatusProcessing),
			staleBefore,
			limit,
			string(core.RetryStatusProcessing),
			now,
			string(core.RetryStatusPending),
			string(core.RetryStatusProcessing),
			staleBefore,
		).Scan(ctx, &records)
	})
	if err != nil {
		return nil, err
	}
	sortRetryRecords(records)
	return retryRecordsToEntries(records)
}

func (s *RetryQueueStore) Ack(ctx context.Context, entryID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: retry queue store is not configured")
	}
	entryID = strings.TrimSpace(entryID)
	if entryID == "" {
		return fmt.Errorf("sqlstore: retry entry id is required")
	}
	_, err := s.db.NewUpdate().
		Model((*retryQueueRecord)(nil)).
		Set("status = ?", string(core.RetryStatusDelivered)).
		Set("last_error = ?", "").
		Set("updated_at = ?", s.now()).
		Where("id = ?", entryID).
		Exec(ctx)
	return err
}

func (s *RetryQueueStore) Release(ctx context.Context, entryID string, cause error, park bool) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: retry queue store is not configured")
	}
	entryID = strings.TrimSpace(entryID)
	if entryID == "" {
		return fmt.Errorf("sqlstore: retry entry id is required")
	}
	status := core.RetryStatusPending
	if park {
		status = core.RetryStatusFailed
	}
	lastError := ""
	if cause != nil {
		lastError = strings.TrimSpace(cause.Error())
	}
	_, err := s.db.NewUpdate().
		Model((*retryQueueRecord)(nil)).
		Set("status = ?", string(status)).
		Set("attempts = attempts + 1").
		Set("last_error = ?", lastError).
		Set("updated_at = ?", s.now()).
		Where("id = ?", entryID).
		Exec(ctx)
	return err
}

func (s *RetryQueueStore) Unclaim(ctx context.Context, entryID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: retry queue store is not configured")
	}
	entryID = strings.TrimSpace(entryID)
	if entryID == "" {
		return fmt.Errorf("sqlstore: retry entry id is required")
	}
	_, err := s.db.NewUpdate().
		Model((*retryQueueRecord)(nil)).
		Set("status = ?", string(core.RetryStatusPending)).
		Set("updated_at = ?", s.now()).
		Where("id = ?", entryID).
		Where("status = ?", string(core.RetryStatusProcessing)).
		Exec(ctx)
	return err
}

func (s *RetryQueueStore) ListRetries(ctx context.Context, status core.RetryStatus, limit int) ([]core.RetryEntry, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: retry queue store is not configured")
	}
	var records []retryQueueRecord
	query := s.db.NewSelect().
		Model(&records).
		OrderExpr("?TableAlias.created_at ASC, ?TableAlias.id ASC")
	if trimmed := strings.TrimSpace(string(status)); trimmed != "" {
		query = query.Where("?TableAlias.status = ?", trimmed)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	return retryRecordsToEntries(records)
}

func sortRetryRecords(records []retryQueueRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})
}

func retryRecordsToEntries(records []retryQueueRecord) ([]core.RetryEntry, error) {
	entries := make([]core.RetryEntry, 0, len(records))
	for _, record := range records {
		destination, err := core.ParsePrincipal(record.Destination)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: retry entry %s has invalid destination: %w", record.ID, err)
		}
		entries = append(entries, core.RetryEntry{
			ID:          record.ID,
			Destination: destination,
			Operation:   record.Operation,
			Payload:     append([]byte(nil), record.Payload...),
			Status:      core.RetryStatus(record.Status),
			Attempts:    record.Attempts,
			LastError:   record.LastError,
			CreatedAt:   record.CreatedAt,
			UpdatedAt:   record.UpdatedAt,
		})
	}
	return entries, nil
}

var (
	_ core.RetryStore  = (*RetryQueueStore)(nil)
	_ core.RetryLister = (*RetryQueueStore)(nil)
)
