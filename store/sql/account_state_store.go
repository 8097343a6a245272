package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-ledgerflow/core"
	"github.com/uptrace/bun"
)

// AccountStateStore backs runtime snapshots with per-user suspension flags.
// Callers without a row are active.
type AccountStateStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewAccountStateStore(db *bun.DB) (*AccountStateStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &AccountStateStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *AccountStateStore) Snapshot(ctx context.Context, caller core.UserID) (core.RuntimeSnapshot, error) {
	state, err := s.Get(ctx, caller)
	if err != nil {
		return core.RuntimeSnapshot{}, err
	}
	return core.RuntimeSnapshot{Caller: caller, Suspended: state.Suspended}, nil
}

func (s *AccountStateStore) Get(ctx context.Context, user core.UserID) (core.AccountState, error) {
	if s == nil || s.db == nil {
		return core.AccountState{}, fmt.Errorf("sqlstore: account state store is not configured")
	}
	if user.IsZero() {
		return core.AccountState{}, fmt.Errorf("sqlstore: account user id is required")
	}
	record := &accountStateRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", user.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.AccountState{User: user}, nil
		}
		return core.AccountState{}, err
	}
	return record.toDomain(user), nil
}

func (s *AccountStateStore) SetAccountState(ctx context.Context, state core.AccountState) (core.AccountState, error) {
	if s == nil || s.db == nil {
		return core.AccountState{}, fmt.Errorf("sqlstore: account state store is not configured")
	}
	if state.User.IsZero() {
		return core.AccountState{}, fmt.Errorf("sqlstore: account user id is required")
	}
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = s.now()
	}
	state.UpdatedAt = state.UpdatedAt.UTC()
	state.Reason = strings.TrimSpace(state.Reason)

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing := &accountStateRecord{}
		err := tx.NewSelect().
			Model(existing).
			Where("?TableAlias.user_id = ?", state.User.String()).
			Limit(1).
			Scan(ctx)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		record := &accountStateRecord{
			UserID:    state.User.String(),
			Suspended: state.Suspended,
			Reason:    state.Reason,
			CreatedAt: state.UpdatedAt,
			UpdatedAt: state.UpdatedAt,
		}
		if errors.Is(err, sql.ErrNoRows) {
			_, insertErr := tx.NewInsert().Model(record).Exec(ctx)
			return insertErr
		}
		record.CreatedAt = existing.CreatedAt
		_, updateErr := tx.NewUpdate().
			Model(record).
			Where("user_id = ?", record.UserID).
			Exec(ctx)
		return updateErr
	})
	if err != nil {
		return core.AccountState{}, err
	}
	return state, nil
}

func (r *accountStateRecord) toDomain(user core.UserID) core.AccountState {
	if r == nil {
		return core.AccountState{User: user}
	}
	return core.AccountState{
		User:      user,
		Suspended: r.Suspended,
		Reason:    r.Reason,
		UpdatedAt: r.UpdatedAt,
	}
}

var _ core.AccountStateStore = (*AccountStateStore)(nil)
