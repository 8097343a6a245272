package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type RetryStatus string

const (
	RetryStatusPending    RetryStatus = "pending"
	RetryStatusProcessing RetryStatus = "processing"
	RetryStatusDelivered  RetryStatus = "delivered"
	RetryStatusFailed     RetryStatus = "failed"
)

// RetryEntry is a queued downstream call as persisted by a RetryStore.
type RetryEntry struct {
	ID          string
	Destination CanisterID
	Operation   string
	Payload     []byte
	Status      RetryStatus
	Attempts    int
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type RetryRelayConfig struct {
	BatchSize   int
	MaxAttempts int
}

func DefaultRetryRelayConfig() RetryRelayConfig {
	return RetryRelayConfig{
		BatchSize:   50,
		MaxAttempts: 10,
	}
}

// RetryRelay re-delivers queued calls by operation name. It does not schedule
// itself; callers drive DispatchPending from a job runner or CLI.
type RetryRelay struct {
	store  RetryStore
	config RetryRelayConfig

	mu         sync.RWMutex
	deliverers map[string]RetryDeliverer
}

func NewRetryRelay(store RetryStore, config RetryRelayConfig) (*RetryRelay, error) {
	if store == nil {
		return nil, fmt.Errorf("core: retry store is required")
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultRetryRelayConfig().BatchSize
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultRetryRelayConfig().MaxAttempts
	}
	return &RetryRelay{
		store:      store,
		config:     config,
		deliverers: map[string]RetryDeliverer{},
	}, nil
}

func (r *RetryRelay) Register(operation string, deliverer RetryDeliverer) {
	if r == nil || deliverer == nil {
		return
	}
	operation = strings.TrimSpace(operation)
	if operation == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliverers[operation] = deliverer
}

func (r *RetryRelay) Operations() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.deliverers))
	for operation := range r.deliverers {
		out = append(out, operation)
	}
	sort.Strings(out)
	return out
}

func (r *RetryRelay) DispatchPending(ctx context.Context, batchSize int) (DispatchStats, error) {
	if r == nil || r.store == nil {
		return DispatchStats{}, fmt.Errorf("core: retry relay is not configured")
	}
	limit := batchSize
	if limit <= 0 {
		limit = r.config.BatchSize
	}
	entries, err := r.store.ClaimBatch(ctx, limit)
	if err != nil {
		return DispatchStats{}, err
	}

	stats := DispatchStats{Claimed: len(entries)}
	// Claimed rows must leave processing even when ctx ends mid-pass.
	settleCtx := context.WithoutCancel(ctx)
	var dispatchErr error
	for i, entry := range entries {
		if ctxErr := ctx.Err(); ctxErr != nil {
			dispatchErr = joinErrors(dispatchErr, ctxErr)
			r.unclaim(settleCtx, entries[i:], &stats, &dispatchErr)
			break
		}
		id := strings.TrimSpace(entry.ID)
		if err := r.deliver(ctx, entry); err != nil {
			dispatchErr = joinErrors(dispatchErr, err)
			// An interrupted attempt says nothing about the destination.
			park := ctx.Err() == nil && entry.Attempts+1 >= r.config.MaxAttempts
			if releaseErr := r.store.Release(settleCtx, id, err, park); releaseErr != nil {
				stats.Unsettled++
				dispatchErr = joinErrors(dispatchErr, releaseErr)
				continue
			}
			if park {
				stats.Failed++
			} else {
				stats.Retried++
			}
			continue
		}
		if err := r.store.Ack(settleCtx, id); err != nil {
			stats.Unsettled++
			dispatchErr = joinErrors(dispatchErr, err)
			continue
		}
		stats.Delivered++
	}
	return stats, dispatchErr
}

func (r *RetryRelay) unclaim(ctx context.Context, entries []RetryEntry, stats *DispatchStats, dispatchErr *error) {
	for _, entry := range entries {
		if err := r.store.Unclaim(ctx, strings.TrimSpace(entry.ID)); err != nil {
			stats.Unsettled++
			*dispatchErr = joinErrors(*dispatchErr, err)
			continue
		}
		stats.Requeued++
	}
}

func (r *RetryRelay) deliver(ctx context.Context, entry RetryEntry) error {
	r.mu.RLock()
	deliverer, ok := r.deliverers[strings.TrimSpace(entry.Operation)]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("core: no retry deliverer registered for operation %q", entry.Operation)
	}
	if err := deliverer.Deliver(ctx, entry); err != nil {
		return fmt.Errorf("core: retry %q delivery failed: %w", entry.ID, err)
	}
	return nil
}

// ProposalRetryDeliverer replays a queued proposal submission under the
// entry id, which is the submission id. Any typed response from the bot is
// final and acknowledges the entry.
type ProposalRetryDeliverer struct {
	Client ProposalsBotClient
}

func (d ProposalRetryDeliverer) Deliver(ctx context.Context, entry RetryEntry) error {
	if d.Client == nil {
		return fmt.Errorf("core: proposals bot client is not configured")
	}
	args, err := DecodeSubmitProposalArgs(entry.Payload)
	if err != nil {
		return err
	}
	_, err = d.Client.SubmitProposal(ContextWithIdempotencyKey(ctx, entry.ID), entry.Destination, args)
	return err
}

func joinErrors(existing error, next error) error {
	if existing == nil {
		return next
	}
	if next == nil {
		return existing
	}
	return fmt.Errorf("%w; %v", existing, next)
}
