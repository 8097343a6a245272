package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ProposalAction struct {
	Kind    string `json:"kind"`
	Payload []byte `json:"payload,omitempty"`
}

type Proposal struct {
	Title   string         `json:"title"`
	Summary string         `json:"summary"`
	URL     string         `json:"url"`
	Action  ProposalAction `json:"action"`
}

type SubmitProposalRequest struct {
	GovernanceCanisterID CanisterID `json:"governance_canister_id"`
	Proposal             Proposal   `json:"proposal"`
}

// SubmitProposalArgs is the payload forwarded to the proposals bot, both on
// the direct call and when replayed from the retry queue.
type SubmitProposalArgs struct {
	GovernanceCanisterID CanisterID `json:"governance_canister_id"`
	Proposal             Proposal   `json:"proposal"`
}

// RuntimeSnapshot is the local state read once when a submission starts. Zero
// target identities fall back to the service configuration.
type RuntimeSnapshot struct {
	Caller              UserID
	Suspended           bool
	SupportedGovernance CanisterID
	ProposalsBot        CanisterID
}

type DownstreamStatus string

const (
	DownstreamSuccess                        DownstreamStatus = "success"
	DownstreamGovernanceCanisterNotSupported DownstreamStatus = "governance_canister_not_supported"
	DownstreamRetrying                       DownstreamStatus = "retrying"
	DownstreamInternalError                  DownstreamStatus = "internal_error"
)

type DownstreamResponse struct {
	Status  DownstreamStatus `json:"status"`
	Message string           `json:"message,omitempty"`
}

type RetryMessage struct {
	// ID names one submission. The direct call and every replay share it, so
	// downstream and queue deduplication never merge distinct submissions.
	ID          string
	Destination CanisterID
	Operation   string
	Payload     []byte
}

type ProposalStatus string

const (
	ProposalSuccess                        ProposalStatus = "success"
	ProposalUserSuspended                  ProposalStatus = "user_suspended"
	ProposalGovernanceCanisterNotSupported ProposalStatus = "governance_canister_not_supported"
	ProposalTransferFailed                 ProposalStatus = "transfer_failed"
	ProposalRetrying                       ProposalStatus = "retrying"
	ProposalInternalError                  ProposalStatus = "internal_error"
)

// SubmitProposalResponse is the caller-facing result. Message is set for
// TransferFailed, Retrying and InternalError.
type SubmitProposalResponse struct {
	Status  ProposalStatus `json:"status"`
	Message string         `json:"message,omitempty"`
}

func (r SubmitProposalResponse) Validate() error {
	switch r.Status {
	case ProposalSuccess, ProposalUserSuspended, ProposalGovernanceCanisterNotSupported:
		return nil
	case ProposalTransferFailed, ProposalRetrying, ProposalInternalError:
		return nil
	default:
		return fmt.Errorf("core: invalid proposal status %q", string(r.Status))
	}
}

func (r SubmitProposalResponse) Succeeded() bool {
	return r.Status == ProposalSuccess
}

func (r SubmitProposalResponse) String() string {
	if strings.TrimSpace(r.Message) == "" {
		return string(r.Status)
	}
	return string(r.Status) + ": " + r.Message
}

// err renders a non-success result for observation only.
func (r SubmitProposalResponse) err() error {
	if r.Succeeded() {
		return nil
	}
	return errors.New(r.String())
}

func proposalResult(status ProposalStatus, message string) SubmitProposalResponse {
	return SubmitProposalResponse{Status: status, Message: message}
}

// SubmitProposal charges the proposal fee and forwards the proposal to the
// proposals bot. Once validation passes the workflow ignores caller
// cancellation and always ends in one of the ProposalStatus values.
func (s *Service) SubmitProposal(
	ctx context.Context,
	snapshot RuntimeSnapshot,
	req SubmitProposalRequest,
) (response SubmitProposalResponse) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"caller":                 principalField(snapshot.Caller),
		"governance_canister_id": principalField(req.GovernanceCanisterID),
	}
	defer func() {
		fields["result_status"] = string(response.Status)
		s.observeOperation(ctx, startedAt, "submit_proposal", response.err(), fields)
	}()

	if s == nil {
		return proposalResult(ProposalInternalError, "core: service is not configured")
	}
	if snapshot.Suspended {
		return proposalResult(ProposalUserSuspended, "")
	}
	supported := snapshot.SupportedGovernance
	if supported.IsZero() {
		supported = s.proposals.SupportedGovernance
	}
	if req.GovernanceCanisterID != supported {
		return proposalResult(ProposalGovernanceCanisterNotSupported, "")
	}
	bot := snapshot.ProposalsBot
	if bot.IsZero() {
		bot = s.proposals.ProposalsBot
	}

	ctx = context.WithoutCancel(ctx)

	pending, err := CreatePendingTransaction(
		s.proposals.FeeToken,
		s.proposals.Ledger,
		s.proposals.FeeAmount,
		s.proposals.FeeToken.Fee(),
		bot,
		s.nowNanos(),
	)
	if err != nil {
		return proposalResult(ProposalInternalError, err.Error())
	}
	completed, err := s.ProcessTransaction(ctx, pending, snapshot.Caller)
	if err != nil {
		return proposalResult(ProposalTransferFailed, err.Error())
	}
	fields["block_index"] = completed.BlockIndex

	submissionID := NewSubmissionID()
	fields["submission_id"] = submissionID
	ctx = ContextWithIdempotencyKey(ctx, submissionID)

	args := SubmitProposalArgs{
		GovernanceCanisterID: req.GovernanceCanisterID,
		Proposal:             req.Proposal,
	}
	downstream, err := s.callProposalsBot(ctx, bot, args)
	if err != nil {
		return s.enqueueProposalRetry(ctx, submissionID, bot, args, err, fields)
	}

	switch downstream.Status {
	case DownstreamSuccess:
		return proposalResult(ProposalSuccess, "")
	case DownstreamGovernanceCanisterNotSupported:
		return proposalResult(ProposalGovernanceCanisterNotSupported, "")
	case DownstreamRetrying:
		return proposalResult(ProposalRetrying, downstream.Message)
	case DownstreamInternalError:
		return proposalResult(ProposalInternalError, downstream.Message)
	default:
		return proposalResult(
			ProposalInternalError,
			fmt.Sprintf("core: unknown proposals bot status %q", string(downstream.Status)),
		)
	}
}

func (s *Service) callProposalsBot(
	ctx context.Context,
	bot CanisterID,
	args SubmitProposalArgs,
) (DownstreamResponse, error) {
	if s.proposalsBot == nil {
		return DownstreamResponse{}, fmt.Errorf("core: proposals bot client is not configured")
	}
	return s.proposalsBot.SubmitProposal(ctx, bot, args)
}

func (s *Service) enqueueProposalRetry(
	ctx context.Context,
	submissionID string,
	bot CanisterID,
	args SubmitProposalArgs,
	deliveryErr error,
	fields map[string]any,
) SubmitProposalResponse {
	reason := transferErrorMessage(deliveryErr)
	fields["delivery_error"] = reason

	payload, err := EncodeSubmitProposalArgs(args)
	if err == nil {
		if s.retryQueue == nil {
			err = ErrRetryQueueUnavailable
		} else {
			err = s.retryQueue.Send(ctx, RetryMessage{
				ID:          submissionID,
				Destination: bot,
				Operation:   s.proposals.RetryOperation,
				Payload:     payload,
			})
		}
	}
	if err != nil {
		message := fmt.Sprintf("%s; retry enqueue failed: %v", reason, err)
		s.logError(ctx, "proposal retry enqueue failed", map[string]any{
			"proposals_bot":  principalField(bot),
			"delivery_error": reason,
			"error":          err.Error(),
		})
		return proposalResult(ProposalInternalError, message)
	}
	fields["retry_enqueued"] = true
	return proposalResult(ProposalRetrying, reason)
}

// NewSubmissionID mints a time-ordered id for one paid submission.
func NewSubmissionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

type idempotencyKeyContextKey struct{}

// ContextWithIdempotencyKey attaches the key downstream clients send with the
// call.
func ContextWithIdempotencyKey(ctx context.Context, key string) context.Context {
	key = strings.TrimSpace(key)
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, idempotencyKeyContextKey{}, key)
}

func IdempotencyKeyFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	key, _ := ctx.Value(idempotencyKeyContextKey{}).(string)
	return key
}

// ResolveSnapshot reads the caller state through the configured
// SnapshotSource and fills target identities from configuration.
func (s *Service) ResolveSnapshot(ctx context.Context, caller UserID) (RuntimeSnapshot, error) {
	if s == nil {
		return RuntimeSnapshot{}, fmt.Errorf("core: service is not configured")
	}
	snapshot := RuntimeSnapshot{Caller: caller}
	if s.snapshotSource != nil {
		loaded, err := s.snapshotSource.Snapshot(ctx, caller)
		if err != nil {
			return RuntimeSnapshot{}, err
		}
		snapshot = loaded
		snapshot.Caller = caller
	}
	if snapshot.SupportedGovernance.IsZero() {
		snapshot.SupportedGovernance = s.proposals.SupportedGovernance
	}
	if snapshot.ProposalsBot.IsZero() {
		snapshot.ProposalsBot = s.proposals.ProposalsBot
	}
	return snapshot, nil
}

func principalField(p Principal) string {
	if p.IsZero() {
		return ""
	}
	return p.String()
}
