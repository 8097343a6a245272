package gojob

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-ledgerflow/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
)

const (
	JobIDRetryDelivery = "ledgerflow.retry.deliver"
	JobIDRetryDispatch = "ledgerflow.retry.dispatch"

	ScriptPathRetryDelivery = "ledgerflow.retry.deliver"
	ScriptPathRetryDispatch = "ledgerflow.retry.dispatch"

	paramDestination = "destination"
	paramOperation   = "operation"
	// payload is a raw-JSON key for go-job codecs; msgpack bytes travel base64.
	paramPayload   = "payload_b64"
	paramBatchSize = "batch_size"
)

// ToExecutionMessage maps a retry message onto a go-job execution message.
// The idempotency key is the submission id, so queues drop repeated sends of
// one submission and keep distinct submissions of identical content.
func ToExecutionMessage(message core.RetryMessage) (*job.ExecutionMessage, error) {
	if message.Destination.IsZero() {
		return nil, fmt.Errorf("gojob: retry destination is required")
	}
	operation := strings.TrimSpace(message.Operation)
	if operation == "" {
		return nil, fmt.Errorf("gojob: retry operation is required")
	}
	if len(message.Payload) == 0 {
		return nil, fmt.Errorf("gojob: retry payload is required")
	}
	return &job.ExecutionMessage{
		JobID:      JobIDRetryDelivery,
		ScriptPath: ScriptPathRetryDelivery,
		EntityID:   message.Destination.String(),
		Parameters: map[string]any{
			paramDestination: message.Destination.String(),
			paramOperation:   operation,
			paramPayload:     base64.StdEncoding.EncodeToString(message.Payload),
		},
		IdempotencyKey: IdempotencyKey(message),
		DedupPolicy:    job.DedupPolicyDrop,
	}, nil
}

// FromExecutionMessage reverses ToExecutionMessage.
func FromExecutionMessage(msg *job.ExecutionMessage) (core.RetryMessage, error) {
	if msg == nil {
		return core.RetryMessage{}, fmt.Errorf("gojob: execution message is required")
	}
	if msg.JobID != JobIDRetryDelivery {
		return core.RetryMessage{}, fmt.Errorf("gojob: unexpected job id %q", msg.JobID)
	}
	destinationText, _ := msg.Parameters[paramDestination].(string)
	destination, err := core.ParsePrincipal(destinationText)
	if err != nil {
		return core.RetryMessage{}, fmt.Errorf("gojob: invalid retry destination: %w", err)
	}
	operation, _ := msg.Parameters[paramOperation].(string)
	if strings.TrimSpace(operation) == "" {
		return core.RetryMessage{}, fmt.Errorf("gojob: retry operation is required")
	}
	encoded, _ := msg.Parameters[paramPayload].(string)
	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return core.RetryMessage{}, fmt.Errorf("gojob: invalid retry payload: %w", err)
	}
	if len(payload) == 0 {
		return core.RetryMessage{}, fmt.Errorf("gojob: retry payload is required")
	}
	return core.RetryMessage{
		ID:          strings.TrimSpace(msg.IdempotencyKey),
		Destination: destination,
		Operation:   strings.TrimSpace(operation),
		Payload:     payload,
	}, nil
}

// IdempotencyKey returns the message id, falling back to a content digest for
// messages sent without one.
func IdempotencyKey(message core.RetryMessage) string {
	if id := strings.TrimSpace(message.ID); id != "" {
		return id
	}
	sum := sha256.New()
	sum.Write(message.Destination.Bytes())
	sum.Write([]byte{0})
	sum.Write([]byte(strings.TrimSpace(message.Operation)))
	sum.Write([]byte{0})
	sum.Write(message.Payload)
	return hex.EncodeToString(sum.Sum(nil))
}

// DispatchMessage schedules one relay pass over the SQL retry store.
func DispatchMessage(batchSize int) *job.ExecutionMessage {
	params := map[string]any{}
	if batchSize > 0 {
		params[paramBatchSize] = batchSize
	}
	return &job.ExecutionMessage{
		JobID:      JobIDRetryDispatch,
		ScriptPath: ScriptPathRetryDispatch,
		Parameters: params,
	}
}

// RetryQueue sends retry messages through a go-job enqueuer.
type RetryQueue struct {
	enqueuer queue.Enqueuer
	logger   core.Logger
}

func NewRetryQueue(enqueuer queue.Enqueuer, logger core.Logger) (*RetryQueue, error) {
	if enqueuer == nil {
		return nil, fmt.Errorf("gojob: enqueuer is required")
	}
	return &RetryQueue{enqueuer: enqueuer, logger: logger}, nil
}

func (q *RetryQueue) Send(ctx context.Context, message core.RetryMessage) error {
	if q == nil || q.enqueuer == nil {
		return fmt.Errorf("gojob: retry queue is not configured")
	}
	msg, err := ToExecutionMessage(message)
	if err != nil {
		return err
	}
	receipt, err := q.enqueuer.Enqueue(ctx, msg)
	if err != nil {
		return fmt.Errorf("gojob: enqueue retry: %w", err)
	}
	if q.logger != nil {
		q.logger.Debug("retry message enqueued",
			"dispatch_id", receipt.DispatchID,
			"operation", message.Operation,
			"destination", message.Destination.String(),
		)
	}
	return nil
}

type attemptReader interface {
	Attempts() int
}

// Consumer drains go-job deliveries produced by RetryQueue and DispatchMessage.
type Consumer struct {
	dequeuer   queue.Dequeuer
	deliverers map[string]core.RetryDeliverer
	dispatcher core.RetryDispatcher
	policy     worker.RetryPolicy
	hooks      []worker.Hook
	now        func() time.Time
}

type ConsumerOption func(*Consumer)

func WithDeliverer(operation string, deliverer core.RetryDeliverer) ConsumerOption {
	return func(c *Consumer) {
		operation = strings.TrimSpace(operation)
		if operation == "" || deliverer == nil {
			return
		}
		c.deliverers[operation] = deliverer
	}
}

func WithDispatcher(dispatcher core.RetryDispatcher) ConsumerOption {
	return func(c *Consumer) {
		c.dispatcher = dispatcher
	}
}

func WithRetryPolicy(policy worker.RetryPolicy) ConsumerOption {
	return func(c *Consumer) {
		if policy != nil {
			c.policy = policy
		}
	}
}

func WithHooks(hooks ...worker.Hook) ConsumerOption {
	return func(c *Consumer) {
		for _, hook := range hooks {
			if hook != nil {
				c.hooks = append(c.hooks, hook)
			}
		}
	}
}

func DefaultRetryPolicy(maxAttempts int) worker.RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = core.DefaultRetryRelayConfig().MaxAttempts
	}
	return worker.DefaultRetryPolicy{
		MaxAttempts: maxAttempts,
		Backoff: worker.BackoffConfig{
			Strategy:    worker.BackoffExponential,
			Interval:    time.Second,
			MaxInterval: time.Minute,
		},
	}
}

func NewConsumer(dequeuer queue.Dequeuer, opts ...ConsumerOption) (*Consumer, error) {
	if dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is required")
	}
	consumer := &Consumer{
		dequeuer:   dequeuer,
		deliverers: map[string]core.RetryDeliverer{},
		policy:     DefaultRetryPolicy(0),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(consumer)
		}
	}
	return consumer, nil
}

// ConsumeOne handles a single delivery. Handler failures are settled on the
// delivery through the retry policy and are returned to the caller.
func (c *Consumer) ConsumeOne(ctx context.Context) error {
	if c == nil || c.dequeuer == nil {
		return fmt.Errorf("gojob: consumer is not configured")
	}
	delivery, err := c.dequeuer.Dequeue(ctx)
	if err != nil {
		return err
	}
	if delivery == nil {
		return nil
	}

	event := worker.Event{
		Delivery:  delivery,
		Message:   delivery.Message(),
		Attempt:   deliveryAttempt(delivery),
		StartedAt: c.now(),
	}
	c.emit(ctx, event, worker.Hook.OnStart)

	handleErr := c.handle(ctx, delivery.Message())
	event.Duration = c.now().Sub(event.StartedAt)
	if handleErr == nil {
		if err := delivery.Ack(ctx); err != nil {
			return fmt.Errorf("gojob: ack delivery: %w", err)
		}
		c.emit(ctx, event, worker.Hook.OnSuccess)
		return nil
	}

	event.Err = handleErr
	nack := c.policy.Decide(event.Attempt, handleErr)
	event.Delay = nack.Delay
	if err := delivery.Nack(ctx, nack); err != nil {
		return fmt.Errorf("gojob: nack delivery: %w (handler: %v)", err, handleErr)
	}
	if nack.Disposition == queue.NackDispositionRetry {
		c.emit(ctx, event, worker.Hook.OnRetry)
	} else {
		c.emit(ctx, event, worker.Hook.OnFailure)
	}
	return handleErr
}

func (c *Consumer) handle(ctx context.Context, msg *job.ExecutionMessage) error {
	if msg == nil {
		return job.NewTerminalError("", "gojob: delivery carried no message", nil)
	}
	switch msg.JobID {
	case JobIDRetryDelivery:
		message, err := FromExecutionMessage(msg)
		if err != nil {
			return job.NewTerminalError("", err.Error(), err)
		}
		deliverer, ok := c.deliverers[message.Operation]
		if !ok {
			return job.NewTerminalError("", fmt.Sprintf("gojob: no deliverer for operation %q", message.Operation), nil)
		}
		return deliverer.Deliver(ctx, core.RetryEntry{
			ID:          msg.IdempotencyKey,
			Destination: message.Destination,
			Operation:   message.Operation,
			Payload:     message.Payload,
			Status:      core.RetryStatusProcessing,
		})
	case JobIDRetryDispatch:
		if c.dispatcher == nil {
			return job.NewTerminalError("", "gojob: retry dispatcher is not configured", nil)
		}
		_, err := c.dispatcher.DispatchPending(ctx, batchSizeParam(msg.Parameters))
		return err
	default:
		return job.NewTerminalError("", fmt.Sprintf("gojob: unsupported job id %q", msg.JobID), nil)
	}
}

func (c *Consumer) emit(ctx context.Context, event worker.Event, fn func(worker.Hook, context.Context, worker.Event)) {
	for _, hook := range c.hooks {
		fn(hook, ctx, event)
	}
}

func deliveryAttempt(delivery queue.Delivery) int {
	if reader, ok := delivery.(attemptReader); ok {
		if attempts := reader.Attempts(); attempts > 0 {
			return attempts
		}
	}
	return 1
}

func batchSizeParam(params map[string]any) int {
	switch value := params[paramBatchSize].(type) {
	case int:
		return value
	case int64:
		return int(value)
	case float64:
		return int(value)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err == nil {
			return parsed
		}
	}
	return 0
}

// LoggingHook reports worker lifecycle events on a go-job logger. Bridge a
// glog logger with gologger.ToJobLogger.
func LoggingHook(logger job.Logger) worker.Hook {
	if logger == nil {
		return worker.HookFuncs{}
	}
	fields := func(event worker.Event) []any {
		jobID := ""
		if event.Message != nil {
			jobID = event.Message.JobID
		}
		return []any{"job_id", jobID, "attempt", event.Attempt, "duration", event.Duration}
	}
	return worker.HookFuncs{
		OnStartFunc: func(_ context.Context, event worker.Event) {
			logger.Debug("ledgerflow job started", fields(event)...)
		},
		OnSuccessFunc: func(_ context.Context, event worker.Event) {
			logger.Info("ledgerflow job succeeded", fields(event)...)
		},
		OnFailureFunc: func(_ context.Context, event worker.Event) {
			logger.Error("ledgerflow job failed", append(fields(event), "error", event.Err)...)
		},
		OnRetryFunc: func(_ context.Context, event worker.Event) {
			logger.Warn("ledgerflow job scheduled for retry", append(fields(event), "delay", event.Delay, "error", event.Err)...)
		},
	}
}

var _ core.RetryQueue = (*RetryQueue)(nil)
