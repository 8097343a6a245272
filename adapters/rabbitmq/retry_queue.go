// Package rabbitmq carries ledgerflow retry messages over AMQP 0-9-1. Bodies
// are go-job execution envelopes, so a queue drained here feeds the same
// gojob.Consumer as any other go-job backend.
package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-ledgerflow/adapters/gojob"
	"github.com/goliatone/go-ledgerflow/core"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DefaultConfirmTimeout = 5 * time.Second
	ContentTypeJSON       = "application/json"
)

var (
	ErrPublishNacked  = errors.New("rabbitmq: message was nacked by broker")
	ErrConfirmTimeout = errors.New("rabbitmq: confirmation timed out")
	ErrQueueClosed    = errors.New("rabbitmq: retry queue is closed")
)

// Channel is the subset of *amqp.Channel the retry queue publishes through.
type Channel interface {
	Confirm(noWait bool) error
	NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation
	PublishWithContext(
		ctx context.Context,
		exchange, key string,
		mandatory, immediate bool,
		msg amqp.Publishing,
	) error
	Close() error
}

type Config struct {
	Exchange       string
	RoutingKey     string
	ConfirmTimeout time.Duration
}

// RetryQueue publishes with publisher confirms and returns only after the
// broker acknowledged the message.
type RetryQueue struct {
	ch       Channel
	confirms chan amqp.Confirmation
	config   Config
	logger   core.Logger
	now      func() time.Time

	mu     sync.Mutex
	closed bool
}

func NewRetryQueue(ch Channel, config Config, logger core.Logger) (*RetryQueue, error) {
	if ch == nil {
		return nil, fmt.Errorf("rabbitmq: channel is required")
	}
	if strings.TrimSpace(config.RoutingKey) == "" && strings.TrimSpace(config.Exchange) == "" {
		return nil, fmt.Errorf("rabbitmq: exchange or routing key is required")
	}
	if config.ConfirmTimeout <= 0 {
		config.ConfirmTimeout = DefaultConfirmTimeout
	}
	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("rabbitmq: enable confirm mode: %w", err)
	}
	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	return &RetryQueue{
		ch:       ch,
		confirms: confirms,
		config:   config,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Send is serialized so each publish pairs with the next confirmation. A
// timeout or cancellation leaves a confirmation in flight, so the queue closes
// itself instead of mismatching later sends.
func (q *RetryQueue) Send(ctx context.Context, message core.RetryMessage) error {
	if q == nil || q.ch == nil {
		return fmt.Errorf("rabbitmq: retry queue is not configured")
	}
	msg, err := gojob.ToExecutionMessage(message)
	if err != nil {
		return err
	}
	body, err := queue.EncodeExecutionMessage(msg)
	if err != nil {
		return fmt.Errorf("rabbitmq: encode retry message: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}

	err = q.ch.PublishWithContext(ctx, q.config.Exchange, q.config.RoutingKey, true, false, amqp.Publishing{
		ContentType:  ContentTypeJSON,
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.IdempotencyKey,
		Type:         msg.JobID,
		Timestamp:    q.now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq: publish retry message: %w", err)
	}

	err = q.waitForConfirm(ctx)
	if errors.Is(err, ErrConfirmTimeout) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		q.closeLocked()
	}
	if err == nil && q.logger != nil {
		q.logger.Debug("retry message published",
			"message_id", msg.IdempotencyKey,
			"operation", message.Operation,
			"routing_key", q.config.RoutingKey,
		)
	}
	return err
}

func (q *RetryQueue) waitForConfirm(ctx context.Context) error {
	timer := time.NewTimer(q.config.ConfirmTimeout)
	defer timer.Stop()

	select {
	case confirmed, ok := <-q.confirms:
		if !ok {
			q.closed = true
			return ErrQueueClosed
		}
		if !confirmed.Ack {
			return ErrPublishNacked
		}
		return nil
	case <-timer.C:
		return ErrConfirmTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *RetryQueue) Close() error {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closeLocked()
}

func (q *RetryQueue) closeLocked() error {
	if q.closed {
		return nil
	}
	q.closed = true
	return q.ch.Close()
}

var _ core.RetryQueue = (*RetryQueue)(nil)
