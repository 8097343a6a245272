package rabbitmq

import (
	"context"
	"fmt"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	amqp "github.com/rabbitmq/amqp091-go"
)

// HeaderDeliveryCount is set by quorum queues on redelivery.
const HeaderDeliveryCount = "x-delivery-count"

// Dequeuer adapts an AMQP consumer stream to go-job's queue.Dequeuer.
// Non-retry nacks are rejected without requeue so a configured dead letter
// exchange receives them.
type Dequeuer struct {
	deliveries <-chan amqp.Delivery
}

func NewDequeuer(deliveries <-chan amqp.Delivery) (*Dequeuer, error) {
	if deliveries == nil {
		return nil, fmt.Errorf("rabbitmq: delivery stream is required")
	}
	return &Dequeuer{deliveries: deliveries}, nil
}

func (d *Dequeuer) Dequeue(ctx context.Context) (queue.Delivery, error) {
	if d == nil || d.deliveries == nil {
		return nil, fmt.Errorf("rabbitmq: dequeuer is not configured")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case raw, ok := <-d.deliveries:
		if !ok {
			return nil, ErrQueueClosed
		}
		msg, err := queue.DecodeExecutionMessage(raw.Body)
		if err != nil {
			if rejectErr := raw.Reject(false); rejectErr != nil {
				return nil, fmt.Errorf("rabbitmq: reject undecodable delivery: %w (decode: %v)", rejectErr, err)
			}
			return nil, fmt.Errorf("rabbitmq: decode delivery: %w", err)
		}
		return &delivery{raw: raw, msg: msg}, nil
	}
}

type delivery struct {
	raw amqp.Delivery
	msg *job.ExecutionMessage
}

func (d *delivery) Message() *job.ExecutionMessage { return d.msg }

func (d *delivery) Ack(context.Context) error {
	return d.raw.Ack(false)
}

// Nack requeues on retry. The broker has no per-message delay, so
// opts.Delay is left to queue-level TTL policies.
func (d *delivery) Nack(_ context.Context, opts queue.NackOptions) error {
	return d.raw.Nack(false, opts.Disposition == queue.NackDispositionRetry)
}

func (d *delivery) Attempts() int {
	switch count := d.raw.Headers[HeaderDeliveryCount].(type) {
	case int64:
		return int(count) + 1
	case int32:
		return int(count) + 1
	case int:
		return count + 1
	}
	if d.raw.Redelivered {
		return 2
	}
	return 1
}

var _ queue.Dequeuer = (*Dequeuer)(nil)
