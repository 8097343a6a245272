package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-ledgerflow/adapters/gocommand"
	"github.com/goliatone/go-ledgerflow/adapters/gojob"
	"github.com/goliatone/go-ledgerflow/adapters/rabbitmq"
	lfcommand "github.com/goliatone/go-ledgerflow/command"
	"github.com/goliatone/go-ledgerflow/core"
	"github.com/spf13/cobra"
)

func newRelayCmd(opts *rootOptions) *cobra.Command {
	var (
		batchSize int
		interval  time.Duration
		consume   bool
	)
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Deliver submissions parked on the retry queue",
		Long: `Deliver submissions parked on the retry queue.

By default one batch of the SQL retry queue is drained. With --interval the
relay keeps draining until interrupted. With --consume the relay instead
consumes the configured RabbitMQ queue.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			if consume {
				return rt.consumeAMQP(cmd.Context())
			}
			if interval <= 0 {
				return rt.relayOnce(cmd.Context(), opts, batchSize)
			}

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				if err := rt.relayOnce(cmd.Context(), opts, batchSize); err != nil {
					rt.bridge.Logger.Error("relay pass failed", "error", err)
				}
				select {
				case <-cmd.Context().Done():
					return nil
				case <-ticker.C:
				}
			}
		},
	}
	cmd.Flags().IntVarP(&batchSize, "batch-size", "b", 0, "entries claimed per pass, defaults to retry.batch_size")
	cmd.Flags().DurationVar(&interval, "interval", 0, "keep relaying at this interval")
	cmd.Flags().BoolVar(&consume, "consume", false, "consume the RabbitMQ retry queue")
	return cmd
}

func (rt *runtime) relayOnce(ctx context.Context, opts *rootOptions, batchSize int) error {
	collector := gocmd.NewResult[core.DispatchStats]()
	if err := gocommand.Dispatch(gocmd.ContextWithResult(ctx, collector), lfcommand.DispatchRetriesMessage{BatchSize: batchSize}); err != nil {
		return err
	}
	stats, _ := collector.Load()
	fmt.Fprintf(opts.out, "claimed=%d delivered=%d retried=%d failed=%d requeued=%d unsettled=%d\n",
		stats.Claimed, stats.Delivered, stats.Retried, stats.Failed, stats.Requeued, stats.Unsettled)
	return nil
}

// consumeAMQP runs the go-job consumer over the RabbitMQ queue until the
// context ends or the broker closes the delivery stream.
func (rt *runtime) consumeAMQP(ctx context.Context) error {
	if rt.amqpConn == nil {
		return fmt.Errorf("relay: amqp.url is not configured")
	}
	ch, err := rt.amqpConn.Channel()
	if err != nil {
		return fmt.Errorf("open amqp channel: %w", err)
	}
	defer ch.Close()
	deliveries, err := ch.Consume(rt.file.AMQP.Queue, rt.config.ServiceName, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", rt.file.AMQP.Queue, err)
	}
	dequeuer, err := rabbitmq.NewDequeuer(deliveries)
	if err != nil {
		return err
	}

	consumerOpts := []gojob.ConsumerOption{
		gojob.WithDispatcher(core.RetryDispatcherFunc(rt.service.DispatchRetries)),
		gojob.WithRetryPolicy(gojob.DefaultRetryPolicy(rt.config.Retry.MaxAttempts)),
		gojob.WithHooks(gojob.LoggingHook(rt.bridge.JobLogger)),
	}
	if rt.bot != nil {
		consumerOpts = append(consumerOpts, gojob.WithDeliverer(
			rt.service.ProposalSettings().RetryOperation,
			core.ProposalRetryDeliverer{Client: rt.bot},
		))
	}
	consumer, err := gojob.NewConsumer(dequeuer, consumerOpts...)
	if err != nil {
		return err
	}

	rt.bridge.Logger.Info("consuming retry queue", "queue", rt.file.AMQP.Queue)
	for {
		err := consumer.ConsumeOne(ctx)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		case errors.Is(err, rabbitmq.ErrQueueClosed):
			return err
		default:
			// Handler failures were already nacked and reported by the hook.
			rt.bridge.Logger.Debug("consume pass ended with error", "error", err)
		}
	}
}
