// Package mailer is the worker side of the "redis" notifier: it reads reset
// messages from a stream consumer group and delivers them.
package mailer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/quicklyway/internal/logging"
	"github.com/redis/go-redis/v9"
)

const (
	readCount     = 10
	readBlock     = 5 * time.Second
	retryDelay    = 2 * time.Second
	maxDeliveries = 5
)

// StreamClient is the subset of *redis.Client the consumer uses.
type StreamClient interface {
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
	XPendingExt(ctx context.Context, a *redis.XPendingExtArgs) *redis.XPendingExtCmd
	XClaim(ctx context.Context, a *redis.XClaimArgs) *redis.XMessageSliceCmd
}

type MessageHandler interface {
	Handle(ctx context.Context, msg redis.XMessage) error
}

type Consumer struct {
	client        StreamClient
	stream        string
	group         string
	consumer      string
	claimInterval time.Duration
	block         time.Duration
	retryDelay    time.Duration
	logger        logging.Logger
	handler       MessageHandler
}

func NewConsumer(client StreamClient, stream, group, consumer string, claimInterval time.Duration, logger logging.Logger, handler MessageHandler) *Consumer {
	return &Consumer{
		client:        client,
		stream:        stream,
		group:         group,
		consumer:      consumer,
		claimInterval: claimInterval,
		block:         readBlock,
		retryDelay:    retryDelay,
		logger:        logger.With("module", "mail_consumer", "stream", stream, "group", group),
		handler:       handler,
	}
}

// EnsureGroup creates the stream and consumer group if they do not exist.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// Start consumes until ctx is cancelled and returns ctx.Err().
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.EnsureGroup(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(c.claimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := c.read(ctx); err != nil && ctx.Err() == nil {
				c.logger.Error(ctx, "stream read error", "error", err)
				sleep(ctx, c.retryDelay)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.claimStalled(ctx); err != nil && ctx.Err() == nil {
				c.logger.Error(ctx, "claim stalled messages failed", "error", err)
			}
		default:
		}
	}
}

func (c *Consumer) read(ctx context.Context) error {
	result, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, ">"},
		Count:    readCount,
		Block:    c.block,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	for _, stream := range result {
		for _, msg := range stream.Messages {
			c.process(ctx, msg)
		}
	}
	return nil
}

// process acks msg once handled; failed messages stay pending for a retry.
func (c *Consumer) process(ctx context.Context, msg redis.XMessage) {
	if err := c.handler.Handle(ctx, msg); err != nil {
		c.logger.Error(ctx, "handle message failed", "error", err, "message_id", msg.ID)
		return
	}
	c.ack(ctx, msg.ID)
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, c.stream, c.group, id).Err(); err != nil {
		c.logger.Error(ctx, "ack failed", "error", err, "message_id", id)
	}
}

func (c *Consumer) claimStalled(ctx context.Context) error {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.stream,
		Group:  c.group,
		Start:  "-",
		End:    "+",
		Count:  readCount,
	}).Result()
	if err != nil {
		return err
	}

	for _, entry := range pending {
		if entry.Idle < c.claimInterval {
			continue
		}

		if entry.RetryCount >= maxDeliveries {
			c.logger.Error(ctx, "dropping undeliverable message",
				"message_id", entry.ID, "deliveries", entry.RetryCount)
			c.ack(ctx, entry.ID)
			continue
		}

		msgs, err := c.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   c.stream,
			Group:    c.group,
			Consumer: c.consumer,
			MinIdle:  c.claimInterval,
			Messages: []string{entry.ID},
		}).Result()
		if err != nil {
			c.logger.Error(ctx, "claim error", "error", err, "message_id", entry.ID)
			continue
		}

		for _, msg := range msgs {
			c.process(ctx, msg)
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
