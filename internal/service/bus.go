package service

import (
	"context"
	"errors"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/agenda-api/internal/observability"
)

const defaultChannelBase = "agenda"

// busTransport carries serialized events between API nodes and to
// downstream consumers. Topics are relative to the configured channel base.
type busTransport interface {
	name() string
	publish(ctx context.Context, topic string, payload []byte) error
	listen(ctx context.Context, topic, group string, handle func([]byte)) error
}

// newBusTransports returns one transport per configured client.
func newBusTransports(redisClient *redis.Client, natsConn *nats.Conn, channelBase string) []busTransport {
	base := strings.TrimSpace(channelBase)
	if base == "" {
		base = defaultChannelBase
	}

	var transports []busTransport
	if redisClient != nil {
		transports = append(transports, &redisBus{client: redisClient, prefix: base})
	}
	if natsConn != nil {
		transports = append(transports, &natsBus{conn: natsConn, prefix: strings.ReplaceAll(base, ":", ".")})
	}
	return transports
}

// publishAll sends payload on every transport and joins the failures.
func publishAll(ctx context.Context, transports []busTransport, topic string, payload []byte) error {
	var errs []error
	for _, transport := range transports {
		if err := transport.publish(ctx, topic, payload); err != nil {
			observability.OutboundEventsFailed().WithLabelValues(transport.name()).Inc()
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type redisBus struct {
	client *redis.Client
	prefix string
}

func (b *redisBus) name() string { return "redis" }

func (b *redisBus) channel(topic string) string { return b.prefix + ":" + topic }

func (b *redisBus) publish(ctx context.Context, topic string, payload []byte) error {
	return b.client.Publish(ctx, b.channel(topic), payload).Err()
}

// listen confirms the subscription before returning; messages are consumed
// in the background until ctx ends. Redis pub/sub has no consumer groups, so
// group is ignored and every subscriber receives every message.
func (b *redisBus) listen(ctx context.Context, topic, _ string, handle func([]byte)) error {
	pubsub := b.client.Subscribe(ctx, b.channel(topic))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}

	go func() {
		defer func() { _ = pubsub.Close() }()
		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				handle([]byte(msg.Payload))
			}
		}
	}()
	return nil
}

type natsBus struct {
	conn   *nats.Conn
	prefix string
}

func (b *natsBus) name() string { return "nats" }

func (b *natsBus) subject(topic string) string { return b.prefix + "." + topic }

func (b *natsBus) publish(_ context.Context, topic string, payload []byte) error {
	return b.conn.Publish(b.subject(topic), payload)
}

func (b *natsBus) listen(ctx context.Context, topic, group string, handle func([]byte)) error {
	sub, err := b.conn.QueueSubscribe(b.subject(topic), group, func(msg *nats.Msg) {
		handle(msg.Data)
	})
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		_ = sub.Drain()
	}()
	return nil
}
