package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	rstream "github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Bus wraps a watermill publisher/subscriber pair.
type Bus struct {
	pub     message.Publisher
	sub     message.Subscriber
	closers []func() error
}

var _ Publisher = &Bus{}

// NewInMemoryBus returns a bus backed by a watermill go-channel. Publishing
// never waits for subscriber acks.
func NewInMemoryBus() *Bus {
	gc := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            256,
		BlockPublishUntilSubscriberAck: false,
	}, NewWatermillLogger(log.Logger))
	return &Bus{pub: gc, sub: gc, closers: []func() error{gc.Close}}
}

// NewRedisBus returns a bus backed by Redis Streams. group and consumer name the
// consumer group used by Subscribe.
func NewRedisBus(client redis.UniversalClient, group, consumer string) (*Bus, error) {
	if client == nil {
		return nil, errors.New("redis bus: nil client")
	}
	logger := NewWatermillLogger(log.Logger)
	marshaler := rstream.DefaultMarshallerUnmarshaller{}

	pub, err := rstream.NewPublisher(rstream.PublisherConfig{
		Client:     client,
		Marshaller: marshaler,
	}, logger)
	if err != nil {
		return nil, errors.Wrap(err, "redis bus: publisher")
	}
	sub, err := rstream.NewSubscriber(rstream.SubscriberConfig{
		Client:        client,
		Unmarshaller:  marshaler,
		ConsumerGroup: group,
		Consumer:      consumer,
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, errors.Wrap(err, "redis bus: subscriber")
	}
	return &Bus{pub: pub, sub: sub, closers: []func() error{pub.Close, sub.Close}}, nil
}

// Publish sends e on topic. A nil bus drops the event.
func (b *Bus) Publish(topic string, e Event) error {
	if b == nil || b.pub == nil {
		return nil
	}
	payload, err := e.Marshal()
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.pub.Publish(topic, msg); err != nil {
		return errors.Wrapf(err, "publish %s", topic)
	}
	return nil
}

// Subscribe decodes and acks messages on topic until ctx is done. Undecodable
// messages are logged and skipped.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan Event, error) {
	if b == nil || b.sub == nil {
		return nil, errors.New("subscribe: nil bus")
	}
	msgs, err := b.sub.Subscribe(ctx, topic)
	if err != nil {
		return nil, errors.Wrapf(err, "subscribe %s", topic)
	}

	out := make(chan Event, 64)
	go func() {
		defer close(out)
		for msg := range msgs {
			e, err := Unmarshal(msg.Payload)
			msg.Ack()
			if err != nil {
				log.Warn().Err(err).Str("topic", topic).Str("uuid", msg.UUID).Msg("dropping undecodable event")
				continue
			}
			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (b *Bus) Close() error {
	if b == nil {
		return nil
	}
	var firstErr error
	for _, c := range b.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
