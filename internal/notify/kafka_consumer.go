package notify

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"github.com/LucasMargets11/morrisonv2/internal/domain"
)

const (
	DefaultMaxAttempts = 3
	defaultRetryDelay  = 2 * time.Second
)

// Handler processes the notifications carried by one message.
type Handler func(ctx context.Context, notifications []domain.Notification) error

// MessageReader is the part of *kafka.Reader used by the consumer.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewKafkaReader creates a consumer-group reader for the bucket notification topic.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

// KafkaConsumer feeds bucket notifications from a Kafka topic to a handler. A message
// is committed after it was handled, or after it failed MaxAttempts times, so
// delivery is at least once.
type KafkaConsumer struct {
	reader      MessageReader
	handle      Handler
	maxAttempts int
	retryDelay  time.Duration
}

// NewKafkaConsumer creates a consumer. A non-positive maxAttempts uses DefaultMaxAttempts.
func NewKafkaConsumer(reader MessageReader, handle Handler, maxAttempts int) *KafkaConsumer {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &KafkaConsumer{
		reader:      reader,
		handle:      handle,
		maxAttempts: maxAttempts,
		retryDelay:  defaultRetryDelay,
	}
}

// SetRetryDelay changes the pause between attempts on the same message.
func (c *KafkaConsumer) SetRetryDelay(d time.Duration) {
	c.retryDelay = d
}

// Run consumes until ctx is cancelled, which is a clean stop.
func (c *KafkaConsumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		c.process(ctx, msg)
		if ctx.Err() != nil {
			return nil
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (c *KafkaConsumer) process(ctx context.Context, msg kafka.Message) {
	logger := log.WithFields(log.Fields{
		"topic":     msg.Topic,
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	notifications, err := ParseS3Event(msg.Value)
	if err != nil {
		logger.WithError(err).Error("Dropping malformed message")
		return
	}
	if len(notifications) == 0 {
		return
	}

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err = c.handle(ctx, notifications)
		if err == nil {
			return
		}
		logger.WithError(err).WithField("attempt", attempt).Warn("Failed to handle notifications")

		if attempt < c.maxAttempts {
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.retryDelay):
			}
		}
	}
	logger.WithError(err).Error("Giving up on message")
}
