package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LucasMargets11/morrisonv2/internal/domain"
)

const createdEvent = `{"Records":[{"eventName":"ObjectCreated:Put","s3":{"bucket":{"name":"media"},"object":{"key":"properties/original/1/a.jpg"}}}]}`

// mockMessageReader replays a fixed set of messages, then blocks until cancelled.
type mockMessageReader struct {
	messages  []kafka.Message
	committed []int64
	cancel    context.CancelFunc
	fetchErr  error
}

func (m *mockMessageReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if m.fetchErr != nil {
		return kafka.Message{}, m.fetchErr
	}
	if len(m.messages) == 0 {
		m.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := m.messages[0]
	m.messages = m.messages[1:]
	return msg, nil
}

func (m *mockMessageReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, msg := range msgs {
		m.committed = append(m.committed, msg.Offset)
	}
	return nil
}

func TestKafkaConsumer_Run(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &mockMessageReader{
		cancel: cancel,
		messages: []kafka.Message{
			{Offset: 1, Value: []byte(createdEvent)},
			{Offset: 2, Value: []byte("garbage")},
			{Offset: 3, Value: []byte(`{"Records":[]}`)},
		},
	}

	var handled [][]domain.Notification
	consumer := NewKafkaConsumer(reader, func(ctx context.Context, n []domain.Notification) error {
		handled = append(handled, n)
		return nil
	}, 0)

	require.NoError(t, consumer.Run(ctx))
	assert.Equal(t, [][]domain.Notification{{{Bucket: "media", Key: "properties/original/1/a.jpg"}}}, handled)
	assert.Equal(t, []int64{1, 2, 3}, reader.committed)
}

func TestKafkaConsumer_RetriesThenCommits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &mockMessageReader{cancel: cancel, messages: []kafka.Message{{Offset: 5, Value: []byte(createdEvent)}}}

	attempts := 0
	consumer := NewKafkaConsumer(reader, func(ctx context.Context, n []domain.Notification) error {
		attempts++
		return errors.New("store unavailable")
	}, 3)
	consumer.SetRetryDelay(0)

	require.NoError(t, consumer.Run(ctx))
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int64{5}, reader.committed)
}

func TestKafkaConsumer_RecoversOnRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &mockMessageReader{cancel: cancel, messages: []kafka.Message{{Offset: 8, Value: []byte(createdEvent)}}}

	attempts := 0
	consumer := NewKafkaConsumer(reader, func(ctx context.Context, n []domain.Notification) error {
		attempts++
		if attempts == 1 {
			return errors.New("timeout")
		}
		return nil
	}, 5)
	consumer.SetRetryDelay(0)

	require.NoError(t, consumer.Run(ctx))
	assert.Equal(t, 2, attempts)
	assert.Equal(t, []int64{8}, reader.committed)
}

func TestKafkaConsumer_FetchError(t *testing.T) {
	reader := &mockMessageReader{fetchErr: errors.New("broker unreachable")}
	consumer := NewKafkaConsumer(reader, func(ctx context.Context, n []domain.Notification) error { return nil }, 1)

	assert.ErrorContains(t, consumer.Run(context.Background()), "broker unreachable")
}
