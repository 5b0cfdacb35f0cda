package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/contracts"
)

type KafkaConsumer struct {
	reader *kafka.Reader
}

func NewKafkaConsumer(brokers []string, groupID string, topics []string) (*KafkaConsumer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka consumer requires at least one broker")
	}
	if groupID == "" {
		return nil, fmt.Errorf("kafka consumer requires group id")
	}
	if len(topics) == 0 {
		return nil, fmt.Errorf("kafka consumer requires at least one topic")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		GroupTopics: topics,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
	})
	return &KafkaConsumer{reader: reader}, nil
}

// Receive returns the next envelope, or nil when no message arrived within
// the poll window. Malformed payloads are reported as errors so the worker
// can route them to the DLQ.
func (c *KafkaConsumer) Receive(ctx context.Context) (*contracts.EventEnvelope, error) {
	readCtx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	msg, err := c.reader.ReadMessage(readCtx)
	cancel()
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return nil, nil
		case errors.Is(err, context.Canceled):
			return nil, ctx.Err()
		default:
			return nil, err
		}
	}
	var envelope contracts.EventEnvelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope from %s: %w", msg.Topic, err)
	}
	return &envelope, nil
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
