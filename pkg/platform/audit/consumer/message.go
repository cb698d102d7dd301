// Package consumer materializes audit events from the Kafka audit topic into
// a queryable audit.Store.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "github.com/KUNALSHAWW/SentinelAI-AML/pkg/platform/audit"
)

// Message is a transport-neutral view of one Kafka record.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
}

// Handler processes one message. A returned error means the message was not
// durably handled and must not be committed.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg *Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg *Message) error { return f(ctx, msg) }

func fromRecord(r *kgo.Record) *Message {
	headers := make(map[string]string, len(r.Headers))
	for _, h := range r.Headers {
		headers[h.Key] = string(h.Value)
	}
	return &Message{
		Topic:     r.Topic,
		Partition: r.Partition,
		Offset:    r.Offset,
		Key:       r.Key,
		Value:     r.Value,
		Headers:   headers,
	}
}

// decodeEvent parses the JSON payload written by the kafka audit store and
// fills the category from the header or the action when it is missing.
func decodeEvent(msg *Message) (audit.Event, error) {
	var event audit.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return audit.Event{}, fmt.Errorf("decode audit event: %w", err)
	}
	if event.Category == "" {
		if c := msg.Headers["category"]; c != "" {
			event.Category = audit.EventCategory(c)
		} else {
			event.Category = audit.AuditEvent(event.Action).Category()
		}
	}
	if event.RunID == "" && len(msg.Key) > 0 {
		event.RunID = string(msg.Key)
	}
	return event, nil
}
