package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/propagation"

	"github.com/Ramsey-B/sage/pkg/models"
)

// Header keys
const (
	HeaderEventType     = "event_type"
	HeaderSchemaVersion = "schema_version"
	HeaderTraceParent   = "traceparent"
	HeaderTraceState    = "tracestate"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string
}

func newIncomingMessage(msg kafka.Message) *IncomingMessage {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return &IncomingMessage{
		Key:       string(msg.Key),
		Value:     msg.Value,
		Headers:   headers,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		Topic:     msg.Topic,
	}
}

// ParseLookupRequest decodes the message value as a lookup request.
// The message key stands in for a missing request id.
func (m *IncomingMessage) ParseLookupRequest() (models.LookupRequest, error) {
	var req models.LookupRequest
	if err := json.Unmarshal(m.Value, &req); err != nil {
		return req, fmt.Errorf("invalid lookup request: %w", err)
	}
	if strings.TrimSpace(req.Query) == "" {
		return req, fmt.Errorf("invalid lookup request: query is empty")
	}
	if req.RequestID == "" {
		req.RequestID = m.Key
	}
	return req, nil
}

// TraceContext returns ctx carrying the W3C trace context found in the headers
func (m *IncomingMessage) TraceContext(ctx context.Context) context.Context {
	if m.Headers[HeaderTraceParent] == "" {
		return ctx
	}
	return propagation.TraceContext{}.Extract(ctx, propagation.MapCarrier(m.Headers))
}
