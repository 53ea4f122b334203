package events

import (
	"time"

	"github.com/Ramsey-B/sage/pkg/models"
)

// EventType defines the type of event
type EventType string

const (
	EventTypeLookupCompleted EventType = "lookup.completed"
	EventTypeLookupFailed    EventType = "lookup.failed"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	RequestID     string    `json:"request_id,omitempty"`
	UserID        string    `json:"user_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	TraceID       string    `json:"trace_id,omitempty"`
}

// LookupCompletedEvent carries the identity and offers found for a query
type LookupCompletedEvent struct {
	BaseEvent
	Query    string           `json:"query"`
	Identity *models.Identity `json:"identity,omitempty"`
	Offers   []models.Offer   `json:"offers"`
	Cached   bool             `json:"cached"`
}

// LookupFailedEvent reports why a query could not be resolved.
// Retryable is set for capacity failures.
type LookupFailedEvent struct {
	BaseEvent
	Query     string `json:"query"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}
