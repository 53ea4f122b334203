// Package events publishes lookup outcome notifications
package events

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	sageerrors "github.com/Ramsey-B/sage/pkg/errors"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Publisher writes one keyed event
type Publisher interface {
	Publish(ctx context.Context, key, eventType, schemaVersion string, payload any) error
}

// Emitter turns lookup outcomes into events
type Emitter struct {
	publisher Publisher
	logger    ectologger.Logger
	now       func() time.Time
}

func NewEmitter(publisher Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (e *Emitter) base(ctx context.Context, eventType EventType, requestID, userID string) BaseEvent {
	return BaseEvent{
		EventType:     eventType,
		SchemaVersion: SchemaVersion,
		RequestID:     requestID,
		UserID:        userID,
		Timestamp:     e.now().UTC(),
		TraceID:       tracing.GetTraceID(ctx),
	}
}

// EmitCompleted publishes a lookup.completed event for result
func (e *Emitter) EmitCompleted(ctx context.Context, result *models.LookupResult) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitCompleted")
	defer span.End()

	offers := result.Offers
	if offers == nil {
		offers = []models.Offer{}
	}
	event := &LookupCompletedEvent{
		BaseEvent: e.base(ctx, EventTypeLookupCompleted, result.RequestID, result.UserID),
		Query:     result.Query,
		Identity:  result.Identity,
		Offers:    offers,
		Cached:    result.Cached,
	}

	if err := e.publisher.Publish(ctx, result.RequestID, string(EventTypeLookupCompleted), SchemaVersion, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit lookup.completed event")
		return err
	}

	return nil
}

// EmitFailed publishes a lookup.failed event classifying lookupErr
func (e *Emitter) EmitFailed(ctx context.Context, req models.LookupRequest, lookupErr error) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitFailed")
	defer span.End()

	kind := sageerrors.KindOf(lookupErr)
	event := &LookupFailedEvent{
		BaseEvent: e.base(ctx, EventTypeLookupFailed, req.RequestID, req.UserID),
		Query:     req.Query,
		Kind:      string(kind),
		Message:   lookupErr.Error(),
		Retryable: kind == sageerrors.KindCapacity,
	}

	if err := e.publisher.Publish(ctx, req.RequestID, string(EventTypeLookupFailed), SchemaVersion, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit lookup.failed event")
		return err
	}

	return nil
}
