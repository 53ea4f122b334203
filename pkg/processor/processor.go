// Package processor handles lookup request messages: it runs the lookup and
// publishes the outcome. Requests that failed for a reason worth retrying
// are also parked on the dead letter queue.
package processor

import (
	"context"

	"github.com/Gobusters/ectologger"

	sageerrors "github.com/Ramsey-B/sage/pkg/errors"
	"github.com/Ramsey-B/sage/pkg/kafka"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/redis"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Lookuper runs a lookup
type Lookuper interface {
	Lookup(ctx context.Context, req models.LookupRequest) (*models.LookupResult, error)
}

// Notifier publishes lookup outcomes
type Notifier interface {
	EmitCompleted(ctx context.Context, result *models.LookupResult) error
	EmitFailed(ctx context.Context, req models.LookupRequest, lookupErr error) error
}

// DeadLetters stores failed requests for later replay
type DeadLetters interface {
	Add(ctx context.Context, entry *redis.DLQEntry) (string, error)
}

// Processor handles lookup request messages
type Processor struct {
	logger   ectologger.Logger
	resolver Lookuper
	notifier Notifier
	dlq      DeadLetters
}

// NewProcessor creates a new lookup processor. dlq may be nil.
func NewProcessor(logger ectologger.Logger, resolver Lookuper, notifier Notifier, dlq DeadLetters) *Processor {
	return &Processor{
		logger:   logger,
		resolver: resolver,
		notifier: notifier,
		dlq:      dlq,
	}
}

// ProcessMessage runs the lookup a message asks for. A malformed message is
// logged and skipped. A failed lookup is reported, not retried; only a
// failure to publish the outcome is returned, which leaves the message
// uncommitted.
func (p *Processor) ProcessMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.ProcessMessage")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"key":    msg.Key,
		"topic":  msg.Topic,
		"offset": msg.Offset,
	})

	req, err := msg.ParseLookupRequest()
	if err != nil {
		log.WithError(err).Error("Skipping malformed lookup request")
		return nil
	}
	log = log.WithFields(map[string]any{
		"request_id": req.RequestID,
		"user_id":    req.UserID,
	})

	result, err := p.resolver.Lookup(ctx, req)
	if err != nil {
		p.deadLetter(ctx, req, err)
		return p.notifier.EmitFailed(ctx, req, err)
	}

	log.WithFields(map[string]any{
		"variation_id": result.Identity.Variation.ID,
		"offers":       len(result.Offers),
		"cached":       result.Cached,
	}).Info("Lookup completed")
	return p.notifier.EmitCompleted(ctx, result)
}

// deadLetter parks requests that failed on a collaborator or on capacity.
// Input errors would fail the same way again and are not kept.
func (p *Processor) deadLetter(ctx context.Context, req models.LookupRequest, lookupErr error) {
	kind := sageerrors.KindOf(lookupErr)
	if p.dlq == nil || (kind != sageerrors.KindCollaborator && kind != sageerrors.KindCapacity) {
		return
	}

	id, err := p.dlq.Add(ctx, &redis.DLQEntry{
		Request:      req,
		Kind:         string(kind),
		ErrorMessage: lookupErr.Error(),
		TraceID:      tracing.GetTraceID(ctx),
	})
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to dead-letter lookup request")
		return
	}
	p.logger.WithContext(ctx).WithFields(map[string]any{
		"request_id": req.RequestID,
		"dlq_id":     id,
		"kind":       kind,
	}).Warn("Lookup request dead-lettered")
}
