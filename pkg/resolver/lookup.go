package resolver

import (
	"context"

	sageerrors "github.com/Ramsey-B/sage/pkg/errors"
	"github.com/Ramsey-B/sage/pkg/metrics"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Lookup outcomes recorded besides the error kinds
const (
	OutcomeResolved = "resolved"
	OutcomeCached   = "cached"
)

// Lookup resolves the identity of req.Query and then finds its offers.
// Identity resolution always completes before any crawl starts.
func (r *Resolver) Lookup(ctx context.Context, req models.LookupRequest) (*models.LookupResult, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Resolver.Lookup")
	defer span.End()

	start := r.now()
	result, err := r.lookup(ctx, req)
	elapsed := r.now().Sub(start).Seconds()
	if err != nil {
		tracing.Fail(ctx, err)
		metrics.RecordLookup(string(sageerrors.KindOf(err)), elapsed)
		r.log.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"request_id": req.RequestID,
			"query":      req.Query,
			"kind":       sageerrors.KindOf(err),
		}).Error("Lookup failed")
		return nil, err
	}

	outcome := OutcomeResolved
	if result.Cached {
		outcome = OutcomeCached
	}
	metrics.RecordLookup(outcome, elapsed)
	return result, nil
}

func (r *Resolver) lookup(ctx context.Context, req models.LookupRequest) (*models.LookupResult, error) {
	identity, err := r.ResolveIdentity(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	offers, cached, err := r.FindOffers(ctx, identity)
	if err != nil {
		return nil, err
	}

	return &models.LookupResult{
		RequestID: req.RequestID,
		UserID:    req.UserID,
		Query:     req.Query,
		Identity:  identity,
		Offers:    offers,
		Cached:    cached,
		Completed: r.now().UTC(),
	}, nil
}
