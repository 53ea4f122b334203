package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	sageerrors "github.com/Ramsey-B/sage/pkg/errors"
	"github.com/Ramsey-B/sage/pkg/kafka"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/redis"
)

type fakeLookuper struct {
	err      error
	requests []models.LookupRequest
}

func (f *fakeLookuper) Lookup(_ context.Context, req models.LookupRequest) (*models.LookupResult, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &models.LookupResult{
		RequestID: req.RequestID,
		Query:     req.Query,
		Identity:  &models.Identity{Variation: models.Variation{ID: "v-1"}},
		Offers:    []models.Offer{{ID: "o-1"}},
	}, nil
}

type fakeNotifier struct {
	completed []*models.LookupResult
	failed    []error
	err       error
}

func (f *fakeNotifier) EmitCompleted(_ context.Context, result *models.LookupResult) error {
	f.completed = append(f.completed, result)
	return f.err
}

func (f *fakeNotifier) EmitFailed(_ context.Context, _ models.LookupRequest, lookupErr error) error {
	f.failed = append(f.failed, lookupErr)
	return f.err
}

type fakeDLQ struct {
	entries []*redis.DLQEntry
}

func (f *fakeDLQ) Add(_ context.Context, entry *redis.DLQEntry) (string, error) {
	f.entries = append(f.entries, entry)
	return "1-0", nil
}

func newTestProcessor(t *testing.T, lookuper *fakeLookuper, notifier *fakeNotifier, dlq *fakeDLQ) *Processor {
	zapLogger, err := zap.NewDevelopment()
	require.NoError(t, err)
	return NewProcessor(zapadapter.NewZapEctoLogger(zapLogger, nil), lookuper, notifier, dlq)
}

func TestProcessor_ProcessMessage(t *testing.T) {
	tests := []struct {
		name          string
		value         string
		lookupErr     error
		wantLookups   int
		wantCompleted int
		wantFailed    int
		wantDLQ       int
	}{
		{name: "completed", value: `{"request_id":"r-1","query":"iPhone 16"}`, wantLookups: 1, wantCompleted: 1},
		{name: "malformed is skipped", value: `not json`},
		{name: "blank query is skipped", value: `{"query":""}`},
		{name: "input error is reported only", value: `{"query":"?"}`, lookupErr: sageerrors.NewInputError("query", "empty"), wantLookups: 1, wantFailed: 1},
		{name: "collaborator error is dead-lettered", value: `{"query":"iPhone 16"}`, lookupErr: sageerrors.NewCollaboratorError(sageerrors.Oracle, "extract_fields", errors.New("timeout")), wantLookups: 1, wantFailed: 1, wantDLQ: 1},
		{name: "capacity error is dead-lettered", value: `{"query":"iPhone 16"}`, lookupErr: sageerrors.NewCapacityError(5, "30s"), wantLookups: 1, wantFailed: 1, wantDLQ: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookuper := &fakeLookuper{err: tt.lookupErr}
			notifier := &fakeNotifier{}
			dlq := &fakeDLQ{}
			p := newTestProcessor(t, lookuper, notifier, dlq)

			err := p.ProcessMessage(context.Background(), &kafka.IncomingMessage{Key: "k", Value: []byte(tt.value)})
			require.NoError(t, err)

			assert.Len(t, lookuper.requests, tt.wantLookups)
			assert.Len(t, notifier.completed, tt.wantCompleted)
			assert.Len(t, notifier.failed, tt.wantFailed)
			assert.Len(t, dlq.entries, tt.wantDLQ)
		})
	}
}

func TestProcessor_DeadLetterEntry(t *testing.T) {
	lookupErr := sageerrors.NewCapacityError(5, "30s")
	dlq := &fakeDLQ{}
	p := newTestProcessor(t, &fakeLookuper{err: lookupErr}, &fakeNotifier{}, dlq)

	err := p.ProcessMessage(context.Background(), &kafka.IncomingMessage{Value: []byte(`{"request_id":"r-9","user_id":"u-1","query":"Galaxy S24"}`)})
	require.NoError(t, err)
	require.Len(t, dlq.entries, 1)

	entry := dlq.entries[0]
	assert.Equal(t, "r-9", entry.Request.RequestID)
	assert.Equal(t, "capacity", entry.Kind)
	assert.Equal(t, lookupErr.Error(), entry.ErrorMessage)
}

func TestProcessor_PublishFailureIsReturned(t *testing.T) {
	p := newTestProcessor(t, &fakeLookuper{}, &fakeNotifier{err: errors.New("broker down")}, nil)

	err := p.ProcessMessage(context.Background(), &kafka.IncomingMessage{Value: []byte(`{"query":"iPhone 16"}`)})
	assert.Error(t, err)
}
