package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	sageerrors "github.com/Ramsey-B/sage/pkg/errors"
	"github.com/Ramsey-B/sage/pkg/models"
)

type published struct {
	key       string
	eventType string
	payload   any
}

type fakePublisher struct {
	events []published
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, key, eventType, _ string, payload any) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, published{key: key, eventType: eventType, payload: payload})
	return nil
}

func newTestEmitter(t *testing.T, pub Publisher) *Emitter {
	zapLogger, err := zap.NewDevelopment()
	require.NoError(t, err)
	e := NewEmitter(pub, zapadapter.NewZapEctoLogger(zapLogger, nil))
	e.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return e
}

func TestEmitter_EmitCompleted(t *testing.T) {
	pub := &fakePublisher{}
	e := newTestEmitter(t, pub)

	err := e.EmitCompleted(context.Background(), &models.LookupResult{RequestID: "r-1", UserID: "u-1", Query: "iPhone 16", Cached: true})
	require.NoError(t, err)
	require.Len(t, pub.events, 1)

	assert.Equal(t, "r-1", pub.events[0].key)
	assert.Equal(t, string(EventTypeLookupCompleted), pub.events[0].eventType)

	event, ok := pub.events[0].payload.(*LookupCompletedEvent)
	require.True(t, ok)
	assert.Equal(t, "u-1", event.UserID)
	assert.True(t, event.Cached)
	assert.NotNil(t, event.Offers)
	assert.Equal(t, SchemaVersion, event.SchemaVersion)
}

func TestEmitter_EmitFailed(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantKind      string
		wantRetryable bool
	}{
		{name: "input", err: sageerrors.NewInputError("query", "empty"), wantKind: "input"},
		{name: "capacity", err: sageerrors.NewCapacityError(5, "30s"), wantKind: "capacity", wantRetryable: true},
		{name: "collaborator", err: sageerrors.NewCollaboratorError(sageerrors.Oracle, "extract_fields", errors.New("timeout")), wantKind: "collaborator"},
		{name: "internal", err: errors.New("boom"), wantKind: "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{}
			e := newTestEmitter(t, pub)

			err := e.EmitFailed(context.Background(), models.LookupRequest{RequestID: "r-1", Query: "q"}, tt.err)
			require.NoError(t, err)
			require.Len(t, pub.events, 1)

			event, ok := pub.events[0].payload.(*LookupFailedEvent)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, event.Kind)
			assert.Equal(t, tt.wantRetryable, event.Retryable)
			assert.Equal(t, tt.err.Error(), event.Message)
		})
	}
}

func TestEmitter_PublishError(t *testing.T) {
	e := newTestEmitter(t, &fakePublisher{err: errors.New("broker down")})

	err := e.EmitCompleted(context.Background(), &models.LookupResult{RequestID: "r-1"})
	assert.Error(t, err)
}
