package observability

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestContext(t *testing.T) {
	reqCtx := NewRequestContextWithID(nil, "", "create_connection")
	require.NotEmpty(t, reqCtx.RequestID)
	assert.Equal(t, "create_connection", reqCtx.Operation)
	assert.NotNil(t, reqCtx.Logger)

	ctx := WithRequestContext(context.Background(), reqCtx)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, reqCtx.RequestID, got.RequestID)
	assert.NotNil(t, LoggerFromContext(ctx))

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
	assert.Equal(t, slog.Default(), LoggerFromContext(context.Background()))
}

func TestRecordMutation(t *testing.T) {
	before := testutil.ToFloat64(mutationTotal.WithLabelValues("test_op", ResultError))
	RecordMutation("test_op", errors.New("boom"), time.Millisecond)
	RecordMutation("test_op", nil, time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(mutationTotal.WithLabelValues("test_op", ResultError)))
	assert.GreaterOrEqual(t, testutil.ToFloat64(mutationTotal.WithLabelValues("test_op", ResultOK)), 1.0)
}

func TestRecordRecalc(t *testing.T) {
	before := testutil.ToFloat64(recalcStaleSkips)
	RecordRecalc(RecalcStats{Iterations: 12, NodesWritten: 3, SkippedStale: 2, Duration: time.Second}, nil)
	assert.Equal(t, before+2, testutil.ToFloat64(recalcStaleSkips))
}
