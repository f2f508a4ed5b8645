package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordNotification(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.NotificationsTotal.WithLabelValues("telegram", "error"))
	RecordNotification("telegram", errors.New("boom"))
	after := testutil.ToFloat64(DefaultMetrics.NotificationsTotal.WithLabelValues("telegram", "error"))
	assert.Equal(t, before+1, after)
}

func TestSetStreamState(t *testing.T) {
	SetStreamState(2)
	assert.Equal(t, 2.0, testutil.ToFloat64(DefaultMetrics.StreamState))
}

func TestHandler_ServesAgentMetrics(t *testing.T) {
	RecordSwapDecoded()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "solana_mev_agent_stream_swaps_decoded_total"))
}

func TestInitTracer_NoEndpoint(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), "")
	require.NoError(t, err)
	shutdown()

	_, span := Tracer().Start(context.Background(), "noop")
	RecordError(context.Background(), errors.New("ignored"))
	span.End()
}
