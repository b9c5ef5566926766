package instrumentation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("test"))
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func counterValue(t *testing.T, data metricdata.Aggregation, key, value string) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum, got %T", data)
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			return dp.Value
		}
	}
	return 0
}

func histogramCount(t *testing.T, data metricdata.Aggregation) uint64 {
	t.Helper()
	hist, ok := data.(metricdata.Histogram[float64])
	require.True(t, ok, "expected float64 histogram, got %T", data)
	var total uint64
	for _, dp := range hist.DataPoints {
		total += dp.Count
	}
	return total
}

func TestMetrics_RecordToolInvocation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordToolInvocation(ctx, "list_meetings", StatusSuccess, 100*time.Millisecond)
	m.RecordToolInvocation(ctx, "list_meetings", StatusSuccess, 120*time.Millisecond)
	m.RecordToolInvocation(ctx, "create_meeting", StatusError, 50*time.Millisecond)

	data := collect(t, reader)
	assert.Equal(t, int64(2), counterValue(t, data["mcp_tool_invocations_total"], attrTool, "list_meetings"))
	assert.Equal(t, int64(1), counterValue(t, data["mcp_tool_invocations_total"], attrTool, "create_meeting"))
	assert.Equal(t, uint64(3), histogramCount(t, data["mcp_tool_duration_seconds"]))
}

func TestMetrics_RecordGoogleAPIOperation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordGoogleAPIOperation(ctx, ServiceCalendar, OperationList, StatusSuccess, 200*time.Millisecond)
	m.RecordGoogleAPIOperation(ctx, ServiceCalendar, OperationCreate, StatusError, 500*time.Millisecond)

	data := collect(t, reader)
	assert.Equal(t, int64(1), counterValue(t, data["google_api_operations_total"], attrOperation, OperationList))
	assert.Equal(t, int64(1), counterValue(t, data["google_api_operations_total"], attrOperation, OperationCreate))
}

func TestMetrics_RecordAuthFlow(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordAuthFlow(ctx, AuthFlowSucceeded, 20*time.Second)
	m.RecordAuthFlow(ctx, AuthFlowTimedOut, 5*time.Minute)
	m.RecordAuthFlow(ctx, AuthFlowNoPort, 0)

	data := collect(t, reader)
	assert.Equal(t, uint64(3), histogramCount(t, data["oauth_auth_flow_duration_seconds"]))
	assert.Equal(t, int64(1), counterValue(t, data["oauth_auth_total"], attrResult, OAuthResultSuccess))
	assert.Equal(t, int64(2), counterValue(t, data["oauth_auth_total"], attrResult, OAuthResultFailure))
}

func TestMetrics_RecordOAuthTokenRefresh(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordOAuthTokenRefresh(ctx, OAuthResultSuccess)
	m.RecordOAuthTokenRefresh(ctx, OAuthResultFailure)
	m.RecordOAuthTokenRefresh(ctx, OAuthResultFailure)

	data := collect(t, reader)
	assert.Equal(t, int64(1), counterValue(t, data["oauth_token_refresh_total"], attrResult, OAuthResultSuccess))
	assert.Equal(t, int64(2), counterValue(t, data["oauth_token_refresh_total"], attrResult, OAuthResultFailure))
}

func TestMetrics_RecordHTTPRequest(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordHTTPRequest(ctx, "POST", "/mcp", 200, 10*time.Millisecond)
	m.RecordHTTPRequest(ctx, "POST", "/mcp", 500, 10*time.Millisecond)

	data := collect(t, reader)
	assert.Equal(t, int64(1), counterValue(t, data["http_requests_total"], attrStatus, "500"))
}

func TestMetrics_NoOp(t *testing.T) {
	ctx := context.Background()

	// Neither a zero value nor a nil pointer should panic.
	for _, m := range []*Metrics{{}, nil} {
		m.RecordHTTPRequest(ctx, "GET", "/mcp", 200, time.Millisecond)
		m.RecordGoogleAPIOperation(ctx, ServiceCalendar, OperationGet, StatusSuccess, time.Millisecond)
		m.RecordOAuthAuth(ctx, OAuthResultSuccess)
		m.RecordOAuthTokenRefresh(ctx, OAuthResultExpired)
		m.RecordAuthFlow(ctx, AuthFlowFailed, time.Second)
		m.RecordToolInvocation(ctx, "get_meeting", StatusSuccess, time.Millisecond)
	}
}
