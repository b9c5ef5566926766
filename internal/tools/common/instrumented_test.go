package common

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetmcp/internal/instrumentation"
)

type stubInstrumentation struct {
	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger
}

func (s stubInstrumentation) Metrics() *instrumentation.Metrics { return s.metrics }
func (s stubInstrumentation) AuditLogger() *instrumentation.AuditLogger { return s.audit }

func newRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func TestInstrumentedToolHandler_NilRecorders(t *testing.T) {
	called := false
	wrapped := InstrumentedToolHandler("test_tool", stubInstrumentation{},
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			called = true
			return mcp.NewToolResultText("success"), nil
		})

	result, err := wrapped(context.Background(), newRequest(nil))
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "success", ResultText(result))
}

func TestInstrumentedToolHandler_PassesThroughErrors(t *testing.T) {
	wantErr := errors.New("boom")
	wrapped := InstrumentedToolHandler("test_tool", stubInstrumentation{},
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return nil, wantErr
		})

	result, err := wrapped(context.Background(), newRequest(nil))
	assert.ErrorIs(t, err, wantErr)
	assert.Nil(t, result)
}

func TestInstrumentedToolHandlerWithService_Audit(t *testing.T) {
	tests := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		want    []string
	}{
		{
			name: "success",
			handler: func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return mcp.NewToolResultText("ok"), nil
			},
			want: []string{"msg=tool_executed", "success=true", "service=calendar", "operation=get", "meeting_id=evt1"},
		},
		{
			name: "tool error result",
			handler: func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return mcp.NewToolResultError("not found"), nil
			},
			want: []string{"msg=tool_failed", "success=false", `error="not found"`},
		},
		{
			name: "go error",
			handler: func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return nil, errors.New("broken pipe")
			},
			want: []string{"msg=tool_failed", `error="broken pipe"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			audit := instrumentation.NewAuditLoggerWithConfig(
				slog.New(slog.NewTextHandler(&buf, nil)),
				instrumentation.AuditLoggingConfig{Enabled: true, IncludeArguments: true},
			)
			wrapped := InstrumentedToolHandlerWithService("get_meeting", instrumentation.ServiceCalendar,
				instrumentation.OperationGet, stubInstrumentation{audit: audit}, tt.handler)

			_, _ = wrapped(context.Background(), newRequest(map[string]any{ArgMeetingID: "evt1"}))

			out := buf.String()
			assert.Contains(t, out, "tool=get_meeting")
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}

func TestInstrumentedToolHandler_RecordsMetrics(t *testing.T) {
	ctx := context.Background()
	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: instrumentation.ExporterPrometheus,
		TracingExporter: instrumentation.ExporterNone,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })

	stub := stubInstrumentation{metrics: provider.Metrics()}
	ok := InstrumentedToolHandler("list_meetings", stub,
		func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("ok"), nil
		})
	failing := InstrumentedToolHandler("list_meetings", stub,
		func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultError("nope"), nil
		})

	_, _ = ok(ctx, newRequest(nil))
	_, _ = failing(ctx, newRequest(nil))

	rec := httptest.NewRecorder()
	provider.PrometheusHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)

	assert.Contains(t, string(body), "mcp_tool_invocations_total")
	assert.Contains(t, string(body), `status="success"`)
	assert.Contains(t, string(body), `status="error"`)
	assert.Contains(t, string(body), `tool="list_meetings"`)
}

func TestResultText(t *testing.T) {
	assert.Empty(t, ResultText(nil))
	assert.Equal(t, "hello", ResultText(mcp.NewToolResultText("hello")))

	multi := &mcp.CallToolResult{Content: []mcp.Content{
		mcp.NewTextContent("a"),
		mcp.NewImageContent("Zm9v", "image/png"),
		mcp.NewTextContent("b"),
	}}
	assert.Equal(t, "a\nb", ResultText(multi))
}
