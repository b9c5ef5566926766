// Package instrumentation provides OpenTelemetry metrics, tracing and
// audit logging for the meetmcp server.
//
// # Metrics
//
// MCP tools:
//   - mcp_tool_invocations_total: tool invocations by tool name and status
//   - mcp_tool_duration_seconds: tool execution durations
//
// Google Calendar API:
//   - google_api_operations_total: operations by service, operation, status
//   - google_api_operation_duration_seconds: operation durations
//
// OAuth:
//   - oauth_auth_total: completed authorizations by result
//   - oauth_token_refresh_total: refresh attempts by result
//   - oauth_auth_flow_duration_seconds: loopback flow durations by outcome
//
// HTTP (streamable-http transport only):
//   - http_requests_total, http_request_duration_seconds
//
// # Tracing
//
// Spans are created for tool invocations (tool.<name>), Calendar API calls
// (google.calendar.<operation>) and each authorization flow run
// (oauth.authorization_flow).
//
// # Configuration
//
// LoadConfig reads:
//   - INSTRUMENTATION_ENABLED (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE
//   - OTEL_TRACES_SAMPLER_ARG (default: 0.1)
//   - OTEL_SERVICE_NAME (default: meetmcp)
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_ARGUMENTS
//
// The stdout exporters write to stdout and must not be combined with the
// stdio MCP transport.
//
// # Example Usage
//
//	cfg, err := instrumentation.LoadConfig()
//	if err != nil {
//		return err
//	}
//	cfg.ServiceVersion = version
//	provider, err := instrumentation.NewProvider(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordToolInvocation(ctx, "list_meetings", instrumentation.StatusSuccess, time.Since(start))
package instrumentation
