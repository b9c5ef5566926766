// Package server provides the MCP server context and the HTTP plumbing
// around it.
//
// # Key Components
//
// ServerContext owns the single Google Calendar client. The client is built
// lazily: the first tool call loads the stored token, refreshes it when it
// has expired and falls back to the loopback authorization flow when neither
// works. A mutex keeps concurrent tool calls from starting two flows.
//
// HTTPServer serves the streamable HTTP transport on a loopback address with
// the health endpoints (/healthz, /readyz, /healthz/detailed) beside it.
//
// MetricsServer exposes Prometheus metrics on a separate port.
package server
