// Package common holds the pieces every MCP tool shares: argument parsing
// and the instrumentation wrapper that adds spans, metrics and audit
// logging around a tool handler.
package common
