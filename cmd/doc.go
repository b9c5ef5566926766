// Package cmd implements the command-line interface for meetmcp.
//
// This package provides the following commands:
//   - serve: Start the MCP server (default when no subcommand is given)
//   - auth: Authorize with Google now instead of on the first tool call
//   - auth status: Show whether a usable token is stored
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
package cmd
