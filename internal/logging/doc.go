// Package logging provides structured logging helpers for meetmcp.
//
// Everything logs through log/slog. This package keeps attribute names
// consistent and keeps secrets out of the output.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "calendar.list")
//	logger.Info("listing meetings", logging.Status(logging.StatusSuccess))
//
// Sanitize sensitive data before logging:
//
//	logger.Debug("token refreshed", "access_token", logging.SanitizeToken(tok.AccessToken))
//	logger.Info("meeting created", logging.UserHash(organizer))
//
// # Security Considerations
//
//   - OAuth tokens are never logged, only their length
//   - Email addresses are hashed so entries can be correlated without PII
//   - Handlers write to stderr because stdout carries the MCP stdio stream
package logging
