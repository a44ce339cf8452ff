// Package logging provides structured logging helpers for gmail-ai-agent.
//
// All packages log through log/slog. This package keeps attribute names
// consistent and makes sure provider credentials never reach the log output.
//
// # Usage Patterns
//
//	logger := logging.WithOperation(slog.Default(), "emails.fetch")
//	logger.Info("fetched emails",
//	    logging.Count(len(emails)),
//	    logging.Status(logging.StatusSuccess))
//
// Tokens are reduced to a length indicator before logging:
//
//	logger.Debug("session issued", "token", logging.SanitizeToken(tok))
//
// Pipelines that accept a Logger (rather than *slog.Logger) can be handed
// NewSlogAdapter(nil) in production code and Discard() in tests.
package logging
