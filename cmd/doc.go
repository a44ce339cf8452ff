// Package cmd implements the command-line interface for gmail-ai-agent.
//
// This package provides the following commands:
//   - serve: Start the REST API and the metrics server
//   - token: Issue or inspect a session token for a set of Google credentials
//   - version: Display version information
//
// The serve command is the default command when no subcommand is specified.
// Every command first loads a .env file (see --env-file); flags that are not
// set explicitly fall back to environment variables.
package cmd
