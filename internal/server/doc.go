// Package server exposes the Gmail AI agent as a REST API.
//
// ServerContext owns every external handle: the session token manager, the
// OAuth code exchanger, the mailbox factory, the email cache, the vector
// store and the retrieval and analysis pipelines. It is built once by the
// serve command and closed on shutdown.
//
// HTTPServer is an echo router. Routes under /emails and /ai, plus /auth/me
// and /auth/refresh, require an "Authorization: Bearer <session token>"
// header; a missing or invalid token is rejected with 401 before the handler
// runs. Failures are written as {"detail": "..."} with the status derived
// from the apperr kind.
//
// HealthChecker serves /healthz, /readyz and /healthz/detailed. Readiness
// probes the cache and vector store when they support it. MetricsServer
// serves Prometheus metrics on a dedicated port.
package server
