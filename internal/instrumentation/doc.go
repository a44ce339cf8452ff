// Package instrumentation provides OpenTelemetry metrics and tracing for the
// gmail-ai-agent HTTP API.
//
// # Metrics
//
// HTTP:
//   - http_requests_total: requests by method, route template, and status
//   - http_request_duration_seconds: request latency histogram
//
// Google APIs:
//   - google_api_operations_total: calls by service, operation, and status
//   - google_api_operation_duration_seconds: call latency histogram
//
// Authentication:
//   - oauth_auth_total: provider credential validations by result
//   - session_refresh_total: session token refreshes by result
//
// Language model and retrieval:
//   - llm_requests_total, llm_request_duration_seconds: chat and embedding calls by model
//   - vector_operations_total, vector_operation_duration_seconds: upserts and queries
//
// # Configuration
//
// DefaultConfig reads:
//   - INSTRUMENTATION_ENABLED (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE
//   - OTEL_TRACES_SAMPLER_ARG (default: 0.1)
//   - OTEL_SERVICE_NAME (default: gmail-ai-agent), OTEL_SERVICE_INSTANCE_ID (default: hostname)
//
// # Example
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.ConfigFromEnv(version))
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordLLMRequest(ctx, "chat", "gpt-3.5-turbo", instrumentation.StatusSuccess, time.Since(start))
package instrumentation
