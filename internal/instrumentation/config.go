package instrumentation

import (
	"os"
	"strconv"
)

// DefaultServiceName is reported as service.name when OTEL_SERVICE_NAME is unset.
const DefaultServiceName = "gmail-ai-agent"

// Exporter names accepted by Config.Metrics and Config.Traces.
const (
	ExporterPrometheus = "prometheus" // metrics only, scraped from /metrics
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none" // traces only
)

// Config describes where the agent sends its telemetry.
type Config struct {
	Enabled bool

	// Service, Version and Instance become the service.* resource
	// attributes. Instance falls back to the hostname.
	Service  string
	Version  string
	Instance string

	// Metrics is the metrics exporter; empty means prometheus.
	Metrics string
	// Traces is the span exporter; empty means none.
	Traces string

	// OTLPEndpoint is host:port of the collector, required by either OTLP
	// exporter. OTLPInsecure selects plain HTTP.
	OTLPEndpoint string
	OTLPInsecure bool

	// SampleRatio is the parent-based trace sampling ratio.
	SampleRatio float64
}

// ConfigFromEnv reads the instrumentation settings from the OTEL_* and
// exporter environment variables.
func ConfigFromEnv(version string) Config {
	return Config{
		Enabled:      envBool("INSTRUMENTATION_ENABLED", true),
		Service:      envString("OTEL_SERVICE_NAME", DefaultServiceName),
		Version:      version,
		Instance:     os.Getenv("OTEL_SERVICE_INSTANCE_ID"),
		Metrics:      envString("METRICS_EXPORTER", ExporterPrometheus),
		Traces:       envString("TRACING_EXPORTER", ExporterNone),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTLPInsecure: envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		SampleRatio:  envFloat("OTEL_TRACES_SAMPLER_ARG", 0.1),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envBool and envFloat ignore values that do not parse.
func envBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}
