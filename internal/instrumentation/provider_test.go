package instrumentation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{
		Service: "test-service",
		Metrics: "graphite", // not inspected when disabled
	})
	require.NoError(t, err)

	assert.False(t, provider.Enabled())
	assert.NotNil(t, provider.Metrics())
	assert.NotNil(t, provider.Tracer("test"))
	assert.Nil(t, provider.PrometheusHandler())
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProvider_Exporters(t *testing.T) {
	tests := []struct {
		name           string
		config         Config
		errContains    string
		wantPrometheus bool
	}{
		{
			name:           "prometheus without tracing",
			config:         Config{Metrics: ExporterPrometheus, Traces: ExporterNone},
			wantPrometheus: true,
		},
		{
			name:           "empty exporters default to prometheus and no traces",
			wantPrometheus: true,
		},
		{
			name:   "stdout metrics and traces",
			config: Config{Metrics: ExporterStdout, Traces: ExporterStdout, SampleRatio: 1},
		},
		{
			name:        "unknown metrics exporter",
			config:      Config{Metrics: "graphite"},
			errContains: `unsupported metrics exporter "graphite"`,
		},
		{
			name:        "unknown tracing exporter",
			config:      Config{Traces: "zipkin"},
			errContains: `unsupported tracing exporter "zipkin"`,
		},
		{
			name:        "otlp tracing without endpoint",
			config:      Config{Traces: ExporterOTLP},
			errContains: "OTLP tracing exporter needs",
		},
		{
			name:        "otlp metrics without endpoint",
			config:      Config{Metrics: ExporterOTLP},
			errContains: "OTLP metrics exporter needs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.config
			cfg.Enabled = true
			cfg.Service = "test-service"
			cfg.Version = "1.0.0"

			provider, err := NewProvider(context.Background(), cfg)
			if tt.errContains != "" {
				assert.ErrorContains(t, err, tt.errContains)
				return
			}
			require.NoError(t, err)
			defer func() { _ = provider.Shutdown(context.Background()) }()

			assert.True(t, provider.Enabled())
			assert.NotNil(t, provider.Metrics())
			assert.NotNil(t, provider.Tracer("test"))
			assert.Equal(t, tt.wantPrometheus, provider.PrometheusHandler() != nil)
		})
	}
}

func TestNewProvider_IndependentRegistries(t *testing.T) {
	first := newPrometheusProvider(t)
	second := newPrometheusProvider(t)

	first.Metrics().RecordOAuthAuth(context.Background(), OAuthResultSuccess)

	assert.Contains(t, scrape(t, first), "oauth_auth_total")
	assert.NotContains(t, scrape(t, second), "oauth_auth_total")
}
