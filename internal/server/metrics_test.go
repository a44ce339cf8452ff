package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/gmail-ai-agent/internal/instrumentation"
)

func newProvider(t *testing.T, enabled bool, exporter string) *instrumentation.Provider {
	t.Helper()
	p, err := instrumentation.NewProvider(context.Background(), instrumentation.Config{
		Enabled: enabled,
		Service: "test-service",
		Version: "test",
		Metrics: exporter,
		Traces:  instrumentation.ExporterNone,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	return p
}

func TestNewMetricsServer(t *testing.T) {
	tests := []struct {
		name        string
		provider    func(t *testing.T) *instrumentation.Provider
		addr        string
		wantAddr    string
		errContains string
	}{
		{
			name:     "prometheus provider",
			provider: func(t *testing.T) *instrumentation.Provider { return newProvider(t, true, instrumentation.ExporterPrometheus) },
			addr:     ":9191",
			wantAddr: ":9191",
		},
		{
			name:     "default addr",
			provider: func(t *testing.T) *instrumentation.Provider { return newProvider(t, true, instrumentation.ExporterPrometheus) },
			wantAddr: DefaultMetricsAddr,
		},
		{
			name:        "nil provider",
			provider:    func(*testing.T) *instrumentation.Provider { return nil },
			errContains: "instrumentation provider is required",
		},
		{
			name:        "disabled provider",
			provider:    func(t *testing.T) *instrumentation.Provider { return newProvider(t, false, "") },
			errContains: "not enabled",
		},
		{
			name:        "non-prometheus exporter",
			provider:    func(t *testing.T) *instrumentation.Provider { return newProvider(t, true, instrumentation.ExporterStdout) },
			errContains: "prometheus exporter is not configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, err := NewMetricsServer(MetricsServerConfig{Addr: tt.addr, InstrumentationProvider: tt.provider(t)})
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				assert.Nil(t, srv)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, srv.Addr())
		})
	}
}

func TestMetricsServer_Handler(t *testing.T) {
	p := newProvider(t, true, instrumentation.ExporterPrometheus)
	p.Metrics().RecordHTTPRequest(context.Background(), http.MethodGet, "/emails", http.StatusOK, 10*time.Millisecond)

	srv, err := NewMetricsServer(MetricsServerConfig{InstrumentationProvider: p})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestMetricsServer_StartShutdown(t *testing.T) {
	srv, err := NewMetricsServer(MetricsServerConfig{
		Addr:                    "127.0.0.1:0",
		InstrumentationProvider: newProvider(t, true, instrumentation.ExporterPrometheus),
	})
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	require.Eventually(t, func() bool {
		return srv.Addr() != "127.0.0.1:0"
	}, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}

func TestMetricsServer_ShutdownWithoutStart(t *testing.T) {
	srv, err := NewMetricsServer(MetricsServerConfig{
		InstrumentationProvider: newProvider(t, true, instrumentation.ExporterPrometheus),
	})
	require.NoError(t, err)
	assert.NoError(t, srv.Shutdown(context.Background()))
}
