package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/teemow/gmail-ai-agent/internal/analysis"
	"github.com/teemow/gmail-ai-agent/internal/cache"
	"github.com/teemow/gmail-ai-agent/internal/google"
	"github.com/teemow/gmail-ai-agent/internal/instrumentation"
	"github.com/teemow/gmail-ai-agent/internal/llm"
	"github.com/teemow/gmail-ai-agent/internal/logging"
	"github.com/teemow/gmail-ai-agent/internal/retrieval"
	"github.com/teemow/gmail-ai-agent/internal/server"
	"github.com/teemow/gmail-ai-agent/internal/session"
	"github.com/teemow/gmail-ai-agent/internal/vectorstore"
)

// Cache backends accepted by --cache-backend.
const (
	cacheBackendFile  = "file"
	cacheBackendRedis = "redis"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

// RedisConfig holds the connection settings for the Redis cache backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// ServeConfig is the resolved configuration of the serve command.
type ServeConfig struct {
	Debug    bool
	JSONLogs bool
	HTTPAddr string

	SecretKey          string
	TokenExpireMinutes int

	GoogleClientID     string
	GoogleClientSecret string
	FrontendOrigin     string
	CORSOrigins        []string

	OpenAIAPIKey         string
	OpenAIBaseURL        string
	OpenAIModel          string
	OpenAIEmbeddingModel string
	OpenAITemperature    float64

	VectorStore      string
	ChromaHost       string
	ChromaPort       int
	ChromaAPIVersion string
	ChromaTenant     string
	ChromaDatabase   string
	DatabaseURL      string

	CacheBackend string
	EmailsFile   string
	Redis        RedisConfig

	Metrics MetricsConfig
}

// ChromaURL is the base URL of the Chroma server.
func (c ServeConfig) ChromaURL() string {
	return fmt.Sprintf("http://%s:%d", c.ChromaHost, c.ChromaPort)
}

// serveEnvBindings lists the environment fallback of every serve flag.
var serveEnvBindings = []envBinding{
	{"debug", "DEBUG"},
	{"http-addr", "HTTP_ADDR"},
	{"secret-key", "SECRET_KEY"},
	{"token-expire-minutes", "ACCESS_TOKEN_EXPIRE_MINUTES"},
	{"google-client-id", "GOOGLE_CLIENT_ID"},
	{"google-client-secret", "GOOGLE_CLIENT_SECRET"},
	{"frontend-origin", "FRONTEND_ORIGIN"},
	{"cors-origins", "CORS_ORIGINS"},
	{"openai-api-key", "OPENAI_API_KEY"},
	{"openai-base-url", "OPENAI_BASE_URL"},
	{"openai-model", "OPENAI_MODEL"},
	{"openai-embedding-model", "OPENAI_EMBEDDING_MODEL"},
	{"openai-temperature", "OPENAI_TEMPERATURE"},
	{"vector-store", "VECTOR_STORE"},
	{"chroma-host", "CHROMADB_HOST"},
	{"chroma-port", "CHROMADB_PORT"},
	{"chroma-api-version", "CHROMADB_API_VERSION"},
	{"chroma-tenant", "CHROMADB_TENANT"},
	{"chroma-database", "CHROMADB_DATABASE"},
	{"database-url", "DATABASE_URL"},
	{"cache-backend", "CACHE_BACKEND"},
	{"emails-file", "EMAILS_FILE"},
	{"redis-addr", "REDIS_ADDR"},
	{"redis-password", "REDIS_PASSWORD"},
	{"redis-db", "REDIS_DB"},
	{"redis-prefix", "REDIS_PREFIX"},
	{"metrics-enabled", "METRICS_ENABLED"},
	{"metrics-addr", "METRICS_ADDR"},
}

func newServeCmd() *cobra.Command {
	var (
		cfg         ServeConfig
		corsOrigins string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long: `Start the Gmail AI Agent REST API.

Clients authenticate with their Google OAuth credentials (POST /auth/google) or
through the consent flow (GET /auth/url, then /auth/callback) and receive a
signed session token to send as "Authorization: Bearer <token>".

Backends:
  Email cache:   --cache-backend file (default, --emails-file) or redis (--redis-addr)
  Vector store:  --vector-store chroma (default), postgres (--database-url) or memory
  LLM:           OpenAI chat completions and embeddings (--openai-api-key)

Every flag falls back to the environment variable named in its help text when it
is not set explicitly. A .env file is loaded first (see --env-file).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyEnvFallbacks(cmd, serveEnvBindings); err != nil {
				return err
			}
			cfg.CORSOrigins = parseCommaSeparatedList(corsOrigins)
			return runServe(cfg)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&cfg.Debug, "debug", false, "Enable debug logging. Can also use DEBUG env var.")
	f.BoolVar(&cfg.JSONLogs, "json-logs", true, "Write logs as JSON")
	f.StringVar(&cfg.HTTPAddr, "http-addr", ":8000", "HTTP server address. Can also use HTTP_ADDR env var.")

	f.StringVar(&cfg.SecretKey, "secret-key", "", "HMAC key signing session tokens. Can also use SECRET_KEY env var. A random key is used when empty.")
	f.IntVar(&cfg.TokenExpireMinutes, "token-expire-minutes", int(session.DefaultTTL/time.Minute), "Session token lifetime in minutes. Can also use ACCESS_TOKEN_EXPIRE_MINUTES env var.")

	f.StringVar(&cfg.GoogleClientID, "google-client-id", "", "Google OAuth Client ID for the consent flow. Can also use GOOGLE_CLIENT_ID env var.")
	f.StringVar(&cfg.GoogleClientSecret, "google-client-secret", "", "Google OAuth Client Secret for the consent flow. Can also use GOOGLE_CLIENT_SECRET env var.")
	f.StringVar(&cfg.FrontendOrigin, "frontend-origin", "http://localhost:5173", "Frontend origin receiving the OAuth callback message. Can also use FRONTEND_ORIGIN env var.")
	f.StringVar(&corsOrigins, "cors-origins", "", "Comma-separated allowed CORS origins (default localhost:5173 and localhost:3000). Can also use CORS_ORIGINS env var.")

	f.StringVar(&cfg.OpenAIAPIKey, "openai-api-key", "", "OpenAI API key. Can also use OPENAI_API_KEY env var.")
	f.StringVar(&cfg.OpenAIBaseURL, "openai-base-url", "", "Override the OpenAI API base URL. Can also use OPENAI_BASE_URL env var.")
	f.StringVar(&cfg.OpenAIModel, "openai-model", llm.DefaultModel, "Chat completion model. Can also use OPENAI_MODEL env var.")
	f.StringVar(&cfg.OpenAIEmbeddingModel, "openai-embedding-model", llm.DefaultEmbeddingModel, "Embedding model. Can also use OPENAI_EMBEDDING_MODEL env var.")
	f.Float64Var(&cfg.OpenAITemperature, "openai-temperature", llm.DefaultTemperature, "Sampling temperature for completions, 0 included. Can also use OPENAI_TEMPERATURE env var.")

	f.StringVar(&cfg.VectorStore, "vector-store", vectorstore.BackendChroma, "Vector store backend: chroma, postgres or memory. Can also use VECTOR_STORE env var.")
	f.StringVar(&cfg.ChromaHost, "chroma-host", "localhost", "Chroma server host. Can also use CHROMADB_HOST env var.")
	f.IntVar(&cfg.ChromaPort, "chroma-port", 8001, "Chroma server port. Can also use CHROMADB_PORT env var.")
	f.StringVar(&cfg.ChromaAPIVersion, "chroma-api-version", vectorstore.ChromaAPIv1, "Chroma REST API: v1 (servers before 1.0) or v2. Can also use CHROMADB_API_VERSION env var.")
	f.StringVar(&cfg.ChromaTenant, "chroma-tenant", vectorstore.DefaultChromaTenant, "Chroma tenant for the v2 API. Can also use CHROMADB_TENANT env var.")
	f.StringVar(&cfg.ChromaDatabase, "chroma-database", vectorstore.DefaultChromaDatabase, "Chroma database for the v2 API. Can also use CHROMADB_DATABASE env var.")
	f.StringVar(&cfg.DatabaseURL, "database-url", "", "PostgreSQL URL for the pgvector store. Can also use DATABASE_URL env var.")

	f.StringVar(&cfg.CacheBackend, "cache-backend", cacheBackendFile, "Email cache backend: file or redis. Can also use CACHE_BACKEND env var.")
	f.StringVar(&cfg.EmailsFile, "emails-file", cache.DefaultFile, "JSON file holding the cached batch. Can also use EMAILS_FILE env var.")
	f.StringVar(&cfg.Redis.Addr, "redis-addr", "localhost:6379", "Redis address for the redis cache. Can also use REDIS_ADDR env var.")
	f.StringVar(&cfg.Redis.Password, "redis-password", "", "Redis password. Can also use REDIS_PASSWORD env var.")
	f.IntVar(&cfg.Redis.DB, "redis-db", 0, "Redis database number. Can also use REDIS_DB env var.")
	f.StringVar(&cfg.Redis.Prefix, "redis-prefix", cache.DefaultRedisPrefix, "Prefix for Redis keys. Can also use REDIS_PREFIX env var.")

	f.BoolVar(&cfg.Metrics.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	f.StringVar(&cfg.Metrics.Addr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

func newLogger(cfg ServeConfig) *slog.Logger {
	return slog.New(logging.NewHandler(os.Stderr, cfg.JSONLogs, cfg.Debug))
}

// newCache builds the email cache named by cfg.CacheBackend.
func newCache(ctx context.Context, cfg ServeConfig) (cache.Store, error) {
	switch cfg.CacheBackend {
	case cacheBackendFile, "":
		return cache.NewFileStore(cfg.EmailsFile), nil
	case cacheBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store := cache.NewRedisStore(client, cfg.Redis.Prefix)
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}

func runServe(cfg ServeConfig) error {
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize instrumentation provider
	provider, err := instrumentation.NewProvider(shutdownCtx, instrumentation.ConfigFromEnv(version))
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("error during instrumentation shutdown", logging.Err(err))
		}
	}()
	metrics := provider.Metrics()

	sessions := session.NewManager(cfg.SecretKey,
		session.WithTTL(time.Duration(cfg.TokenExpireMinutes)*time.Minute),
		session.WithLogger(logger),
	)

	var exchanger server.CodeExchanger
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		exchanger = google.NewExchanger(cfg.GoogleClientID, cfg.GoogleClientSecret)
	} else {
		logger.Warn("google client credentials not configured, /auth/url and /auth/callback are disabled")
	}

	emailCache, err := newCache(shutdownCtx, cfg)
	if err != nil {
		return err
	}

	vectors, err := vectorstore.New(shutdownCtx, vectorstore.Config{
		Backend:     cfg.VectorStore,
		ChromaURL:   cfg.ChromaURL(),
		DatabaseURL: cfg.DatabaseURL,

		ChromaAPIVersion: cfg.ChromaAPIVersion,
		ChromaTenant:     cfg.ChromaTenant,
		ChromaDatabase:   cfg.ChromaDatabase,
	})
	if err != nil {
		return fmt.Errorf("failed to create vector store: %w", err)
	}

	if cfg.OpenAIAPIKey == "" {
		logger.Warn("no OpenAI API key configured, AI endpoints will degrade to fallbacks")
	}
	llmClient := llm.NewClient(llm.Config{
		APIKey:         cfg.OpenAIAPIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		Model:          cfg.OpenAIModel,
		EmbeddingModel: cfg.OpenAIEmbeddingModel,
		Temperature:    &cfg.OpenAITemperature,
	}, metrics, logger)

	adapter := logging.NewSlogAdapter(logger)
	serverContext, err := server.NewServerContext(shutdownCtx, server.Deps{
		Sessions:  sessions,
		Exchanger: exchanger,
		Cache:     emailCache,
		Vectors:   vectors,
		Retrieval: retrieval.NewPipeline(llmClient, vectors,
			retrieval.WithRecorder(metrics),
			retrieval.WithLogger(adapter),
		),
		Analysis:       analysis.NewPipeline(llmClient, adapter),
		Metrics:        metrics,
		Logger:         logger,
		FrontendOrigin: cfg.FrontendOrigin,
	})
	if err != nil {
		_ = vectors.Close()
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("error closing server context", logging.Err(err))
		}
	}()

	// Start metrics server if enabled
	var metricsServer *server.MetricsServer
	if cfg.Metrics.Enabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.Metrics.Addr,
			InstrumentationProvider: provider,
		})
		if err != nil {
			logger.Warn("metrics server disabled", logging.Err(err))
		} else {
			go func() {
				if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("metrics server stopped", logging.Err(err))
				}
			}()
		}
	}

	httpServer := server.NewHTTPServer(serverContext, server.HTTPConfig{
		Addr:        cfg.HTTPAddr,
		CORSOrigins: cfg.CORSOrigins,
	})

	logger.Info("gmail-ai-agent starting",
		"version", version,
		"addr", cfg.HTTPAddr,
		"vector_store", cfg.VectorStore,
		"cache_backend", cfg.CacheBackend,
		"metrics", metricsServer != nil,
	)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-shutdownCtx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		logger.Info("HTTP server stopped normally")
		return nil
	}

	ctx, cancelShutdown := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancelShutdown()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down HTTP server: %w", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.Warn("error shutting down metrics server", logging.Err(err))
		}
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}
