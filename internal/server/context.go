package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"google.golang.org/api/option"

	"github.com/teemow/gmail-ai-agent/internal/analysis"
	"github.com/teemow/gmail-ai-agent/internal/cache"
	"github.com/teemow/gmail-ai-agent/internal/gmail"
	"github.com/teemow/gmail-ai-agent/internal/google"
	"github.com/teemow/gmail-ai-agent/internal/instrumentation"
	"github.com/teemow/gmail-ai-agent/internal/retrieval"
	"github.com/teemow/gmail-ai-agent/internal/session"
	"github.com/teemow/gmail-ai-agent/internal/vectorstore"
)

// MailboxFactory builds a mailbox client for the credentials carried by a session.
type MailboxFactory func(ctx context.Context, creds session.Credentials) (gmail.MessageService, error)

// CodeExchanger trades OAuth authorization codes for provider credentials.
type CodeExchanger interface {
	Exchange(ctx context.Context, code, redirectURI string) (*session.Credentials, error)
	AuthCodeURL(redirectURI, state string) string
}

// GmailMailboxes is the MailboxFactory backed by the Gmail API.
func GmailMailboxes(ctx context.Context, creds session.Credentials) (gmail.MessageService, error) {
	return gmail.NewClient(ctx, option.WithHTTPClient(google.HTTPClient(ctx, creds)))
}

// Deps are the collaborators a ServerContext owns.
type Deps struct {
	Sessions  *session.Manager
	Exchanger CodeExchanger
	Mailboxes MailboxFactory
	Cache     cache.Store
	Vectors   vectorstore.Store
	Retrieval *retrieval.Pipeline
	Analysis  *analysis.Pipeline
	Metrics   *instrumentation.Metrics
	Logger    *slog.Logger

	// FrontendOrigin receives the postMessage from the OAuth callback page
	// and is the base of the callback redirect URI.
	FrontendOrigin string
}

// ServerContext holds every external handle used by request handlers.
// It is created once at startup and closed on shutdown.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	sessions       *session.Manager
	exchanger      CodeExchanger
	mailboxes      MailboxFactory
	cache          cache.Store
	vectors        vectorstore.Store
	retrieval      *retrieval.Pipeline
	analysis       *analysis.Pipeline
	metrics        *instrumentation.Metrics
	logger         *slog.Logger
	frontendOrigin string

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext validates deps and creates a server context.
func NewServerContext(ctx context.Context, deps Deps) (*ServerContext, error) {
	switch {
	case deps.Sessions == nil:
		return nil, fmt.Errorf("session manager is required")
	case deps.Cache == nil:
		return nil, fmt.Errorf("email cache is required")
	case deps.Retrieval == nil:
		return nil, fmt.Errorf("retrieval pipeline is required")
	case deps.Analysis == nil:
		return nil, fmt.Errorf("analysis pipeline is required")
	}

	if deps.Mailboxes == nil {
		deps.Mailboxes = GmailMailboxes
	}
	if deps.Metrics == nil {
		deps.Metrics = &instrumentation.Metrics{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	shutdownCtx, cancel := context.WithCancel(ctx)

	return &ServerContext{
		ctx:            shutdownCtx,
		cancel:         cancel,
		sessions:       deps.Sessions,
		exchanger:      deps.Exchanger,
		mailboxes:      deps.Mailboxes,
		cache:          deps.Cache,
		vectors:        deps.Vectors,
		retrieval:      deps.Retrieval,
		analysis:       deps.Analysis,
		metrics:        deps.Metrics,
		logger:         deps.Logger,
		frontendOrigin: deps.FrontendOrigin,
	}, nil
}

// Context returns the server context, cancelled on Shutdown.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Sessions returns the session token manager.
func (sc *ServerContext) Sessions() *session.Manager {
	return sc.sessions
}

// Metrics returns the metrics recorder. It is never nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// Logger returns the base logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Mailbox returns an instrumented mailbox for creds.
func (sc *ServerContext) Mailbox(ctx context.Context, creds session.Credentials) (gmail.MessageService, error) {
	mb, err := sc.mailboxes(ctx, creds)
	if err != nil {
		return nil, err
	}
	return &instrumentedMailbox{next: mb, metrics: sc.metrics}, nil
}

// pinger is implemented by backends that can report their own health.
type pinger interface {
	Ping(ctx context.Context) error
}

type heartbeater interface {
	Heartbeat(ctx context.Context) error
}

// Checks returns readiness probes for the backends that support them.
func (sc *ServerContext) Checks() map[string]func(context.Context) error {
	checks := make(map[string]func(context.Context) error)
	if p, ok := sc.cache.(pinger); ok {
		checks["cache"] = p.Ping
	}
	switch v := sc.vectors.(type) {
	case pinger:
		checks["vectorstore"] = v.Ping
	case heartbeater:
		checks["vectorstore"] = v.Heartbeat
	}
	return checks
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context and closes owned backends.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()

	var errs []error
	if sc.vectors != nil {
		if err := sc.vectors.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close vector store: %w", err))
		}
	}
	if c, ok := sc.cache.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close email cache: %w", err))
		}
	}
	return errors.Join(errs...)
}
