package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/cors"

	"github.com/edpreble/mcp-wp/pkg/toolreg"
)

// Options configure a Gateway instance.
type Options struct {
	// Implementation identifies the gateway in initialize responses.
	Implementation mcp.Implementation
	// Addr controls the listen address used by ListenAndServe. Defaults to ":8787".
	Addr string
	// Path mounts the protocol endpoint. Defaults to "/mcp".
	Path string
	// BearerToken, when set, is required as "Authorization: Bearer <token>"
	// on every protocol request. Empty disables authentication.
	BearerToken string
	// StreamByDefault answers with an event stream when the client expresses
	// no preference. Defaults to plain JSON responses.
	StreamByDefault bool
	// SessionIdleTimeout closes sessions with no traffic for this long.
	// Defaults to 30 minutes.
	SessionIdleTimeout time.Duration
	// SweepInterval is the cadence of the idle-session sweep. Defaults to
	// one minute.
	SweepInterval time.Duration
	// Logger receives structured diagnostics.
	Logger *slog.Logger
	// Clock drives session timestamps and the sweep. Defaults to the real
	// clock; tests substitute a fake one.
	Clock clockwork.Clock
}

func (o *Options) withDefaults() Options {
	if o == nil {
		o = &Options{}
	}
	opts := *o
	if opts.Implementation.Name == "" {
		opts.Implementation = mcp.Implementation{
			Name:    "mcp-wp",
			Title:   "WordPress MCP Gateway",
			Version: "1.0.0",
		}
	}
	if opts.Addr == "" {
		opts.Addr = ":8787"
	}
	if opts.Path == "" {
		opts.Path = "/mcp"
	}
	if opts.SessionIdleTimeout <= 0 {
		opts.SessionIdleTimeout = 30 * time.Minute
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return opts
}

func (o *Options) defaultMode() responseMode {
	if o.StreamByDefault {
		return modeSSE
	}
	return modeJSON
}

// Gateway exposes a tool registry over a session-tracked streamable HTTP
// endpoint. Exactly one Gateway serves all sessions of a process: session
// continuity depends on every request reaching the same in-memory session
// manager, so constructing one per request would lose state.
type Gateway struct {
	opts     Options
	logger   *slog.Logger
	registry *toolreg.Registry
	sessions *sessionManager

	httpHandler http.Handler

	httpServerMu sync.Mutex
	httpServer   *http.Server
}

// New builds a Gateway serving the given registry. The registry must be
// fully populated before the first request arrives.
func New(registry *toolreg.Registry, opts *Options) (*Gateway, error) {
	if registry == nil {
		return nil, fmt.Errorf("gateway: registry is required")
	}
	options := opts.withDefaults()
	g := &Gateway{
		opts:     options,
		logger:   options.Logger,
		registry: registry,
		sessions: newSessionManager(options.Clock, options.SessionIdleTimeout, options.Logger),
	}
	g.httpHandler = g.mountHandler()
	return g, nil
}

// Handler exposes the HTTP handler that serves all routes.
func (g *Gateway) Handler() http.Handler {
	return g.httpHandler
}

// Options returns the effective configuration after defaults.
func (g *Gateway) Options() Options {
	return g.opts
}

// ListenAndServe runs an HTTP server and the idle-session sweep until the
// provided context is cancelled or the server stops.
func (g *Gateway) ListenAndServe(ctx context.Context) error {
	g.httpServerMu.Lock()
	if g.httpServer != nil {
		srv := g.httpServer
		g.httpServerMu.Unlock()
		return fmt.Errorf("gateway: server already running on %s", srv.Addr)
	}
	srv := &http.Server{Addr: g.opts.Addr, Handler: g.Handler()}
	g.httpServer = srv
	g.httpServerMu.Unlock()
	defer func() {
		g.httpServerMu.Lock()
		if g.httpServer == srv {
			g.httpServer = nil
		}
		g.httpServerMu.Unlock()
	}()

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go g.sessions.run(sweepCtx, g.opts.SweepInterval)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown stops the embedded HTTP server if it is running.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.httpServerMu.Lock()
	srv := g.httpServer
	g.httpServer = nil
	g.httpServerMu.Unlock()
	if srv == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return srv.Shutdown(ctx)
}

func (g *Gateway) mountHandler() http.Handler {
	path := g.opts.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "%s is running. POST %s to begin.\n", g.opts.Implementation.Name, path)
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"ok":true}`)
	})
	mux.HandleFunc(path, g.handleMCP)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Accept", sessionHeaderCanonical},
		ExposedHeaders: []string{sessionHeaderCanonical},
	})
	return c.Handler(mux)
}
