// Package gateway serves the chat widget over HTTP and WebSocket.
//
// DESIGN: The gateway is a thin transport in front of dispatch.Dispatcher.
// It owns the middleware chain, the exchange store and the telemetry
// tracker, and translates GatewayError kinds to HTTP statuses. All provider
// logic lives in the adapters; the gateway never talks to a provider itself.
//
// FILES:
//   - gateway.go:    Gateway struct, construction, Start/Shutdown
//   - router.go:     Route table and middleware chain
//   - handler.go:    HTTP handlers
//   - websocket.go:  WebSocket chat endpoint
//   - middleware.go: Panic recovery, rate limiting, logging, security headers
//   - types.go:      Wire types and kind → status mapping
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/compresr/chat-gateway/internal/adapters"
	"github.com/compresr/chat-gateway/internal/config"
	"github.com/compresr/chat-gateway/internal/dispatch"
	"github.com/compresr/chat-gateway/internal/monitoring"
	"github.com/compresr/chat-gateway/internal/store"
)

// Gateway is the widget-facing server.
type Gateway struct {
	config        *config.Config
	version       string
	dispatcher    *dispatch.Dispatcher
	store         store.Store
	tracker       *monitoring.Tracker
	logger        *monitoring.Logger
	requestLogger *monitoring.RequestLogger
	metrics       *monitoring.MetricsCollector
	alerts        *monitoring.AlertManager
	rateLimiter   *rateLimiter
	originHosts   []string
	server        *http.Server
	stopPrune     context.CancelFunc
}

// pruneInterval is how often expired exchange rows are removed.
const pruneInterval = 10 * time.Minute

// Option customizes a Gateway.
type Option func(*options)

type options struct {
	logger  *monitoring.Logger
	client  adapters.HTTPDoer
	version string
}

// WithLogger sets the logger (default: built from cfg.Monitoring).
func WithLogger(logger *monitoring.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithHTTPClient sets the client used for provider requests.
func WithHTTPClient(client adapters.HTTPDoer) Option {
	return func(o *options) { o.client = client }
}

// WithVersion sets the version reported by /health.
func WithVersion(version string) Option {
	return func(o *options) { o.version = version }
}

// New creates a gateway from cfg.
func New(cfg *config.Config, opts ...Option) (*Gateway, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = monitoring.New(monitoring.LoggerConfig{
			Level:  cfg.Monitoring.LogLevel,
			Format: cfg.Monitoring.LogFormat,
			Output: cfg.Monitoring.LogOutput,
		})
	}

	st, err := store.New(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to create exchange store: %w", err)
	}

	tracker, err := monitoring.NewTracker(monitoring.TelemetryConfig{
		Enabled:     cfg.Monitoring.TelemetryEnabled,
		LogPath:     cfg.Monitoring.TelemetryPath,
		LogToStdout: cfg.Monitoring.LogToStdout,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create telemetry tracker: %w", err)
	}

	metrics := dispatch.NewMetrics()
	alerts := monitoring.NewAlertManager(o.logger, monitoring.AlertConfig{
		HighLatencyThreshold: cfg.Gateway.HighLatencyThreshold,
	})

	dispatcher := dispatch.New(adapters.NewRegistry(cfg.Providers, o.client), dispatch.Options{
		Timeout:         cfg.Gateway.Timeout,
		DefaultProvider: cfg.Gateway.DefaultProvider,
		Logger:          o.logger.With("dispatch"),
		Metrics:         metrics,
		Alerts:          alerts,
		Tracker:         tracker,
		Store:           st,
	})

	g := &Gateway{
		config:        cfg,
		version:       o.version,
		dispatcher:    dispatcher,
		store:         st,
		tracker:       tracker,
		logger:        o.logger,
		requestLogger: monitoring.NewRequestLogger(o.logger),
		metrics:       metrics,
		alerts:        alerts,
		rateLimiter:   newRateLimiter(cfg.Server.RateLimit),
		originHosts:   originHosts(cfg.Server.AllowedOrigins),
	}

	g.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      g.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	pruneCtx, cancel := context.WithCancel(context.Background())
	g.stopPrune = cancel
	go g.pruneLoop(pruneCtx, pruneInterval)

	return g, nil
}

// Dispatcher returns the dispatcher behind the HTTP surface.
func (g *Gateway) Dispatcher() *dispatch.Dispatcher {
	return g.dispatcher
}

// Start serves until Shutdown is called.
func (g *Gateway) Start() error {
	g.logger.Info().
		Int("port", g.config.Server.Port).
		Str("default_provider", g.config.Gateway.DefaultProvider).
		Dur("timeout", g.config.Gateway.Timeout).
		Str("store", g.config.Store.Type).
		Msg("chat gateway starting")

	if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown stops the server and releases the store and telemetry files.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info().Msg("chat gateway shutting down")

	err := g.server.Shutdown(ctx)
	g.stopPrune()
	g.rateLimiter.stop()

	if closeErr := g.tracker.Close(); closeErr != nil {
		g.logger.Error().Err(closeErr).Msg("failed to close telemetry tracker")
	}
	if closeErr := g.store.Close(); closeErr != nil {
		g.logger.Error().Err(closeErr).Msg("failed to close exchange store")
	}
	return err
}

// pruneLoop removes expired exchange rows until ctx is done.
func (g *Gateway) pruneLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := g.store.Prune()
			if err != nil {
				g.logger.Error().Err(err).Msg("exchange prune failed")
				continue
			}
			if n > 0 {
				g.logger.Debug().Int("removed", n).Msg("exchanges pruned")
			}
		}
	}
}
