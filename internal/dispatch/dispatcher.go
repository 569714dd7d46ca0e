// Package dispatch is the public entry point of the provider gateway.
//
// DESIGN: Dispatch performs exactly one provider exchange per call:
//  1. Reject an empty user message (BadRequest)
//  2. Resolve the adapter; unknown provider ids fall back to openai (logged)
//  3. BuildRequest → Send → Parse under a single timeout
//  4. Record the outcome (logs, metrics, telemetry, exchange store)
//
// The exchange runs in its own goroutine. At the deadline Dispatch stops
// waiting and returns a Timeout error; the abandoned call is left to finish
// against its cancelled context. Panics inside an adapter are recovered and
// reported as Unknown. There are no retries: GatewayError.Retryable() tells
// the caller whether re-issuing the request might succeed.
package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/compresr/chat-gateway/internal/adapters"
	"github.com/compresr/chat-gateway/internal/apierrors"
	"github.com/compresr/chat-gateway/internal/config"
	"github.com/compresr/chat-gateway/internal/monitoring"
	"github.com/compresr/chat-gateway/internal/store"
)

// Options configures a Dispatcher. Zero values get defaults; nil sinks are skipped.
type Options struct {
	Timeout         time.Duration // 0 = config.DefaultTimeout
	DefaultProvider string        // used when a request names no provider
	Logger          *monitoring.Logger
	Metrics         *monitoring.MetricsCollector
	Alerts          *monitoring.AlertManager
	Tracker         *monitoring.Tracker
	Store           store.Store
}

// Dispatcher routes chat requests to provider adapters.
// Safe for concurrent use; it holds no per-call state.
type Dispatcher struct {
	registry        *adapters.Registry
	timeout         time.Duration
	defaultProvider string
	logger          *monitoring.Logger
	requestLogger   *monitoring.RequestLogger
	metrics         *monitoring.MetricsCollector
	alerts          *monitoring.AlertManager
	tracker         *monitoring.Tracker
	store           store.Store
}

// New creates a Dispatcher over registry.
func New(registry *adapters.Registry, opts Options) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = config.DefaultTimeout
	}
	if opts.DefaultProvider == "" {
		opts.DefaultProvider = string(adapters.ProviderOpenAI)
	}
	if opts.Logger == nil {
		opts.Logger = monitoring.Nop()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	if opts.Alerts == nil {
		opts.Alerts = monitoring.NewAlertManager(opts.Logger, monitoring.AlertConfig{})
	}
	return &Dispatcher{
		registry:        registry,
		timeout:         opts.Timeout,
		defaultProvider: opts.DefaultProvider,
		logger:          opts.Logger,
		requestLogger:   monitoring.NewRequestLogger(opts.Logger),
		metrics:         opts.Metrics,
		alerts:          opts.Alerts,
		tracker:         opts.Tracker,
		store:           opts.Store,
	}
}

// NewMetrics creates a metrics collector with counters for every error kind and provider.
func NewMetrics() *monitoring.MetricsCollector {
	kinds := make([]string, len(apierrors.Kinds))
	for i, k := range apierrors.Kinds {
		kinds[i] = string(k)
	}
	providers := make([]string, len(adapters.Providers))
	for i, p := range adapters.Providers {
		providers[i] = string(p)
	}
	return monitoring.NewMetricsCollector(kinds, providers)
}

// Metrics returns the collector used by this dispatcher.
func (d *Dispatcher) Metrics() *monitoring.MetricsCollector {
	return d.metrics
}

// DispatchMessage is Dispatch with the request given as plain values.
func (d *Dispatcher) DispatchMessage(ctx context.Context, provider, userMessage, systemPrompt, model string) (*adapters.Reply, error) {
	return d.Dispatch(ctx, &adapters.ChatRequest{
		Provider:     adapters.Provider(provider),
		UserMessage:  userMessage,
		SystemPrompt: systemPrompt,
		Model:        model,
	})
}

// outcome is what one exchange produced.
type outcome struct {
	raw   *adapters.RawRequest
	reply *adapters.Reply
	err   *apierrors.GatewayError
}

// Dispatch sends one chat request and returns a Reply or a *apierrors.GatewayError.
func (d *Dispatcher) Dispatch(ctx context.Context, req *adapters.ChatRequest) (*adapters.Reply, error) {
	start := time.Now()

	requestID := monitoring.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
		ctx = monitoring.WithRequestIDContext(ctx, requestID)
	}

	r := *req
	identifier := string(r.Provider)
	if strings.TrimSpace(identifier) == "" {
		identifier = d.defaultProvider
	}
	adapter, provider, fallback := d.registry.Resolve(identifier)
	r.Provider = provider
	if fallback {
		d.metrics.RecordFallback()
		d.alerts.FlagProviderFallback(requestID, identifier, string(provider))
	}

	var res outcome
	switch {
	case strings.TrimSpace(r.UserMessage) == "":
		res.err = apierrors.New(apierrors.KindBadRequest, "user message is required").WithProvider(string(provider))
	case adapter == nil:
		res.err = apierrors.New(apierrors.KindUnknown, "no adapter registered for provider %q", provider)
	default:
		res = d.run(ctx, adapter, &r)
	}

	d.record(requestID, provider, fallback, res, time.Since(start))

	if res.err != nil {
		return nil, res.err
	}
	return res.reply, nil
}

// run executes the exchange under the timeout and abandons it at the deadline.
func (d *Dispatcher) run(ctx context.Context, adapter adapters.Adapter, req *adapters.ChatRequest) outcome {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		done <- d.exchange(ctx, adapter, req)
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		ge := apierrors.New(apierrors.KindTimeout, "no response within %s", d.timeout).WithProvider(adapter.Name())
		if ctx.Err() == context.Canceled {
			ge.Message = "request cancelled before a response arrived"
		}
		return outcome{err: ge}
	}
}

// exchange runs BuildRequest → Send → Parse. It is the panic boundary.
func (d *Dispatcher) exchange(ctx context.Context, adapter adapters.Adapter, req *adapters.ChatRequest) (res outcome) {
	defer func() {
		if p := recover(); p != nil {
			d.alerts.FlagPanic(monitoring.RequestIDFromContext(ctx), p, string(debug.Stack()))
			res = outcome{
				raw: res.raw,
				err: apierrors.New(apierrors.KindUnknown, "internal error in %s adapter: %v", adapter.Name(), p).WithProvider(adapter.Name()),
			}
		}
	}()

	raw, err := adapter.BuildRequest(req)
	if err != nil {
		return outcome{err: apierrors.As(err).WithProvider(adapter.Name())}
	}
	res.raw = raw

	d.requestLogger.LogOutgoing(&monitoring.OutgoingRequestInfo{
		RequestID: monitoring.RequestIDFromContext(ctx),
		Provider:  adapter.Name(),
		TargetURL: raw.RedactedURL(),
		Model:     raw.Model,
		ModelNote: raw.ModelNote,
		BodySize:  len(raw.Body),
	})

	resp, err := adapter.Send(ctx, raw)
	if err != nil {
		res.err = withModelDebug(apierrors.As(err).WithProvider(adapter.Name()), raw)
		return res
	}

	reply, err := adapter.Parse(resp)
	if err != nil {
		res.err = withModelDebug(apierrors.As(err).WithProvider(adapter.Name()), raw)
		return res
	}

	reply.Model = raw.Model
	reply.DebugInfo = raw.ModelNote
	res.reply = reply
	return res
}

// withModelDebug records which model was sent on configuration-class failures,
// and any model substitution on every failure.
func withModelDebug(ge *apierrors.GatewayError, raw *adapters.RawRequest) *apierrors.GatewayError {
	var parts []string
	if ge.Kind == apierrors.KindConfiguration {
		parts = append(parts, fmt.Sprintf("model sent: %s", raw.Model))
	}
	if raw.ModelNote != "" {
		parts = append(parts, raw.ModelNote)
	}
	if len(parts) > 0 {
		ge.WithDebug(strings.Join(parts, "; "))
	}
	return ge
}

func (d *Dispatcher) record(requestID string, provider adapters.Provider, fallback bool, res outcome, latency time.Duration) {
	event := &monitoring.ExchangeEvent{
		RequestID: requestID,
		Timestamp: time.Now(),
		Provider:  string(provider),
		Fallback:  fallback,
		Success:   res.err == nil,
		LatencyMs: latency.Milliseconds(),
	}
	if res.raw != nil {
		event.Model = res.raw.Model
		event.ModelNote = res.raw.ModelNote
	}

	errorKind := ""
	if res.err != nil {
		errorKind = string(res.err.Kind)
		event.ErrorKind = errorKind
		event.Retryable = res.err.Retryable()
		event.StatusCode = res.err.StatusCode
		event.Error = res.err.Message
		d.alerts.FlagProviderError(requestID, string(provider), errorKind, res.err.StatusCode, res.err.Retryable(), res.err.Message)
	} else {
		event.ReplyBytes = len(res.reply.Text)
	}

	d.metrics.RecordDispatch(string(provider), errorKind, latency)
	d.alerts.FlagHighLatency(requestID, latency, string(provider))
	d.requestLogger.LogExchange(event)
	d.tracker.RecordExchange(event)

	if d.store != nil {
		err := d.store.Record(&store.Exchange{
			RequestID:  event.RequestID,
			Provider:   event.Provider,
			Model:      event.Model,
			Success:    event.Success,
			ErrorKind:  event.ErrorKind,
			Retryable:  event.Retryable,
			StatusCode: event.StatusCode,
			LatencyMs:  event.LatencyMs,
			CreatedAt:  event.Timestamp,
		})
		if err != nil {
			d.logger.Error().Err(err).Str("request_id", requestID).Msg("failed to record exchange")
		}
	}
}
