package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/compresr/chat-gateway/internal/adapters"
	"github.com/compresr/chat-gateway/internal/apierrors"
	"github.com/compresr/chat-gateway/internal/monitoring"
)

// handleChat serves POST /v1/chat.
func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	requestID := monitoring.RequestIDFromContext(r.Context())

	var req ChatRequest
	body := http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		msg := "invalid JSON body"
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			msg = "request body too large"
		}
		resp := &ChatResponse{RequestID: requestID, Error: apierrors.New(apierrors.KindBadRequest, "%s", msg)}
		g.writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	resp, status := g.chat(r.Context(), &req)
	g.writeJSON(w, status, resp)
}

// chat runs one exchange and shapes the response. Shared by HTTP and WebSocket.
func (g *Gateway) chat(ctx context.Context, req *ChatRequest) (*ChatResponse, int) {
	resp := &ChatResponse{ID: req.ID, RequestID: monitoring.RequestIDFromContext(ctx)}

	reply, err := g.dispatcher.Dispatch(ctx, &adapters.ChatRequest{
		Provider:     adapters.Provider(req.Provider),
		UserMessage:  req.Message,
		SystemPrompt: req.SystemPrompt,
		Model:        req.Model,
	})
	if err != nil {
		ge := apierrors.As(err)
		resp.Error = ge
		return resp, StatusForKind(ge.Kind)
	}

	resp.Reply = reply.Text
	resp.Model = reply.Model
	resp.DebugInfo = reply.DebugInfo
	return resp, http.StatusOK
}

// handleHealth serves GET /health.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: g.version})
}

// handleStats serves GET /v1/stats.
func (g *Gateway) handleStats(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, http.StatusOK, g.metrics.Stats())
}

// handleExchanges serves GET /v1/exchanges?limit=N.
func (g *Gateway) handleExchanges(w http.ResponseWriter, r *http.Request) {
	limit := DefaultExchangeLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			g.writeError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, MaxExchangeLimit)
	}

	rows, err := g.store.Recent(limit)
	if err != nil {
		g.logger.Error().Err(err).Msg("failed to read exchanges")
		g.writeError(w, "failed to read exchanges", http.StatusInternalServerError)
		return
	}
	g.writeJSON(w, http.StatusOK, ExchangesResponse{Exchanges: rows, Count: len(rows)})
}

// writeJSON encodes v with the given status.
func (g *Gateway) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Debug().Err(err).Msg("failed to write response")
	}
}

// writeError sends a plain error outside the chat exchange.
func (g *Gateway) writeError(w http.ResponseWriter, message string, status int) {
	var resp ErrorResponse
	resp.Error.Message = message
	g.writeJSON(w, status, resp)
}
