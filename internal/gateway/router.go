// Route table for the widget-facing server.
//
// DESIGN: Routes (Go 1.22 method patterns):
//
//	POST /v1/chat       one chat exchange
//	GET  /v1/chat/ws    WebSocket, one exchange per text frame
//	GET  /health        liveness
//	GET  /v1/stats      dispatch counters
//	GET  /v1/exchanges  recent exchange log rows (?limit=N)
//
// Every route runs behind the full middleware chain.
package gateway

import "net/http"

// Handler returns the HTTP handler with all routes and middleware applied.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/chat", g.handleChat)
	mux.HandleFunc("GET /v1/chat/ws", g.handleChatWS)
	mux.HandleFunc("GET /health", g.handleHealth)
	mux.HandleFunc("GET /v1/stats", g.handleStats)
	mux.HandleFunc("GET /v1/exchanges", g.handleExchanges)

	var h http.Handler = mux
	h = g.security(h)
	h = g.loggingMiddleware(h)
	h = g.rateLimit(h)
	h = g.panicRecovery(h)
	return h
}
