package gateway

import (
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/compresr/chat-gateway/internal/monitoring"
)

// handleChatWS serves GET /v1/chat/ws. Frames are handled one at a time:
// a frame's answer is written before the next frame is read.
func (g *Gateway) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: g.originHosts,
	})
	if err != nil {
		// Accept has already written the HTTP error.
		g.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade rejected")
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(MaxRequestBodySize)

	ctx := r.Context()
	connID := monitoring.RequestIDFromContext(ctx)
	g.logger.Debug().Str("conn_id", connID).Msg("websocket connected")

	for {
		var req ChatRequest
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, ctx.Err()) {
				g.logger.Debug().Str("conn_id", connID).Msg("websocket closed")
				return
			}
			g.logger.Warn().Err(err).Str("conn_id", connID).Msg("websocket read failed")
			return
		}

		frameCtx := monitoring.WithRequestIDContext(ctx, uuid.New().String())
		resp, _ := g.chat(frameCtx, &req)
		if err := wsjson.Write(ctx, conn, resp); err != nil {
			g.logger.Warn().Err(err).Str("conn_id", connID).Msg("websocket write failed")
			return
		}
	}
}
