package api

import (
	"net/http"
	"time"

	"housing-predictor/internal/pipeline"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// handleWebSocket serves the chat socket. Each text frame is one
// /predict-from-string input and gets exactly one Result frame back.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	if s.metrics != nil {
		conns := s.metrics.WSConnections()
		conns.Add(1)
		defer conns.Add(-1)
	}

	conn.SetReadLimit(s.maxFrameBytes)
	// Clear the deadline inherited from the HTTP server; the socket idles
	// between frames.
	conn.SetReadDeadline(time.Time{})

	logger.Debug().Msg("Chat socket opened")
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn().Err(err).Msg("Chat socket closed unexpectedly")
			}
			return
		}

		var result pipeline.Result
		if msgType != websocket.TextMessage {
			result = errorResult("Only text frames are supported")
		} else {
			input := string(data)
			result = s.assembler.FromString(input)
			s.record(r, SourceWebSocket, input, result)
		}

		conn.SetWriteDeadline(time.Now().Add(s.timeout))
		if err := conn.WriteJSON(result); err != nil {
			logger.Warn().Err(err).Msg("Failed to write chat reply")
			s.countError()
			return
		}
	}
}
