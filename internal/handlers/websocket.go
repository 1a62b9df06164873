// -----------------------------------------------------------------------
// WebSocket Handler - streams per-job progress events to subscribers
// -----------------------------------------------------------------------

package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/jobs"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 45 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

type WebSocketHandler struct {
	manager *jobs.Manager
	logger  arbor.ILogger
}

func NewWebSocketHandler(manager *jobs.Manager, logger arbor.ILogger) *WebSocketHandler {
	return &WebSocketHandler{
		manager: manager,
		logger:  logger,
	}
}

// HandleWebSocket upgrades the connection and relays the job's event stream
// until the subscription closes or the client disconnects.
// GET /research/ws/{id}
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	sub, err := h.manager.Subscribe(jobID)
	if err != nil {
		WriteKindError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		sub.Close()
		h.logger.Warn().Err(err).Str("job_id", jobID).Msg("WebSocket upgrade failed")
		return
	}

	h.logger.Debug().Str("job_id", jobID).Msg("WebSocket subscriber connected")

	// Serializes writes: the event pump and the ping ticker share the
	// connection.
	var writeMu sync.Mutex
	done := make(chan struct{})

	// Read pump: detects client disconnect and enforces pong deadlines.
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.Close()
		conn.Close()
		h.logger.Debug().
			Str("job_id", jobID).
			Int64("dropped_events", int64(sub.Dropped())).
			Msg("WebSocket subscriber disconnected")
	}()

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				writeMu.Lock()
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream closed"))
				writeMu.Unlock()
				return
			}
			writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.WriteJSON(ev)
			writeMu.Unlock()
			if err != nil {
				return
			}
		case <-ticker.C:
			writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			writeMu.Unlock()
			if err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
