package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/your-org/shadow-trading-bot/internal/engine"
	"github.com/your-org/shadow-trading-bot/internal/report"
	"github.com/your-org/shadow-trading-bot/pkg/logger"
)

const (
	defaultStreamInterval = 2 * time.Second
	writeWait             = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamSource provides the data pushed to stream clients.
type StreamSource interface {
	Performance() report.Summary
	Tasks() []engine.Task
}

// StreamUpdate is one message on the stream.
type StreamUpdate struct {
	Time        time.Time      `json:"time"`
	Performance report.Summary `json:"performance"`
	Tasks       []engine.Task  `json:"tasks"`
}

// StreamHandler pushes periodic performance updates over a websocket.
type StreamHandler struct {
	source   StreamSource
	interval time.Duration
}

// NewStreamHandler creates a StreamHandler. A non-positive interval uses two seconds.
func NewStreamHandler(source StreamSource, interval time.Duration) *StreamHandler {
	if interval <= 0 {
		interval = defaultStreamInterval
	}
	return &StreamHandler{source: source, interval: interval}
}

// RegisterRoutes registers the stream route on r.
func (h *StreamHandler) RegisterRoutes(r chi.Router) {
	r.Get("/stream", h.Stream)
}

// Stream upgrades the connection and writes an update immediately and then
// once per interval until the client goes away.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("Stream upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Reads only detect the client closing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		update := StreamUpdate{
			Time:        time.Now().UTC(),
			Performance: h.source.Performance(),
			Tasks:       h.source.Tasks(),
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(update); err != nil {
			logger.Debugf("Stream client dropped: %v", err)
			return
		}
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
