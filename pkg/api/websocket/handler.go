package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/aescanero/graphpool/pkg/ports"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler handles WebSocket connections
type Handler struct {
	eventBus   ports.EventBus
	logger     *zap.Logger
	bufferSize int
}

// NewHandler creates a new WebSocket handler
func NewHandler(eventBus ports.EventBus, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		eventBus:   eventBus,
		logger:     logger,
		bufferSize: 64,
	}
}

// HandleRunStream streams the events of one run to the client until the run
// finishes or the client disconnects
func (h *Handler) HandleRunStream(c *gin.Context) {
	runID := c.Param("id")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Subscribe before the handshake completes so no event published after
	// the client is connected can be missed
	eventChan := make(chan ports.Event, h.bufferSize)
	h.subscribeToEvents(ctx, runID, eventChan)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	h.logger.Info("WebSocket connection established",
		zap.String("run_id", runID),
		zap.String("client", c.ClientIP()))

	// The client never sends data; reading detects the close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-eventChan:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Error("failed to write message", zap.Error(err))
				return
			}

			if isTerminal(event) {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(event.Type)),
					time.Now().Add(writeWait))
				return
			}
		}
	}
}

// subscribeToEvents forwards the run's events to ch until ctx is done
func (h *Handler) subscribeToEvents(ctx context.Context, runID string, ch chan<- ports.Event) {
	eventHandler := func(_ context.Context, event ports.Event) error {
		if event.RunID != runID {
			return nil
		}

		if isTerminal(event) {
			select {
			case ch <- event:
			case <-ctx.Done():
			}
			return nil
		}

		// Send to channel (non-blocking)
		select {
		case ch <- event:
		case <-ctx.Done():
			return ctx.Err()
		default:
			h.logger.Warn("event channel full, dropping event",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)))
		}
		return nil
	}

	topics := []string{ports.TopicRunEvents, ports.TopicNodeEvents}
	for _, topic := range topics {
		if err := h.eventBus.Subscribe(ctx, topic, eventHandler); err != nil {
			h.logger.Error("failed to subscribe to events",
				zap.String("topic", topic),
				zap.Error(err))
		}
	}
}

// isTerminal reports whether event ends its run. Terminal events are never
// dropped.
func isTerminal(event ports.Event) bool {
	return event.Type == ports.EventTypeRunCompleted || event.Type == ports.EventTypeRunFailed
}
