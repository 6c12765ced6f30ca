package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aescanero/graphpool/pkg/adapters/events/memory"
	"github.com/aescanero/graphpool/pkg/ports"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"
)

func TestRunStreamFiltersByRun(t *testing.T) {
	gin.SetMode(gin.TestMode)

	bus := memory.NewInMemoryEventBus()
	defer bus.Close()

	router := gin.New()
	router.GET("/api/v1/runs/:id/ws", NewHandler(bus, zaptest.NewLogger(t)).HandleRunStream)

	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/runs/run-1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	_ = bus.Publish(ctx, ports.TopicRunEvents, ports.Event{ID: "a", Type: ports.EventTypeRunStarted, RunID: "run-1"})
	_ = bus.Publish(ctx, ports.TopicRunEvents, ports.Event{ID: "b", Type: ports.EventTypeRunStarted, RunID: "run-2"})
	_ = bus.Publish(ctx, ports.TopicNodeEvents, ports.Event{ID: "c", Type: ports.EventTypeNodeVisited, RunID: "run-1"})
	_ = bus.Publish(ctx, ports.TopicRunEvents, ports.Event{ID: "d", Type: ports.EventTypeRunCompleted, RunID: "run-1"})

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var ids []string
	for {
		var event ports.Event
		if err := conn.ReadJSON(&event); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Fatalf("ReadJSON: %v", err)
			}
			break
		}
		ids = append(ids, event.ID)
	}

	if strings.Join(ids, ",") != "a,c,d" {
		t.Errorf("received %v, want [a c d]", ids)
	}
}
