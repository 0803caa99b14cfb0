package hub

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/teslashibe/go-truesight/pkg/debounce"
	"github.com/teslashibe/go-truesight/pkg/protocol"
)

func startHub(t *testing.T, port string) *Hub {
	t.Helper()
	h := New()
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	h.RegisterRoutes(app)
	go app.Listen(":" + port)
	t.Cleanup(func() {
		_ = app.Shutdown()
		cancel()
	})
	time.Sleep(100 * time.Millisecond)
	return h
}

func dialAlerts(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func waitClients(h *Hub, n int) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if h.ClientCount() == n {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func TestNew(t *testing.T) {
	h := New()
	if h.ClientCount() != 0 {
		t.Error("ClientCount should be 0 initially")
	}
}

func TestBroadcastWithoutClients(t *testing.T) {
	h := New()
	// Queue without a running loop must not block
	for i := 0; i < 300; i++ {
		h.Publish(debounce.Alert{ID: "a", Room: "r", Condition: debounce.Human, Time: time.Now()})
	}
}

func TestPublishReachesDashboard(t *testing.T) {
	h := startHub(t, "18190")
	ws := dialAlerts(t, "ws://localhost:18190/ws/alerts")
	if !waitClients(h, 1) {
		t.Fatalf("ClientCount = %d, want 1", h.ClientCount())
	}

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	h.Publish(debounce.Alert{ID: "alert-1", Room: "exam-9", Condition: debounce.Device, Time: at})

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		t.Fatalf("ParseMessage error: %v", err)
	}
	if msg.Type != protocol.TypeAlert {
		t.Fatalf("Type = %s, want alert", msg.Type)
	}
	alert, err := msg.GetAlertData()
	if err != nil {
		t.Fatalf("GetAlertData error: %v", err)
	}
	if alert.ID != "alert-1" || alert.Room != "exam-9" || alert.Condition != "device" {
		t.Errorf("alert = %+v", alert)
	}
	if !alert.Time.Equal(at) {
		t.Errorf("Time = %v, want %v", alert.Time, at)
	}
}

func TestRoomFilter(t *testing.T) {
	h := startHub(t, "18191")
	ws := dialAlerts(t, "ws://localhost:18191/ws/alerts?room=exam-a")
	if !waitClients(h, 1) {
		t.Fatalf("ClientCount = %d, want 1", h.ClientCount())
	}

	h.Publish(debounce.Alert{ID: "other", Room: "exam-b", Condition: debounce.Human, Time: time.Now()})
	h.Publish(debounce.Alert{ID: "mine", Room: "exam-a", Condition: debounce.Human, Time: time.Now()})

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	msg, _ := protocol.ParseMessage(data)
	alert, _ := msg.GetAlertData()
	if alert == nil || alert.ID != "mine" {
		t.Errorf("first alert = %+v, want mine", alert)
	}
}

func TestDisconnect(t *testing.T) {
	h := startHub(t, "18192")
	ws := dialAlerts(t, "ws://localhost:18192/ws/alerts")
	if !waitClients(h, 1) {
		t.Fatalf("ClientCount = %d, want 1", h.ClientCount())
	}

	ws.Close()
	if !waitClients(h, 0) {
		t.Errorf("ClientCount = %d, want 0 after disconnect", h.ClientCount())
	}
}

func TestUpgradeRequired(t *testing.T) {
	h := New()
	app := fiber.New()
	h.RegisterRoutes(app)

	resp, err := app.Test(httptest.NewRequest("GET", "/ws/alerts", nil))
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != fiber.StatusUpgradeRequired {
		t.Errorf("Status = %d, want 426", resp.StatusCode)
	}
}
