// Package ingest accepts frame streams from proctored devices over
// WebSocket, one room per exam session.
package ingest

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/teslashibe/go-truesight/internal/log"
	"github.com/teslashibe/go-truesight/pkg/protocol"
	"golang.org/x/time/rate"
)

// FrameHandler analyses one frame and returns the reply for the device,
// or nil for no reply. An error is reported back as a protocol error
// message.
type FrameHandler func(ctx context.Context, room, deviceID string, frame *protocol.FrameData) (*protocol.Message, error)

// DeviceConnection represents a connected device
type DeviceConnection struct {
	ID        string
	Room      string
	Conn      *websocket.Conn
	Connected time.Time

	limiter  *rate.Limiter
	lastSeen atomic.Int64
	mu       sync.Mutex
}

// Send sends a message to the device
func (d *DeviceConnection) Send(msg *protocol.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	return d.Conn.WriteMessage(websocket.TextMessage, data)
}

// LastSeen returns when the device last sent a message.
func (d *DeviceConnection) LastSeen() time.Time {
	return time.UnixMilli(d.lastSeen.Load())
}

// Hub manages WebSocket connections from devices
type Hub struct {
	mu      sync.RWMutex
	devices map[string]*DeviceConnection
	onFrame FrameHandler
	fps     float64
	log     *slog.Logger

	// Stats
	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	framesReceived   atomic.Uint64
	framesDropped    atomic.Uint64
}

// NewHub creates a device hub. fps caps the frames analysed per device per
// second; zero or less disables the cap.
func NewHub(fps float64) *Hub {
	return &Hub{
		devices: make(map[string]*DeviceConnection),
		fps:     fps,
		log:     log.Component("ingest"),
	}
}

// OnFrame sets the frame handler
func (h *Hub) OnFrame(fn FrameHandler) {
	h.mu.Lock()
	h.onFrame = fn
	h.mu.Unlock()
}

// RegisterRoutes registers the device WebSocket route on a Fiber app
func (h *Hub) RegisterRoutes(app *fiber.App) {
	app.Use("/ws/room", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/room/:room", websocket.New(h.handleDevice))
}

func (h *Hub) handleDevice(c *websocket.Conn) {
	room := c.Params("room")
	now := time.Now()
	dev := &DeviceConnection{
		ID:        uuid.New().String(),
		Room:      room,
		Conn:      c,
		Connected: now,
	}
	dev.lastSeen.Store(now.UnixMilli())
	if h.fps > 0 {
		burst := int(h.fps)
		if burst < 1 {
			burst = 1
		}
		dev.limiter = rate.NewLimiter(rate.Limit(h.fps), burst)
	}

	ctx, cancel := context.WithCancel(context.Background())

	h.mu.Lock()
	h.devices[dev.ID] = dev
	count := len(h.devices)
	h.mu.Unlock()
	h.log.Info("device connected", "room", room, "device_id", dev.ID, "total", count)

	defer func() {
		cancel()
		h.mu.Lock()
		delete(h.devices, dev.ID)
		count := len(h.devices)
		h.mu.Unlock()
		h.log.Info("device disconnected", "room", room, "device_id", dev.ID, "total", count)
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			h.log.Debug("device read error", "device_id", dev.ID, "error", err)
			return
		}
		dev.lastSeen.Store(time.Now().UnixMilli())
		h.messagesReceived.Add(1)
		h.handleMessage(ctx, dev, data)
	}
}

// handleMessage processes one incoming message from a device
func (h *Hub) handleMessage(ctx context.Context, dev *DeviceConnection, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		h.log.Debug("parse error", "device_id", dev.ID, "error", err)
		return
	}

	switch msg.Type {
	case protocol.TypeFrame:
		h.framesReceived.Add(1)
		frame, err := msg.GetFrameData()
		if err != nil {
			h.reply(dev, errorMessage(0, err))
			return
		}
		if dev.limiter != nil && !dev.limiter.Allow() {
			h.framesDropped.Add(1)
			return
		}

		h.mu.RLock()
		fn := h.onFrame
		h.mu.RUnlock()
		if fn == nil {
			return
		}

		resp, err := fn(ctx, dev.Room, dev.ID, frame)
		if err != nil {
			h.reply(dev, errorMessage(frame.FrameID, err))
			return
		}
		if resp != nil {
			h.reply(dev, resp)
		}

	case protocol.TypePing:
		var id string
		if ping, err := msg.GetPingData(); err == nil {
			id = ping.ID
		}
		pong, err := protocol.NewPongMessage(id, msg.Timestamp, time.Now().UnixMilli())
		if err == nil {
			h.reply(dev, pong)
		}
	}
}

func errorMessage(frameID uint64, err error) *protocol.Message {
	msg, _ := protocol.NewErrorMessage(frameID, err.Error())
	return msg
}

func (h *Hub) reply(dev *DeviceConnection, msg *protocol.Message) {
	if msg == nil {
		return
	}
	h.messagesSent.Add(1)
	if err := dev.Send(msg); err != nil {
		h.log.Debug("device write error", "device_id", dev.ID, "error", err)
	}
}

// DeviceCount returns the number of connected devices
func (h *Hub) DeviceCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.devices)
}

// Stats contains hub statistics
type Stats struct {
	DeviceCount      int    `json:"device_count"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	FramesReceived   uint64 `json:"frames_received"`
	FramesDropped    uint64 `json:"frames_dropped"`
}

// GetStats returns hub statistics
func (h *Hub) GetStats() Stats {
	return Stats{
		DeviceCount:      h.DeviceCount(),
		MessagesReceived: h.messagesReceived.Load(),
		MessagesSent:     h.messagesSent.Load(),
		FramesReceived:   h.framesReceived.Load(),
		FramesDropped:    h.framesDropped.Load(),
	}
}

// DeviceInfo contains info about a connected device
type DeviceInfo struct {
	ID        string    `json:"id"`
	Room      string    `json:"room"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
}

// GetDeviceInfos returns info about all connected devices
func (h *Hub) GetDeviceInfos() []DeviceInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	infos := make([]DeviceInfo, 0, len(h.devices))
	for _, d := range h.devices {
		infos = append(infos, DeviceInfo{
			ID:        d.ID,
			Room:      d.Room,
			Connected: d.Connected,
			LastSeen:  d.LastSeen(),
		})
	}
	return infos
}

// RegisterAPIRoutes registers device listing routes
func (h *Hub) RegisterAPIRoutes(api fiber.Router) {
	devices := api.Group("/devices")

	devices.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"devices": h.GetDeviceInfos(),
			"count":   h.DeviceCount(),
		})
	})

	devices.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(h.GetStats())
	})
}
