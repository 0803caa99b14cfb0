// Package protocol defines the WebSocket messages exchanged with streaming
// devices and proctor dashboards.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Device → Server messages
	TypeFrame MessageType = "frame" // Screen or camera still

	// Server → Device messages
	TypeOverlay     MessageType = "overlay"     // Overlay analysis result
	TypeMalpractice MessageType = "malpractice" // Person/phone analysis result
	TypeError       MessageType = "error"       // Frame rejected

	// Server → Dashboard messages
	TypeAlert MessageType = "alert" // Debounced malpractice alert

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// FrameKind says which pipeline a frame goes through.
type FrameKind string

const (
	KindScreen FrameKind = "screen" // Overlay analysis
	KindCamera FrameKind = "camera" // Person/phone detection
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// FrameData carries one encoded still
type FrameData struct {
	Kind    FrameKind `json:"kind"`
	Format  string    `json:"format"` // "jpeg", "png"
	Data    string    `json:"data"`   // base64 encoded
	FrameID uint64    `json:"frame_id,omitempty"`
	Width   int       `json:"width,omitempty"`
	Height  int       `json:"height,omitempty"`
}

// AlertData announces a debounced alert to dashboards
type AlertData struct {
	ID        string    `json:"id"`
	Room      string    `json:"room"`
	Condition string    `json:"condition"`
	Time      time.Time `json:"time"`
}

// ResultData carries an analysis result for one frame
type ResultData struct {
	FrameID uint64          `json:"frame_id,omitempty"`
	Result  json.RawMessage `json:"result"`
}

// ErrorData explains why a frame was rejected
type ErrorData struct {
	FrameID uint64 `json:"frame_id,omitempty"`
	Message string `json:"message"`
}

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
