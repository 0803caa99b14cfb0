package protocol

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    interface{}
		wantErr bool
	}{
		{
			name:    "frame message",
			msgType: TypeFrame,
			data:    FrameData{Kind: KindCamera, Format: "jpeg"},
		},
		{
			name:    "alert message",
			msgType: TypeAlert,
			data:    AlertData{ID: "a1", Room: "r", Condition: "human"},
		},
		{
			name:    "nil data",
			msgType: TypePing,
			data:    nil,
		},
		{
			name:    "unmarshalable data",
			msgType: TypeOverlay,
			data:    make(chan int),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
		})
	}
}

func TestFrameMessageRoundTrip(t *testing.T) {
	jpegData := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}

	msg, err := NewFrameMessage(KindCamera, jpegData, 42)
	if err != nil {
		t.Fatalf("NewFrameMessage() error = %v", err)
	}

	raw, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	parsed, err := ParseMessage(raw)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if parsed.Type != TypeFrame {
		t.Errorf("Type = %v, want %v", parsed.Type, TypeFrame)
	}

	frame, err := parsed.GetFrameData()
	if err != nil {
		t.Fatalf("GetFrameData() error = %v", err)
	}
	if frame.Kind != KindCamera {
		t.Errorf("Kind = %v, want %v", frame.Kind, KindCamera)
	}
	if frame.FrameID != 42 {
		t.Errorf("FrameID = %v, want 42", frame.FrameID)
	}

	decoded, err := frame.DecodeFrameData()
	if err != nil {
		t.Fatalf("DecodeFrameData() error = %v", err)
	}
	if string(decoded) != string(jpegData) {
		t.Errorf("DecodeFrameData() = %x, want %x", decoded, jpegData)
	}
}

func TestFrameKindDefaultsToScreen(t *testing.T) {
	msg := &Message{Type: TypeFrame, Data: json.RawMessage(`{"data":"AAAA"}`)}
	frame, err := msg.GetFrameData()
	if err != nil {
		t.Fatalf("GetFrameData() error = %v", err)
	}
	if frame.Kind != KindScreen {
		t.Errorf("Kind = %v, want %v", frame.Kind, KindScreen)
	}
}

func TestAlertMessage(t *testing.T) {
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	msg, err := NewAlertMessage("id-1", "exam-9", "device", at)
	if err != nil {
		t.Fatalf("NewAlertMessage() error = %v", err)
	}

	alert, err := msg.GetAlertData()
	if err != nil {
		t.Fatalf("GetAlertData() error = %v", err)
	}
	if alert.Room != "exam-9" || alert.Condition != "device" {
		t.Errorf("GetAlertData() = %+v", alert)
	}
	if !alert.Time.Equal(at) {
		t.Errorf("Time = %v, want %v", alert.Time, at)
	}
}

func TestErrorMessage(t *testing.T) {
	msg, err := NewErrorMessage(7, "could not decode image")
	if err != nil {
		t.Fatalf("NewErrorMessage() error = %v", err)
	}
	data, err := msg.GetErrorData()
	if err != nil {
		t.Fatalf("GetErrorData() error = %v", err)
	}
	if data.FrameID != 7 || data.Message != "could not decode image" {
		t.Errorf("GetErrorData() = %+v", data)
	}
}

func TestPingPongMessage(t *testing.T) {
	ping, err := NewPingMessage("ping-1")
	if err != nil {
		t.Fatalf("NewPingMessage() error = %v", err)
	}
	pingData, err := ping.GetPingData()
	if err != nil {
		t.Fatalf("GetPingData() error = %v", err)
	}
	if pingData.ID != "ping-1" {
		t.Errorf("ID = %v, want ping-1", pingData.ID)
	}
	if pingData.Timestamp == 0 {
		t.Error("ping timestamp should be set")
	}

	pong, err := NewPongMessage(pingData.ID, 1000, 1025)
	if err != nil {
		t.Fatalf("NewPongMessage() error = %v", err)
	}
	pongData, err := pong.GetPongData()
	if err != nil {
		t.Fatalf("GetPongData() error = %v", err)
	}
	if pongData.LatencyMs != 25 {
		t.Errorf("LatencyMs = %v, want 25", pongData.LatencyMs)
	}
}

func TestParseInvalidMessage(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"invalid json", "not json", true},
		{"missing type", "{}", true},
		{"valid message", `{"type":"ping","ts":1234567890}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMessage([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestResultMessage(t *testing.T) {
	msg, err := NewResultMessage(TypeOverlay, 9, map[string]any{"has_overlay": true})
	if err != nil {
		t.Fatalf("NewResultMessage() error = %v", err)
	}
	data, err := msg.GetResultData()
	if err != nil {
		t.Fatalf("GetResultData() error = %v", err)
	}
	if data.FrameID != 9 {
		t.Errorf("FrameID = %d, want 9", data.FrameID)
	}
	var res struct {
		HasOverlay bool `json:"has_overlay"`
	}
	if err := json.Unmarshal(data.Result, &res); err != nil || !res.HasOverlay {
		t.Errorf("Result = %s, err = %v", data.Result, err)
	}
}

func TestMessageJSON(t *testing.T) {
	msg := &Message{Type: TypePing, Timestamp: 1234567890}
	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"type":"ping","ts":1234567890}`
	if string(raw) != want {
		t.Errorf("Marshal() = %s, want %s", raw, want)
	}
}

func BenchmarkParseMessage(b *testing.B) {
	msg, _ := NewFrameMessage(KindScreen, make([]byte, 50000), 1)
	raw, _ := msg.Bytes()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ParseMessage(raw)
	}
}
