// Package debounce turns per-frame person and device detections into
// one-shot alerts per room.
//
// Each room tracks two conditions with their own window length. An alert
// fires when a window becomes entirely true and rearms only after a
// false outcome.
package debounce

import (
	"time"

	"github.com/google/uuid"
)

// Condition names a tracked malpractice condition.
type Condition string

const (
	Human  Condition = "human"
	Device Condition = "device"
)

// Outcome thresholds: a single detected instance counts.
const (
	HumanThreshold  = 1
	DeviceThreshold = 1
)

// Outcome is one frame's detection counts for a room.
type Outcome struct {
	Humans  int `json:"humans"`
	Devices int `json:"devices"`
}

// HumanPresent reports the human condition for the frame.
func (o Outcome) HumanPresent() bool { return o.Humans >= HumanThreshold }

// DevicePresent reports the device condition for the frame.
func (o Outcome) DevicePresent() bool { return o.Devices >= DeviceThreshold }

// Alert is a condition that just became persistent in a room.
type Alert struct {
	ID        string    `json:"id"`
	Room      string    `json:"room"`
	Condition Condition `json:"condition"`
	Time      time.Time `json:"time"`
}

func newAlert(room string, c Condition, now time.Time) Alert {
	return Alert{ID: uuid.New().String(), Room: room, Condition: c, Time: now}
}

// Config holds window lengths and room eviction limits.
type Config struct {
	HumanWindow  int
	DeviceWindow int
	MaxRooms     int
	TTL          time.Duration
}

// DefaultConfig returns H=4, P=2, 10000 rooms, 2h idle TTL.
func DefaultConfig() Config {
	return Config{
		HumanWindow:  4,
		DeviceWindow: 2,
		MaxRooms:     10000,
		TTL:          2 * time.Hour,
	}
}

// Store holds per-room debounce state.
type Store interface {
	// GetOrCreate returns the room, creating it on first use.
	GetOrCreate(room string) *Room
	// Update applies one frame outcome to the room and returns new alerts,
	// human before device.
	Update(room string, o Outcome) []Alert
	// Len returns the number of live rooms.
	Len() int
	// Rooms returns a snapshot of every live room.
	Rooms() []RoomSnapshot
}
