package debounce

import (
	"sync"
	"sync/atomic"
	"time"
)

// Room is the debounce state for one monitored session. Its mutex
// serializes updates so the push-then-decide step is atomic per room.
type Room struct {
	ID string

	mu     sync.Mutex
	human  *Tracker
	device *Tracker
	frames uint64

	// lastSeen is unix nanos, read by the store without taking mu.
	lastSeen atomic.Int64
}

func newRoom(id string, cfg Config, now time.Time) *Room {
	r := &Room{
		ID:     id,
		human:  NewTracker(cfg.HumanWindow),
		device: NewTracker(cfg.DeviceWindow),
	}
	r.touch(now)
	return r
}

// Observe applies one frame outcome and returns the alerts it raised.
func (r *Room) Observe(o Outcome, now time.Time) []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.touch(now)
	r.frames++

	var alerts []Alert
	if r.human.Observe(o.HumanPresent()) {
		alerts = append(alerts, newAlert(r.ID, Human, now))
	}
	if r.device.Observe(o.DevicePresent()) {
		alerts = append(alerts, newAlert(r.ID, Device, now))
	}
	return alerts
}

// RoomSnapshot is a read-only view of a room.
type RoomSnapshot struct {
	ID           string    `json:"id"`
	Frames       uint64    `json:"frames"`
	LastSeen     time.Time `json:"last_seen"`
	HumanWindow  []bool    `json:"human_window"`
	DeviceWindow []bool    `json:"device_window"`
	HumanArmed   bool      `json:"human_alert_armed"`
	DeviceArmed  bool      `json:"device_alert_armed"`
}

// Snapshot copies the room state.
func (r *Room) Snapshot() RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RoomSnapshot{
		ID:           r.ID,
		Frames:       r.frames,
		LastSeen:     r.seen(),
		HumanWindow:  r.human.Window(),
		DeviceWindow: r.device.Window(),
		HumanArmed:   r.human.Armed(),
		DeviceArmed:  r.device.Armed(),
	}
}

func (r *Room) touch(now time.Time) {
	r.lastSeen.Store(now.UnixNano())
}

func (r *Room) seen() time.Time {
	return time.Unix(0, r.lastSeen.Load())
}

func (r *Room) expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(r.seen()) > ttl
}
