package debounce

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
)

var _ Store = (*MemoryStore)(nil)

// EvictReason says why a room was dropped.
type EvictReason string

const (
	EvictedCapacity EvictReason = "capacity"
	EvictedExpired  EvictReason = "expired"
)

// MemoryStore is an in-process Store bounded by room count and idle TTL.
//
// The store mutex only guards the map and the recency list; each room's
// updates are serialized by the room's own mutex, so rooms never wait on
// each other's updates.
type MemoryStore struct {
	cfg Config

	mu    sync.Mutex
	rooms map[string]*list.Element
	// order holds *Room, most recently used at the front.
	order *list.List

	now     func() time.Time
	onEvict func(room string, reason EvictReason)
	evicted atomic.Uint64
}

// StoreOption configures a MemoryStore.
type StoreOption func(*MemoryStore)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *MemoryStore) { s.now = now }
}

// WithEvictHook registers a callback run for each evicted room. It is
// called with the store lock held and must not call back into the store.
func WithEvictHook(fn func(room string, reason EvictReason)) StoreOption {
	return func(s *MemoryStore) { s.onEvict = fn }
}

// NewMemoryStore creates a store. Zero window lengths or capacity fall back
// to DefaultConfig values; a zero TTL disables expiry.
func NewMemoryStore(cfg Config, opts ...StoreOption) *MemoryStore {
	def := DefaultConfig()
	if cfg.HumanWindow < 1 {
		cfg.HumanWindow = def.HumanWindow
	}
	if cfg.DeviceWindow < 1 {
		cfg.DeviceWindow = def.DeviceWindow
	}
	if cfg.MaxRooms < 1 {
		cfg.MaxRooms = def.MaxRooms
	}

	s := &MemoryStore{
		cfg:   cfg,
		rooms: make(map[string]*list.Element),
		order: list.New(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreate returns the live room, replacing it if it has expired.
func (s *MemoryStore) GetOrCreate(room string) *Room {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.rooms[room]; ok {
		r := el.Value.(*Room)
		if !r.expired(now, s.cfg.TTL) {
			r.touch(now)
			s.order.MoveToFront(el)
			return r
		}
		s.remove(el, EvictedExpired)
	}

	r := newRoom(room, s.cfg, now)
	s.rooms[room] = s.order.PushFront(r)
	for s.order.Len() > s.cfg.MaxRooms {
		s.remove(s.order.Back(), EvictedCapacity)
	}
	return r
}

// Update applies one frame outcome to a room.
func (s *MemoryStore) Update(room string, o Outcome) []Alert {
	r := s.GetOrCreate(room)
	return r.Observe(o, s.now())
}

// Sweep drops every room idle for longer than the TTL and returns how many
// were removed.
func (s *MemoryStore) Sweep() int {
	if s.cfg.TTL <= 0 {
		return 0
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for el := s.order.Back(); el != nil; {
		prev := el.Prev()
		if el.Value.(*Room).expired(now, s.cfg.TTL) {
			s.remove(el, EvictedExpired)
			removed++
		}
		el = prev
	}
	return removed
}

// Remove drops a room explicitly, e.g. when its session ends.
func (s *MemoryStore) Remove(room string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.rooms[room]
	if !ok {
		return false
	}
	s.order.Remove(el)
	delete(s.rooms, room)
	return true
}

func (s *MemoryStore) remove(el *list.Element, reason EvictReason) {
	r := el.Value.(*Room)
	s.order.Remove(el)
	delete(s.rooms, r.ID)
	s.evicted.Add(1)
	if s.onEvict != nil {
		s.onEvict(r.ID, reason)
	}
}

// Len returns the number of live rooms.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// Evicted returns how many rooms have been evicted.
func (s *MemoryStore) Evicted() uint64 {
	return s.evicted.Load()
}

// Rooms snapshots every live room, most recently used first.
func (s *MemoryStore) Rooms() []RoomSnapshot {
	s.mu.Lock()
	rooms := make([]*Room, 0, s.order.Len())
	for el := s.order.Front(); el != nil; el = el.Next() {
		rooms = append(rooms, el.Value.(*Room))
	}
	s.mu.Unlock()

	out := make([]RoomSnapshot, len(rooms))
	for i, r := range rooms {
		out[i] = r.Snapshot()
	}
	return out
}

// Config returns the effective configuration.
func (s *MemoryStore) Config() Config {
	return s.cfg
}
