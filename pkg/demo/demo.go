// Package demo scripts overlay alerts for product demos. It is mounted on
// its own routes and never looks at real frames.
package demo

import (
	"sync"
	"time"

	"github.com/teslashibe/go-truesight/pkg/report"
	"github.com/teslashibe/go-truesight/pkg/signal"
)

// Sequence parameters.
const (
	MaxAlerts  = 4
	MinSpacing = 2 * time.Second
	// IdleTimeout drops sequences that stopped polling before finishing.
	IdleTimeout = 5 * time.Minute

	TabSwitchType = "tab_switch_detected"
	OverlayType   = "overlay_detected"
	TabSwitchConf = 0.90
	OverlayConf   = 0.95
)

const (
	extraDemoMode  = "demo_mode"
	extraEvent     = "event"
	extraSequence  = "alert_sequence"
	extraComplete  = "sequence_complete"
	tabSwitchEvent = "tab_switch"
)

// demoRegion is the fixed region reported with scripted alerts.
var demoRegion = signal.Region{X: 100, Y: 100, W: 200, H: 150}

type sequence struct {
	active bool
	sent   int
	last   time.Time
}

// Sequencer tracks one scripted sequence per room.
type Sequencer struct {
	mu    sync.Mutex
	rooms map[string]*sequence
}

// NewSequencer creates an empty sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{rooms: make(map[string]*sequence)}
}

// Start (re)starts a room's sequence and returns the tab-switch event.
func (s *Sequencer) Start(room string, now time.Time) report.Result {
	s.mu.Lock()
	s.prune(now)
	s.rooms[room] = &sequence{active: true, last: now}
	s.mu.Unlock()

	t := TabSwitchType
	return report.Result{
		HasOverlay:        true,
		Confidence:        TabSwitchConf,
		OverlayType:       &t,
		SuspiciousRegions: []signal.Region{},
		AnalysisDetails: report.Details{
			Extra: map[string]any{extraDemoMode: true, extraEvent: tabSwitchEvent},
		},
		Timestamp: now.Format(time.RFC3339Nano),
	}
}

// Next returns the next scripted alert once MinSpacing has passed since the
// previous one. Outside an active sequence, or too early, it returns a
// no-overlay result.
func (s *Sequencer) Next(room string, now time.Time) report.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prune(now)
	seq, ok := s.rooms[room]
	if !ok || !seq.active || seq.sent >= MaxAlerts || now.Sub(seq.last) < MinSpacing {
		complete := !ok || !seq.active
		return report.Result{
			SuspiciousRegions: []signal.Region{},
			AnalysisDetails: report.Details{
				Extra: map[string]any{extraDemoMode: true, extraComplete: complete},
			},
			Timestamp: now.Format(time.RFC3339Nano),
		}
	}

	seq.sent++
	seq.last = now
	n := seq.sent
	if seq.sent >= MaxAlerts {
		delete(s.rooms, room)
	}

	t := OverlayType
	return report.Result{
		HasOverlay:        true,
		Confidence:        OverlayConf,
		OverlayType:       &t,
		SuspiciousRegions: []signal.Region{demoRegion},
		AnalysisDetails: report.Details{
			Extra: map[string]any{extraDemoMode: true, extraSequence: n},
		},
		Timestamp: now.Format(time.RFC3339Nano),
	}
}

// Len returns the number of rooms with a running sequence.
func (s *Sequencer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// prune drops sequences idle for longer than IdleTimeout. Callers hold mu.
func (s *Sequencer) prune(now time.Time) {
	for room, seq := range s.rooms {
		if now.Sub(seq.last) > IdleTimeout {
			delete(s.rooms, room)
		}
	}
}

// Active reports whether a room has a running sequence.
func (s *Sequencer) Active(room string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq, ok := s.rooms[room]
	return ok && seq.active
}
