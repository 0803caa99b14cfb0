// Package malpractice turns per-frame person and phone findings into
// debounced proctoring alerts.
package malpractice

import (
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-truesight/internal/log"
	"github.com/teslashibe/go-truesight/pkg/debounce"
)

// Alert messages, human first.
const (
	HumanAlert  = "Human detected"
	DeviceAlert = "Smartphone detected"
)

// Finding is one detected object in pixel coordinates.
type Finding struct {
	ClassName  string     `json:"class_name"`
	Confidence float64    `json:"confidence"`
	BBox       [4]float64 `json:"bbox"` // x1, y1, x2, y2
}

// Result is the per-frame malpractice verdict.
type Result struct {
	HumansDetected      int       `json:"humans_detected"`
	HumanDetections     []Finding `json:"human_detections"`
	OtherObjects        []Finding `json:"other_objects"`
	MalpracticeDetected bool      `json:"malpractice_detected"`
	Alerts              []string  `json:"alerts"`
	Confidence          float64   `json:"confidence"`
	ProcessingTimeMs    float64   `json:"processing_time_ms"`
}

// Sink receives every alert the analyzer raises.
type Sink interface {
	Publish(a debounce.Alert)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(debounce.Alert)

func (f SinkFunc) Publish(a debounce.Alert) { f(a) }

// Analyzer feeds findings through the debounce store.
type Analyzer struct {
	store debounce.Store
	log   *slog.Logger
	now   func() time.Time

	mu    sync.RWMutex
	sinks []Sink
}

// NewAnalyzer creates an analyzer over a debounce store.
func NewAnalyzer(store debounce.Store, sinks ...Sink) *Analyzer {
	return &Analyzer{
		store: store,
		sinks: sinks,
		log:   log.Component("malpractice"),
		now:   time.Now,
	}
}

// AddSink registers another alert sink.
func (a *Analyzer) AddSink(s Sink) {
	a.mu.Lock()
	a.sinks = append(a.sinks, s)
	a.mu.Unlock()
}

// Analyze updates the room with this frame's counts and reports any new
// alert. started is when the frame arrived; it dates processing time.
func (a *Analyzer) Analyze(room string, persons, phones []Finding, started time.Time) Result {
	alerts := a.Observe(room, debounce.Outcome{Humans: len(persons), Devices: len(phones)})

	res := Result{
		HumansDetected:  len(persons),
		HumanDetections: nonNil(persons),
		OtherObjects:    nonNil(phones),
		Alerts:          make([]string, 0, len(alerts)),
	}
	for _, al := range alerts {
		switch al.Condition {
		case debounce.Human:
			res.Alerts = append(res.Alerts, HumanAlert)
		case debounce.Device:
			res.Alerts = append(res.Alerts, DeviceAlert)
		}
	}
	res.MalpracticeDetected = len(res.Alerts) > 0

	for _, p := range persons {
		if p.Confidence > res.Confidence {
			res.Confidence = p.Confidence
		}
	}
	res.ProcessingTimeMs = float64(a.now().Sub(started).Microseconds()) / 1000
	return res
}

// Observe applies raw counts to a room and publishes any alerts. It serves
// detectors that run outside this service.
func (a *Analyzer) Observe(room string, o debounce.Outcome) []debounce.Alert {
	alerts := a.store.Update(room, o)
	if len(alerts) == 0 {
		return nil
	}

	a.mu.RLock()
	sinks := a.sinks
	a.mu.RUnlock()

	for _, al := range alerts {
		a.log.Info("malpractice alert", "room", room, "condition", al.Condition, "alert_id", al.ID)
		for _, s := range sinks {
			s.Publish(al)
		}
	}
	return alerts
}

func nonNil(f []Finding) []Finding {
	if f == nil {
		return []Finding{}
	}
	return f
}
