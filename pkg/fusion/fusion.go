// Package fusion combines extractor readings into one overlay confidence
// and picks the overlay category.
package fusion

import (
	"time"

	"github.com/teslashibe/go-truesight/pkg/signal"
)

// DefaultThreshold applies when no calibration profile is loaded.
const DefaultThreshold = 0.6

// Category labels the kind of suspicious overlay.
type Category string

const (
	CheatToolOverlay    Category = "cheat_tool_overlay"
	TextSolutionOverlay Category = "text_solution_overlay"
	PopupOverlay        Category = "popup_overlay"
	SuspiciousOverlay   Category = "suspicious_overlay"
)

// Category rule cut-offs, checked in this order.
const (
	ScenarioCutoff   = 0.5
	TextCutoff       = 0.6
	StructuralCutoff = 0.5
)

// Weights are the linear fusion coefficients.
type Weights struct {
	Color      float64
	Text       float64
	Structural float64
	Scenario   float64
}

// DefaultWeights returns 0.30 / 0.25 / 0.20 / 0.25.
func DefaultWeights() Weights {
	return Weights{Color: 0.30, Text: 0.25, Structural: 0.20, Scenario: 0.25}
}

// Scores holds the per-extractor sub-scores that went into a result.
type Scores struct {
	Color      float64 `json:"color"`
	Text       float64 `json:"text"`
	Structural float64 `json:"structural"`
	Scenario   float64 `json:"scenario"`
}

// Result is the fused verdict for one frame.
type Result struct {
	Confidence float64                   `json:"confidence"`
	HasOverlay bool                      `json:"has_overlay"`
	Category   *Category                 `json:"overlay_type"`
	Regions    []signal.Region           `json:"suspicious_regions"`
	Scores     Scores                    `json:"scores"`
	Threshold  float64                   `json:"threshold"`
	Readings   map[string]signal.Reading `json:"readings"`
	Timestamp  time.Time                 `json:"timestamp"`
}

// Fuser turns readings into a Result. It is immutable once built and safe
// for concurrent use.
type Fuser struct {
	weights   Weights
	threshold float64
	now       func() time.Time
}

// Option configures a Fuser.
type Option func(*Fuser)

// WithThreshold sets the decision threshold, typically from calibration.
func WithThreshold(t float64) Option {
	return func(f *Fuser) { f.threshold = t }
}

// WithWeights overrides the fusion weights.
func WithWeights(w Weights) Option {
	return func(f *Fuser) { f.weights = w }
}

// WithClock replaces time.Now for result timestamps.
func WithClock(now func() time.Time) Option {
	return func(f *Fuser) { f.now = now }
}

// New creates a Fuser with default weights and threshold.
func New(opts ...Option) *Fuser {
	f := &Fuser{
		weights:   DefaultWeights(),
		threshold: DefaultThreshold,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Threshold returns the active decision threshold.
func (f *Fuser) Threshold() float64 {
	return f.threshold
}

// Fuse combines readings keyed by extractor name. Missing or failed
// readings contribute zero.
func (f *Fuser) Fuse(readings map[string]signal.Reading) Result {
	s := Scores{
		Color:      score(readings, signal.Color),
		Text:       score(readings, signal.Text),
		Structural: score(readings, signal.Structural),
		Scenario:   score(readings, signal.Scenario),
	}

	confidence := signal.Clip(
		f.weights.Color*s.Color +
			f.weights.Text*s.Text +
			f.weights.Structural*s.Structural +
			f.weights.Scenario*s.Scenario)

	res := Result{
		Confidence: confidence,
		HasOverlay: confidence > f.threshold,
		Regions:    collectRegions(readings),
		Scores:     s,
		Threshold:  f.threshold,
		Readings:   readings,
		Timestamp:  f.now(),
	}
	if res.HasOverlay {
		c := Categorize(s)
		res.Category = &c
	}
	return res
}

// Categorize applies the priority rules. Callers only use it once an
// overlay has been decided.
func Categorize(s Scores) Category {
	switch {
	case s.Scenario > ScenarioCutoff:
		return CheatToolOverlay
	case s.Text > TextCutoff:
		return TextSolutionOverlay
	case s.Structural > StructuralCutoff:
		return PopupOverlay
	default:
		return SuspiciousOverlay
	}
}

func score(readings map[string]signal.Reading, name string) float64 {
	r, ok := readings[name]
	if !ok || r.Failed() {
		return 0
	}
	return signal.Clip(r.Score)
}

// collectRegions concatenates colour regions then text regions. Colour
// readings already hold their regions in palette order.
func collectRegions(readings map[string]signal.Reading) []signal.Region {
	regions := make([]signal.Region, 0)
	for _, name := range []string{signal.Color, signal.Text} {
		r, ok := readings[name]
		if !ok || r.Failed() {
			continue
		}
		regions = append(regions, r.Regions...)
	}
	return regions
}
