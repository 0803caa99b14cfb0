// Package calibration learns the overlay decision threshold from labelled
// frames and persists it as a profile.
package calibration

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Label marks a sample as a normal screen or one with a cheating overlay.
type Label string

const (
	Normal Label = "normal"
	Cheat  Label = "cheat"
)

// Title returns the label capitalized for sample descriptions.
func (l Label) Title() string {
	if l == "" {
		return ""
	}
	return strings.ToUpper(string(l[:1])) + string(l[1:])
}

// Sample is one analysed calibration frame.
type Sample struct {
	Label       Label   `json:"label"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
	// RegionCount is the number of suspicious regions the frame produced.
	RegionCount  int     `json:"suspicious_regions"`
	ColorRegions int     `json:"color_regions"`
	TextScore    float64 `json:"text_score"`
	// Details keeps the raw analysis for later re-analysis.
	Details map[string]any `json:"analysis_details,omitempty"`
}

// Stats summarizes one population.
type Stats struct {
	Count      int     `json:"count"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Mean       float64 `json:"mean"`
	MinRegions int     `json:"min_regions"`
	MaxRegions int     `json:"max_regions"`
}

// FeatureStats is the mean and max of one feature across a population.
type FeatureStats struct {
	Mean float64 `json:"mean"`
	Max  float64 `json:"max"`
}

// Features compares per-extractor features between populations.
type Features struct {
	NormalColor FeatureStats `json:"normal_color_regions"`
	CheatColor  FeatureStats `json:"cheat_color_regions"`
	NormalText  FeatureStats `json:"normal_text_score"`
	CheatText   FeatureStats `json:"cheat_text_score"`
}

// Result is a successful calibration.
type Result struct {
	Threshold float64  `json:"threshold"`
	Normal    Stats    `json:"normal"`
	Cheat     Stats    `json:"cheat"`
	Features  Features `json:"features"`
}

// Calibrate derives a threshold halfway between the most confident normal
// sample and the least confident cheat sample. It fails when either set is
// empty or when the populations overlap.
func Calibrate(normal, cheat []Sample) (Result, error) {
	if len(normal) == 0 {
		return Result{}, ErrNoNormalSamples
	}
	if len(cheat) == 0 {
		return Result{}, ErrNoCheatSamples
	}

	ns := Summarize(normal)
	cs := Summarize(cheat)

	if !(ns.Max < cs.Min) {
		return Result{}, &OverlapError{MaxNormal: ns.Max, MinCheat: cs.Min}
	}

	return Result{
		Threshold: (ns.Max + cs.Min) / 2,
		Normal:    ns,
		Cheat:     cs,
		Features:  AnalyzeFeatures(normal, cheat),
	}, nil
}

// Summarize computes confidence and region statistics. An empty slice
// yields a zero Stats.
func Summarize(samples []Sample) Stats {
	if len(samples) == 0 {
		return Stats{}
	}
	s := Stats{
		Count:      len(samples),
		Min:        math.Inf(1),
		Max:        math.Inf(-1),
		MinRegions: math.MaxInt,
	}
	sum := 0.0
	for _, smp := range samples {
		sum += smp.Confidence
		s.Min = math.Min(s.Min, smp.Confidence)
		s.Max = math.Max(s.Max, smp.Confidence)
		s.MinRegions = min(s.MinRegions, smp.RegionCount)
		s.MaxRegions = max(s.MaxRegions, smp.RegionCount)
	}
	s.Mean = sum / float64(len(samples))
	return s
}

// AnalyzeFeatures reports colour-region and text-score statistics for
// both populations, to show which extractor separates them.
func AnalyzeFeatures(normal, cheat []Sample) Features {
	return Features{
		NormalColor: featureStats(normal, func(s Sample) float64 { return float64(s.ColorRegions) }),
		CheatColor:  featureStats(cheat, func(s Sample) float64 { return float64(s.ColorRegions) }),
		NormalText:  featureStats(normal, func(s Sample) float64 { return s.TextScore }),
		CheatText:   featureStats(cheat, func(s Sample) float64 { return s.TextScore }),
	}
}

func featureStats(samples []Sample, get func(Sample) float64) FeatureStats {
	if len(samples) == 0 {
		return FeatureStats{}
	}
	var fs FeatureStats
	sum := 0.0
	for i, s := range samples {
		v := get(s)
		sum += v
		if i == 0 || v > fs.Max {
			fs.Max = v
		}
	}
	fs.Mean = sum / float64(len(samples))
	return fs
}

// Profile is the persisted calibration: the threshold and the samples it
// was learned from.
type Profile struct {
	ID                 string   `json:"id"`
	Threshold          float64  `json:"threshold"`
	NormalSamplesCount int      `json:"normal_samples_count"`
	CheatSamplesCount  int      `json:"cheat_samples_count"`
	NormalSamples      []Sample `json:"normal_samples"`
	CheatSamples       []Sample `json:"cheat_samples"`
	Timestamp          string   `json:"timestamp"`
}

// NewProfile builds a profile from a successful calibration.
func NewProfile(res Result, normal, cheat []Sample, now time.Time) *Profile {
	return &Profile{
		ID:                 uuid.New().String(),
		Threshold:          res.Threshold,
		NormalSamplesCount: len(normal),
		CheatSamplesCount:  len(cheat),
		NormalSamples:      normal,
		CheatSamples:       cheat,
		Timestamp:          now.UTC().Format(time.RFC3339),
	}
}
