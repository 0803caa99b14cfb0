package calibration

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samples(label Label, confidences ...float64) []Sample {
	out := make([]Sample, len(confidences))
	for i, c := range confidences {
		out[i] = Sample{Label: label, Confidence: c}
	}
	return out
}

func TestCalibrateSeparable(t *testing.T) {
	res, err := Calibrate(samples(Normal, 0.1, 0.2, 0.15), samples(Cheat, 0.8, 0.9, 0.85))
	require.NoError(t, err)

	assert.InDelta(t, 0.5, res.Threshold, 1e-9)
	assert.InDelta(t, 0.2, res.Normal.Max, 1e-9)
	assert.InDelta(t, 0.8, res.Cheat.Min, 1e-9)
	assert.InDelta(t, 0.15, res.Normal.Mean, 1e-9)
	assert.Equal(t, 3, res.Cheat.Count)
}

func TestCalibrateOverlap(t *testing.T) {
	_, err := Calibrate(samples(Normal, 0.1, 0.7), samples(Cheat, 0.6, 0.9))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOverlap))

	var oe *OverlapError
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, 0.7, oe.MaxNormal)
	assert.Equal(t, 0.6, oe.MinCheat)
}

func TestCalibrateTouchingPopulationsOverlap(t *testing.T) {
	_, err := Calibrate(samples(Normal, 0.5), samples(Cheat, 0.5))
	assert.ErrorIs(t, err, ErrOverlap)
}

func TestCalibrateEmptySets(t *testing.T) {
	_, err := Calibrate(nil, samples(Cheat, 0.9))
	assert.ErrorIs(t, err, ErrNoNormalSamples)

	_, err = Calibrate(samples(Normal, 0.1), nil)
	assert.ErrorIs(t, err, ErrNoCheatSamples)
}

func TestSummarize(t *testing.T) {
	in := []Sample{
		{Confidence: 0.2, RegionCount: 3},
		{Confidence: 0.4, RegionCount: 1},
		{Confidence: 0.3, RegionCount: 7},
	}
	s := Summarize(in)
	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 0.2, s.Min, 1e-9)
	assert.InDelta(t, 0.4, s.Max, 1e-9)
	assert.InDelta(t, 0.3, s.Mean, 1e-9)
	assert.Equal(t, 1, s.MinRegions)
	assert.Equal(t, 7, s.MaxRegions)

	assert.Equal(t, Stats{}, Summarize(nil))
}

func TestAnalyzeFeatures(t *testing.T) {
	normal := []Sample{{ColorRegions: 1, TextScore: 0.1}, {ColorRegions: 3, TextScore: 0.3}}
	cheat := []Sample{{ColorRegions: 6, TextScore: 0.9}}

	f := AnalyzeFeatures(normal, cheat)
	assert.InDelta(t, 2, f.NormalColor.Mean, 1e-9)
	assert.InDelta(t, 3, f.NormalColor.Max, 1e-9)
	assert.InDelta(t, 6, f.CheatColor.Max, 1e-9)
	assert.InDelta(t, 0.2, f.NormalText.Mean, 1e-9)
	assert.InDelta(t, 0.9, f.CheatText.Mean, 1e-9)
}

func TestNewProfile(t *testing.T) {
	normal := samples(Normal, 0.1)
	cheat := samples(Cheat, 0.9, 0.8)
	now := time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

	p := NewProfile(Result{Threshold: 0.45}, normal, cheat, now)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, 0.45, p.Threshold)
	assert.Equal(t, 1, p.NormalSamplesCount)
	assert.Equal(t, 2, p.CheatSamplesCount)
	assert.Equal(t, "2026-05-04T10:30:00Z", p.Timestamp)
}

func TestLabelTitle(t *testing.T) {
	assert.Equal(t, "Normal", Normal.Title())
	assert.Equal(t, "Cheat", Cheat.Title())
	assert.Equal(t, "", Label("").Title())
}

func TestEffectiveThreshold(t *testing.T) {
	assert.Equal(t, 0.6, EffectiveThreshold(nil, 0.6))
	assert.Equal(t, 0.42, EffectiveThreshold(&Profile{Threshold: 0.42}, 0.6))
	assert.Equal(t, 0.6, EffectiveThreshold(&Profile{}, 0.6))
}
