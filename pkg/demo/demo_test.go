package demo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceTiming(t *testing.T) {
	s := NewSequencer()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	start := s.Start("r", t0)
	require.NotNil(t, start.OverlayType)
	assert.Equal(t, TabSwitchType, *start.OverlayType)
	assert.Equal(t, true, start.AnalysisDetails.Extra["demo_mode"])

	early := s.Next("r", t0.Add(time.Second))
	assert.False(t, early.HasOverlay, "alerts are at least 2s apart")
	assert.Equal(t, false, early.AnalysisDetails.Extra["sequence_complete"])

	now := t0
	for i := 1; i <= MaxAlerts; i++ {
		now = now.Add(MinSpacing)
		res := s.Next("r", now)
		require.True(t, res.HasOverlay, "alert %d", i)
		assert.Equal(t, OverlayConf, res.Confidence)
		assert.Equal(t, OverlayType, *res.OverlayType)
		assert.Equal(t, i, res.AnalysisDetails.Extra["alert_sequence"])
		assert.Len(t, res.SuspiciousRegions, 1)
	}

	done := s.Next("r", now.Add(time.Minute))
	assert.False(t, done.HasOverlay)
	assert.Equal(t, true, done.AnalysisDetails.Extra["sequence_complete"])
	assert.False(t, s.Active("r"))
}

func TestNextWithoutStart(t *testing.T) {
	s := NewSequencer()
	res := s.Next("idle", time.Now())
	assert.False(t, res.HasOverlay)
	assert.Nil(t, res.OverlayType)
}

func TestRoomsAreIndependent(t *testing.T) {
	s := NewSequencer()
	t0 := time.Now()
	s.Start("a", t0)
	assert.True(t, s.Active("a"))
	assert.False(t, s.Active("b"))
	assert.True(t, s.Next("a", t0.Add(MinSpacing)).HasOverlay)
	assert.False(t, s.Next("b", t0.Add(MinSpacing)).HasOverlay)
}

func TestAbandonedSequencesExpire(t *testing.T) {
	s := NewSequencer()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Start("left", t0)
	s.Start("stale", t0)
	require.Equal(t, 2, s.Len())

	later := t0.Add(IdleTimeout + time.Second)
	res := s.Next("stale", later)
	assert.False(t, res.HasOverlay)
	assert.Equal(t, true, res.AnalysisDetails.Extra["sequence_complete"])
	assert.False(t, s.Active("stale"))
	assert.Equal(t, 0, s.Len(), "every idle sequence is dropped")

	s.Start("fresh", later)
	assert.Equal(t, 1, s.Len())
	assert.True(t, s.Next("fresh", later.Add(MinSpacing)).HasOverlay)
}
