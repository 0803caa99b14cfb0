package signal

import "math"

// Text glyph filter bounds.
const (
	TextMinArea     = 100.0
	TextMaxArea     = 10000.0
	TextMinAspect   = 0.1
	TextMaxAspect   = 15.0
	TextMinVariance = 50.0
)

// IsGlyphBox reports whether a contour with the given area and bounding box
// looks like text: area and aspect within bounds, and textured enough.
func IsGlyphBox(area float64, w, h int, variance float64) bool {
	if area <= TextMinArea || area >= TextMaxArea {
		return false
	}
	if h <= 0 {
		return false
	}
	aspect := float64(w) / float64(h)
	if aspect <= TextMinAspect || aspect >= TextMaxAspect {
		return false
	}
	return variance > TextMinVariance
}

// Line orientation.
type Orientation int

const (
	Oblique Orientation = iota
	Horizontal
	Vertical
)

// AngleTolerance is the slack, in degrees, for axis-aligned lines.
const AngleTolerance = 10.0

// ClassifySegment labels a line segment by its angle.
func ClassifySegment(x1, y1, x2, y2 int) Orientation {
	angle := math.Atan2(float64(y2-y1), float64(x2-x1)) * 180 / math.Pi
	switch {
	case math.Abs(angle) < AngleTolerance || math.Abs(angle-180) < AngleTolerance:
		return Horizontal
	case math.Abs(angle-90) < AngleTolerance || math.Abs(angle+90) < AngleTolerance:
		return Vertical
	default:
		return Oblique
	}
}

// Structural scoring.
const (
	MinFrameLines   = 4
	StructuralScore = 0.7
)

// FrameScore returns StructuralScore when both orientations exceed
// MinFrameLines, which is what a rectangular foreign panel looks like.
func FrameScore(horizontal, vertical int) float64 {
	if horizontal > MinFrameLines && vertical > MinFrameLines {
		return StructuralScore
	}
	return 0
}

// Scenario constants.
const (
	PopupMinArea       = 1000.0
	PopupMaxArea       = 100000.0
	PopupBrightness    = 240.0
	HistogramPeakFloor = 100.0
	MaxPeaksPerChannel = 3
	HighlightStep      = 0.2
)

// CountPeaks counts strict local maxima above HistogramPeakFloor in bins
// 1..len-2 of a histogram.
func CountPeaks(hist []float64) int {
	n := 0
	for i := 1; i < len(hist)-1; i++ {
		if hist[i] > hist[i-1] && hist[i] > hist[i+1] && hist[i] > HistogramPeakFloor {
			n++
		}
	}
	return n
}

// ScenarioIndicators are the raw counts behind the scenario sub-score.
type ScenarioIndicators struct {
	PopupWindows         int     `json:"popup_windows"`
	FloatingText         int     `json:"floating_text"`
	SuspiciousHighlights float64 `json:"suspicious_highlights"`
	OverlayConfidence    float64 `json:"overlay_confidence"`
}

// AddChannel folds one channel's peak count into the highlight total.
func (s *ScenarioIndicators) AddChannel(peaks int) {
	if peaks > MaxPeaksPerChannel {
		s.SuspiciousHighlights += HighlightStep
	}
}

// Score computes and stores the normalized scenario confidence.
func (s *ScenarioIndicators) Score() float64 {
	total := float64(s.PopupWindows)*0.4 + s.SuspiciousHighlights + float64(s.FloatingText)*0.3
	s.OverlayConfidence = math.Min(total/3.0, 1.0)
	return s.OverlayConfidence
}
