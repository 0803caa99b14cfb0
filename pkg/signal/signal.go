// Package signal defines the per-frame readings produced by overlay
// extractors and the pure geometry and scoring rules they share.
//
// Nothing in this package touches pixels; the gocv side lives in pkg/vision.
package signal

import (
	"encoding/json"
	"fmt"
	"image"
)

// Extractor names. They double as keys in analysis details.
const (
	Color      = "color"
	Text       = "text"
	Structural = "structural"
	Scenario   = "scenario"
)

// Names lists the extractors in fusion order.
var Names = []string{Color, Text, Structural, Scenario}

// Region is a rectangle in frame pixel coordinates.
type Region struct {
	X, Y, W, H int
}

// RegionFromRect converts an image.Rectangle.
func RegionFromRect(r image.Rectangle) Region {
	return Region{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// Rect converts back to an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

// Area returns W*H.
func (r Region) Area() int {
	return r.W * r.H
}

// Offset shifts the region by (dx, dy).
func (r Region) Offset(dx, dy int) Region {
	return Region{X: r.X + dx, Y: r.Y + dy, W: r.W, H: r.H}
}

// MarshalJSON encodes the region as [x, y, w, h].
func (r Region) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]int{r.X, r.Y, r.W, r.H})
}

// UnmarshalJSON decodes [x, y, w, h].
func (r *Region) UnmarshalJSON(data []byte) error {
	var v [4]int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("region: %w", err)
	}
	*r = Region{X: v[0], Y: v[1], W: v[2], H: v[3]}
	return nil
}

// Reading is one extractor's verdict on one frame. Readings are built once
// and never mutated.
type Reading struct {
	Extractor string         `json:"extractor"`
	Score     float64        `json:"score"`
	Regions   []Region       `json:"regions,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	// Err is set when the extractor failed; Score is then 0.
	Err string `json:"error,omitempty"`
}

// Empty returns the zero reading for an extractor, used for degenerate ROIs.
func Empty(extractor string) Reading {
	return Reading{Extractor: extractor, Metadata: map[string]any{}}
}

// Failed returns a zero-score reading carrying the failure.
func Failed(extractor string, err error) Reading {
	return Reading{Extractor: extractor, Err: err.Error(), Metadata: map[string]any{}}
}

// Failed reports whether the extractor recorded an error.
func (r Reading) Failed() bool {
	return r.Err != ""
}

// Clip bounds v to [0, 1]. NaN maps to 0.
func Clip(v float64) float64 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// CountScore maps a region count to a sub-score: count/10 clipped to 1.
func CountScore(count int) float64 {
	return Clip(float64(count) / 10.0)
}
