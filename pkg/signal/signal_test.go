package signal

import (
	"encoding/json"
	"errors"
	"image"
	"math"
	"testing"
)

func TestRegionJSON(t *testing.T) {
	r := Region{X: 10, Y: 20, W: 30, H: 40}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != "[10,20,30,40]" {
		t.Errorf("Marshal() = %s, want [10,20,30,40]", data)
	}

	var back Region
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if back != r {
		t.Errorf("Unmarshal() = %+v, want %+v", back, r)
	}

	if err := json.Unmarshal([]byte(`{"x":1}`), &back); err == nil {
		t.Error("Unmarshal() of an object should fail")
	}
}

func TestRegionRect(t *testing.T) {
	r := RegionFromRect(image.Rect(5, 6, 15, 26))
	if r != (Region{X: 5, Y: 6, W: 10, H: 20}) {
		t.Errorf("RegionFromRect() = %+v", r)
	}
	if r.Rect() != image.Rect(5, 6, 15, 26) {
		t.Errorf("Rect() = %v", r.Rect())
	}
	if r.Area() != 200 {
		t.Errorf("Area() = %d, want 200", r.Area())
	}
	if got := r.Offset(100, 200); got != (Region{X: 105, Y: 206, W: 10, H: 20}) {
		t.Errorf("Offset() = %+v", got)
	}
}

func TestClipAndCountScore(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-0.5, 0}, {0, 0}, {0.42, 0.42}, {1, 1}, {3.7, 1},
	}
	for _, tt := range tests {
		if got := Clip(tt.in); got != tt.want {
			t.Errorf("Clip(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if got := Clip(math.NaN()); got != 0 {
		t.Errorf("Clip(NaN) = %v, want 0", got)
	}

	if got := CountScore(3); got != 0.3 {
		t.Errorf("CountScore(3) = %v, want 0.3", got)
	}
	if got := CountScore(25); got != 1 {
		t.Errorf("CountScore(25) = %v, want 1", got)
	}
}

func TestFailedReading(t *testing.T) {
	r := Failed(Text, errors.New("degenerate contour"))
	if !r.Failed() {
		t.Error("Failed() = false, want true")
	}
	if r.Score != 0 {
		t.Errorf("Score = %v, want 0", r.Score)
	}
	if Empty(Color).Failed() {
		t.Error("Empty reading should not be failed")
	}
}

func TestZoneContains(t *testing.T) {
	z := Zone{0.05, 0.1, 0.4, 0.6}
	tests := []struct {
		name   string
		rx, ry float64
		want   bool
	}{
		{"inside", 0.2, 0.3, true},
		{"left edge", 0.05, 0.1, true},
		{"far edge", 0.45, 0.7, true},
		{"left of zone", 0.04, 0.3, false},
		{"below zone", 0.2, 0.71, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := z.Contains(tt.rx, tt.ry); got != tt.want {
				t.Errorf("Contains(%v, %v) = %v, want %v", tt.rx, tt.ry, got, tt.want)
			}
		})
	}
}

func TestMatchingZones(t *testing.T) {
	tests := []struct {
		name   string
		bx, by int
		want   int
	}{
		{"top left corner is outside", 0, 0, 0},
		{"left side only", 100, 500, 1},
		{"left side and top centre overlap", 350, 150, 2},
		{"top right", 800, 100, 2},
		{"bottom right", 900, 900, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchingZones(tt.bx, tt.by, 1000, 1000); got != tt.want {
				t.Errorf("MatchingZones(%d, %d) = %d, want %d", tt.bx, tt.by, got, tt.want)
			}
		})
	}

	if got := MatchingZones(10, 10, 0, 100); got != 0 {
		t.Errorf("MatchingZones on empty roi = %d, want 0", got)
	}
}

func TestPaletteOrder(t *testing.T) {
	want := []string{"popup_white", "tooltip_yellow", "highlight_green", "overlay_blue"}
	if len(Palette) != len(want) {
		t.Fatalf("len(Palette) = %d, want %d", len(Palette), len(want))
	}
	for i, b := range Palette {
		if b.Name != want[i] {
			t.Errorf("Palette[%d] = %s, want %s", i, b.Name, want[i])
		}
	}
}

func TestReadingMetadataAccessors(t *testing.T) {
	r := Reading{
		Extractor: Color,
		Metadata: map[string]any{
			MetaBands:           map[string]BandStats{"popup_white": {Regions: 2, TotalArea: 1200}},
			MetaTextDensity:     0.25,
			MetaHorizontalLines: 7,
		},
	}
	if got := r.Bands()["popup_white"].Regions; got != 2 {
		t.Errorf("Bands()[popup_white].Regions = %d, want 2", got)
	}
	if got := r.Float(MetaTextDensity); got != 0.25 {
		t.Errorf("Float(text_density) = %v, want 0.25", got)
	}
	if got := r.Float(MetaHorizontalLines); got != 7 {
		t.Errorf("Float(horizontal_lines) = %v, want 7", got)
	}
	if got := r.Int(MetaVerticalLines); got != 0 {
		t.Errorf("Int(missing) = %d, want 0", got)
	}

	empty := Empty(Scenario)
	if len(empty.Bands()) != 0 {
		t.Error("Bands() on an empty reading should be empty")
	}
	if empty.Indicators() != (ScenarioIndicators{}) {
		t.Error("Indicators() on an empty reading should be zero")
	}
}
