package signal

// HSV is an OpenCV-style HSV triple (H in 0..180, S and V in 0..255).
type HSV struct {
	H, S, V float64
}

// ColorBand is a named HSV range that suspicious overlays tend to use.
type ColorBand struct {
	Name  string
	Lower HSV
	Upper HSV
}

// Palette is the fixed set of bands, in the order their regions are reported.
var Palette = []ColorBand{
	{Name: "popup_white", Lower: HSV{0, 0, 200}, Upper: HSV{180, 30, 255}},
	{Name: "tooltip_yellow", Lower: HSV{20, 100, 100}, Upper: HSV{30, 255, 255}},
	{Name: "highlight_green", Lower: HSV{40, 50, 50}, Upper: HSV{80, 255, 255}},
	{Name: "overlay_blue", Lower: HSV{100, 50, 50}, Upper: HSV{130, 255, 255}},
}

// Color region area band (exclusive).
const (
	ColorMinArea = 500.0
	ColorMaxArea = 50000.0
)

// Zone is a fractional rectangle inside the region of interest.
type Zone struct {
	X, Y, W, H float64
}

// Contains reports whether the relative point (rx, ry) lies in the zone,
// edges inclusive.
func (z Zone) Contains(rx, ry float64) bool {
	return z.X <= rx && rx <= z.X+z.W && z.Y <= ry && ry <= z.Y+z.H
}

// SuspiciousZones are the screen areas where a foreign overlay is plausible:
// left side, top-right corner and top centre.
var SuspiciousZones = []Zone{
	{0.05, 0.1, 0.4, 0.6},
	{0.7, 0.05, 0.95, 0.4},
	{0.3, 0.05, 0.7, 0.25},
}

// MatchingZones counts the zones containing the box origin (bx, by) relative
// to a roiW x roiH region. A box is reported once per matching zone.
func MatchingZones(bx, by, roiW, roiH int) int {
	if roiW <= 0 || roiH <= 0 {
		return 0
	}
	rx := float64(bx) / float64(roiW)
	ry := float64(by) / float64(roiH)

	n := 0
	for _, z := range SuspiciousZones {
		if z.Contains(rx, ry) {
			n++
		}
	}
	return n
}
