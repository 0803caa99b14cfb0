package vision

import (
	"image"
	"math"

	"github.com/teslashibe/go-truesight/pkg/signal"
	"gocv.io/x/gocv"
)

// StructuralExtractor scores frames that contain many axis-aligned line
// segments, the outline of a rectangular foreign panel.
type StructuralExtractor struct{}

func (StructuralExtractor) Name() string { return signal.Structural }

func (StructuralExtractor) Extract(frame gocv.Mat, roi image.Rectangle) signal.Reading {
	view, _, ok := subRegion(frame, roi)
	if !ok {
		return signal.Empty(signal.Structural)
	}
	defer view.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(view, &gray, gocv.ColorBGRToGray)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, 50, 150)

	lines := gocv.NewMat()
	defer lines.Close()
	gocv.HoughLinesPWithParams(edges, &lines, 1, math.Pi/180, 50, 30, 10)

	var horizontal, vertical int
	for i := 0; i < lines.Rows(); i++ {
		v := lines.GetVeciAt(i, 0)
		switch signal.ClassifySegment(int(v[0]), int(v[1]), int(v[2]), int(v[3])) {
		case signal.Horizontal:
			horizontal++
		case signal.Vertical:
			vertical++
		}
	}

	return signal.Reading{
		Extractor: signal.Structural,
		Score:     signal.FrameScore(horizontal, vertical),
		Metadata: map[string]any{
			signal.MetaHorizontalLines: horizontal,
			signal.MetaVerticalLines:   vertical,
		},
	}
}
