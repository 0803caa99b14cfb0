// Package vision holds the gocv side of overlay analysis: frame decoding,
// preprocessing, screen-region estimation and the four signal extractors.
//
// Extractors are stateless and safe for concurrent use. They never close
// or modify the frame they are given.
package vision

import (
	"image"

	"github.com/teslashibe/go-truesight/pkg/signal"
	"gocv.io/x/gocv"
)

// Extractor measures one kind of overlay evidence inside a region of
// interest.
type Extractor interface {
	Name() string
	Extract(frame gocv.Mat, roi image.Rectangle) signal.Reading
}

// DefaultExtractors returns the colour, text, structural and scenario
// extractors in fusion order.
func DefaultExtractors() []Extractor {
	return []Extractor{
		ColorExtractor{},
		TextExtractor{},
		StructuralExtractor{},
		ScenarioExtractor{},
	}
}

// subRegion returns a view of the frame clipped to roi. ok is false when
// the clipped region is empty; otherwise the caller closes the view.
func subRegion(frame gocv.Mat, roi image.Rectangle) (view gocv.Mat, r image.Rectangle, ok bool) {
	r = clampROI(frame, roi)
	if r.Empty() {
		return gocv.Mat{}, r, false
	}
	return frame.Region(r), r, true
}
