package vision

import (
	"image"

	"github.com/teslashibe/go-truesight/pkg/signal"
	"gocv.io/x/gocv"
)

// TextExtractor counts glyph-like edge clusters, a proxy for pasted
// solution text.
type TextExtractor struct{}

func (TextExtractor) Name() string { return signal.Text }

func (TextExtractor) Extract(frame gocv.Mat, roi image.Rectangle) signal.Reading {
	view, r, ok := subRegion(frame, roi)
	if !ok {
		return signal.Empty(signal.Text)
	}
	defer view.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(view, &gray, gocv.ColorBGRToGray)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, 30, 100)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
	defer kernel.Close()
	closed := gocv.NewMat()
	defer closed.Close()
	gocv.MorphologyEx(edges, &closed, gocv.MorphClose, kernel)

	contours := gocv.FindContours(closed, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var regions []signal.Region
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		area := gocv.ContourArea(c)
		if area <= signal.TextMinArea || area >= signal.TextMaxArea {
			continue
		}
		box := gocv.BoundingRect(c)
		if !signal.IsGlyphBox(area, box.Dx(), box.Dy(), variance(gray, box)) {
			continue
		}
		regions = append(regions, signal.RegionFromRect(box).Offset(r.Min.X, r.Min.Y))
	}

	score := signal.CountScore(len(regions))
	return signal.Reading{
		Extractor: signal.Text,
		Score:     score,
		Regions:   regions,
		Metadata: map[string]any{
			signal.MetaTextRegions:     len(regions),
			signal.MetaTextDensity:     len(regions),
			signal.MetaSuspiciousScore: score,
		},
	}
}

// variance returns the pixel variance of a single-channel image inside box.
func variance(gray gocv.Mat, box image.Rectangle) float64 {
	box = clampROI(gray, box)
	if box.Empty() {
		return 0
	}
	patch := gray.Region(box)
	defer patch.Close()

	mean := gocv.NewMat()
	defer mean.Close()
	std := gocv.NewMat()
	defer std.Close()
	gocv.MeanStdDev(patch, &mean, &std)

	sd := std.GetDoubleAt(0, 0)
	return sd * sd
}
