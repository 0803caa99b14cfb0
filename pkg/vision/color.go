package vision

import (
	"image"

	"github.com/teslashibe/go-truesight/pkg/signal"
	"gocv.io/x/gocv"
)

// ColorExtractor looks for blobs in overlay-typical colours sitting in
// the screen zones where a helper window would be placed.
type ColorExtractor struct{}

func (ColorExtractor) Name() string { return signal.Color }

func (ColorExtractor) Extract(frame gocv.Mat, roi image.Rectangle) signal.Reading {
	view, r, ok := subRegion(frame, roi)
	if !ok {
		return signal.Empty(signal.Color)
	}
	defer view.Close()

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(view, &hsv, gocv.ColorBGRToHSV)

	bands := make(map[string]signal.BandStats, len(signal.Palette))
	var regions []signal.Region

	for _, band := range signal.Palette {
		found := bandRegions(hsv, band, r)
		stats := signal.BandStats{Regions: len(found)}
		for _, reg := range found {
			stats.TotalArea += float64(reg.Area())
		}
		bands[band.Name] = stats
		regions = append(regions, found...)
	}

	return signal.Reading{
		Extractor: signal.Color,
		Score:     signal.CountScore(len(regions)),
		Regions:   regions,
		Metadata:  map[string]any{signal.MetaBands: bands},
	}
}

// bandRegions returns frame-space boxes of one band's blobs, one entry per
// suspicious zone the blob origin falls in.
func bandRegions(hsv gocv.Mat, band signal.ColorBand, roi image.Rectangle) []signal.Region {
	mask := gocv.NewMat()
	defer mask.Close()
	gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(band.Lower.H, band.Lower.S, band.Lower.V, 0),
		gocv.NewScalar(band.Upper.H, band.Upper.S, band.Upper.V, 0),
		&mask)

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var out []signal.Region
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		area := gocv.ContourArea(c)
		if area <= signal.ColorMinArea || area >= signal.ColorMaxArea {
			continue
		}
		box := gocv.BoundingRect(c)
		reg := signal.RegionFromRect(box).Offset(roi.Min.X, roi.Min.Y)
		for n := signal.MatchingZones(box.Min.X, box.Min.Y, roi.Dx(), roi.Dy()); n > 0; n-- {
			out = append(out, reg)
		}
	}
	return out
}
