package vision

import (
	"image"

	"gocv.io/x/gocv"
)

// DefaultMinWidth is the width small frames are upscaled to.
const DefaultMinWidth = 800

// CLAHE parameters for the lightness channel.
const (
	claheClipLimit = 3.0
	claheTile      = 8
)

// Preprocess upscales frames narrower than minWidth, keeping the aspect
// ratio, then equalizes contrast with CLAHE on the LAB lightness channel.
// It returns a new Mat owned by the caller.
func Preprocess(src gocv.Mat, minWidth int) gocv.Mat {
	if minWidth <= 0 {
		minWidth = DefaultMinWidth
	}

	scaled := src.Clone()
	if w := scaled.Cols(); w > 0 && w < minWidth {
		h := scaled.Rows() * minWidth / w
		resized := gocv.NewMat()
		gocv.Resize(scaled, &resized, image.Pt(minWidth, h), 0, 0, gocv.InterpolationLinear)
		scaled.Close()
		scaled = resized
	}
	defer scaled.Close()

	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(scaled, &lab, gocv.ColorBGRToLab)

	channels := gocv.Split(lab)
	defer func() {
		for _, c := range channels {
			c.Close()
		}
	}()

	clahe := gocv.NewCLAHEWithParams(claheClipLimit, image.Pt(claheTile, claheTile))
	defer clahe.Close()

	l := gocv.NewMat()
	clahe.Apply(channels[0], &l)
	channels[0].Close()
	channels[0] = l

	merged := gocv.NewMat()
	defer merged.Close()
	gocv.Merge(channels, &merged)

	out := gocv.NewMat()
	gocv.CvtColor(merged, &out, gocv.ColorLabToBGR)
	return out
}
