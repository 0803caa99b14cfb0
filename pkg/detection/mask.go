package detection

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Screen masking parameters.
const (
	screenBrightness = 120
	screenMinArea    = 5000.0
	screenMaxArea    = 100000.0
	screenMinAspect  = 1.2
	screenMaxAspect  = 2.0
)

var maskColor = color.RGBA{128, 128, 128, 0}

// MaskScreens paints bright, screen-shaped rectangles grey in place so the
// detector does not count people shown on a monitor. It returns the
// masked boxes.
func MaskScreens(img *gocv.Mat) []image.Rectangle {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(*img, &gray, gocv.ColorBGRToGray)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(gray, &thresh, screenBrightness, 255, gocv.ThresholdBinary)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(5, 5))
	defer kernel.Close()
	gocv.MorphologyEx(thresh, &thresh, gocv.MorphClose, kernel)
	gocv.MorphologyEx(thresh, &thresh, gocv.MorphOpen, kernel)

	contours := gocv.FindContours(thresh, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var masked []image.Rectangle
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		area := gocv.ContourArea(c)
		if area <= screenMinArea || area >= screenMaxArea {
			continue
		}
		approx := gocv.ApproxPolyDP(c, 0.02*gocv.ArcLength(c, true), true)
		corners := approx.Size()
		approx.Close()
		if corners < 4 {
			continue
		}
		box := gocv.BoundingRect(c)
		if box.Dy() == 0 {
			continue
		}
		aspect := float64(box.Dx()) / float64(box.Dy())
		if aspect <= screenMinAspect || aspect >= screenMaxAspect {
			continue
		}
		gocv.Rectangle(img, box, maskColor, -1)
		masked = append(masked, box)
	}
	return masked
}
