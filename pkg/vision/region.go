package vision

import (
	"image"

	"gocv.io/x/gocv"
)

// Screen detection parameters.
const (
	screenMinFraction = 0.1
	screenMargin      = 0.1
	polyEpsilon       = 0.02
)

// ScreenRegion estimates where the monitored screen sits in a camera
// frame: the bounding box of the largest roughly rectangular contour
// covering more than a tenth of the frame, or the central 80% otherwise.
func ScreenRegion(frame gocv.Mat) image.Rectangle {
	w, h := frame.Cols(), frame.Rows()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, 50, 150)

	contours := gocv.FindContours(edges, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	minArea := float64(w*h) * screenMinFraction
	maxArea := 0.0
	best := -1
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		area := gocv.ContourArea(c)
		if area <= maxArea || area <= minArea {
			continue
		}
		approx := gocv.ApproxPolyDP(c, polyEpsilon*gocv.ArcLength(c, true), true)
		corners := approx.Size()
		approx.Close()
		if corners >= 4 {
			best = i
			maxArea = area
		}
	}

	if best >= 0 {
		return gocv.BoundingRect(contours.At(best))
	}
	return FallbackRegion(w, h)
}

// FallbackRegion returns the frame minus a 10% margin on every side.
func FallbackRegion(w, h int) image.Rectangle {
	mx, my := int(float64(w)*screenMargin), int(float64(h)*screenMargin)
	return image.Rect(mx, my, w-mx, h-my)
}

// clampROI intersects roi with the frame bounds.
func clampROI(frame gocv.Mat, roi image.Rectangle) image.Rectangle {
	return roi.Intersect(image.Rect(0, 0, frame.Cols(), frame.Rows()))
}
