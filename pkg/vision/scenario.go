package vision

import (
	"image"

	"github.com/teslashibe/go-truesight/pkg/signal"
	"gocv.io/x/gocv"
)

// ScenarioExtractor targets the look of interview helper tools: bright
// popup panels and layered colour content.
type ScenarioExtractor struct{}

func (ScenarioExtractor) Name() string { return signal.Scenario }

func (ScenarioExtractor) Extract(frame gocv.Mat, roi image.Rectangle) signal.Reading {
	view, _, ok := subRegion(frame, roi)
	if !ok {
		return signal.Empty(signal.Scenario)
	}
	defer view.Close()

	var ind signal.ScenarioIndicators
	ind.PopupWindows = countPopups(view)

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(view, &hsv, gocv.ColorBGRToHSV)

	channels := gocv.Split(hsv)
	for _, ch := range channels {
		ind.AddChannel(signal.CountPeaks(histogram(ch)))
		ch.Close()
	}

	score := ind.Score()
	return signal.Reading{
		Extractor: signal.Scenario,
		Score:     score,
		Metadata:  map[string]any{signal.MetaIndicators: ind},
	}
}

func countPopups(view gocv.Mat) int {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(view, &gray, gocv.ColorBGRToGray)

	bright := gocv.NewMat()
	defer bright.Close()
	gocv.Threshold(gray, &bright, float32(signal.PopupBrightness), 255, gocv.ThresholdBinary)

	contours := gocv.FindContours(bright, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	n := 0
	for i := 0; i < contours.Size(); i++ {
		area := gocv.ContourArea(contours.At(i))
		if area > signal.PopupMinArea && area < signal.PopupMaxArea {
			n++
		}
	}
	return n
}

// histogram returns the 256-bin histogram of an 8-bit channel.
func histogram(ch gocv.Mat) []float64 {
	hist := gocv.NewMat()
	defer hist.Close()
	mask := gocv.NewMat()
	defer mask.Close()
	gocv.CalcHist([]gocv.Mat{ch}, []int{0}, mask, &hist, []int{256}, []float64{0, 256}, false)

	out := make([]float64, hist.Rows())
	for i := range out {
		out[i] = float64(hist.GetFloatAt(i, 0))
	}
	return out
}
