// Package report assembles the public overlay-analysis response from a
// fused result.
package report

import (
	"image"
	"time"

	"github.com/teslashibe/go-truesight/pkg/fusion"
	"github.com/teslashibe/go-truesight/pkg/signal"
)

// Result is the overlay response returned to clients.
type Result struct {
	HasOverlay        bool            `json:"has_overlay"`
	Confidence        float64         `json:"confidence"`
	OverlayType       *string         `json:"overlay_type"`
	SuspiciousRegions []signal.Region `json:"suspicious_regions"`
	AnalysisDetails   Details         `json:"analysis_details"`
	Timestamp         string          `json:"timestamp"`
}

// Details is the per-extractor breakdown.
type Details struct {
	ScreenRegion    *signal.Region              `json:"screen_region,omitempty"`
	ColorAnalysis   map[string]signal.BandStats `json:"color_analysis,omitempty"`
	TextAnalysis    *TextAnalysis               `json:"text_analysis,omitempty"`
	UIAnalysis      *UIAnalysis                 `json:"ui_analysis,omitempty"`
	VideoSpecific   *signal.ScenarioIndicators  `json:"video_specific,omitempty"`
	FrameDimensions *Dimensions                 `json:"frame_dimensions,omitempty"`
	ExtractorErrors map[string]string           `json:"extractor_errors,omitempty"`
	Threshold       float64                     `json:"threshold"`
	Error           string                      `json:"error,omitempty"`
	Extra           map[string]any              `json:"extra,omitempty"`
}

type TextAnalysis struct {
	TextRegions     int     `json:"text_regions"`
	TextDensity     float64 `json:"text_density"`
	SuspiciousScore float64 `json:"suspicious_score"`
}

type UIAnalysis struct {
	RectangularOverlayScore float64      `json:"rectangular_overlay_score"`
	LineAnalysis            LineAnalysis `json:"line_analysis"`
}

type LineAnalysis struct {
	HorizontalLines int `json:"horizontal_lines"`
	VerticalLines   int `json:"vertical_lines"`
}

type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Assemble builds the response for a fused frame. roi is the analysed
// screen region and frame the preprocessed frame size.
func Assemble(fused fusion.Result, roi image.Rectangle, frame image.Point) Result {
	res := Result{
		HasOverlay:        fused.HasOverlay,
		Confidence:        fused.Confidence,
		SuspiciousRegions: fused.Regions,
		Timestamp:         fused.Timestamp.Format(time.RFC3339Nano),
	}
	if res.SuspiciousRegions == nil {
		res.SuspiciousRegions = []signal.Region{}
	}
	if fused.Category != nil {
		t := string(*fused.Category)
		res.OverlayType = &t
	}

	sr := signal.RegionFromRect(roi)
	d := Details{
		ScreenRegion:    &sr,
		FrameDimensions: &Dimensions{Width: frame.X, Height: frame.Y},
		Threshold:       fused.Threshold,
	}

	if r, ok := fused.Readings[signal.Color]; ok {
		d.ColorAnalysis = r.Bands()
	}
	if r, ok := fused.Readings[signal.Text]; ok {
		d.TextAnalysis = &TextAnalysis{
			TextRegions:     len(r.Regions),
			TextDensity:     r.Float(signal.MetaTextDensity),
			SuspiciousScore: r.Float(signal.MetaSuspiciousScore),
		}
	}
	if r, ok := fused.Readings[signal.Structural]; ok {
		d.UIAnalysis = &UIAnalysis{
			RectangularOverlayScore: r.Score,
			LineAnalysis: LineAnalysis{
				HorizontalLines: r.Int(signal.MetaHorizontalLines),
				VerticalLines:   r.Int(signal.MetaVerticalLines),
			},
		}
	}
	if r, ok := fused.Readings[signal.Scenario]; ok {
		ind := r.Indicators()
		d.VideoSpecific = &ind
	}

	for name, r := range fused.Readings {
		if !r.Failed() {
			continue
		}
		if d.ExtractorErrors == nil {
			d.ExtractorErrors = make(map[string]string)
		}
		d.ExtractorErrors[name] = r.Err
	}

	res.AnalysisDetails = d
	return res
}

// Failure is the zero-confidence response for a frame that could not be
// analysed past decoding.
func Failure(err error) Result {
	return FailureAt(err, time.Now())
}

// FailureAt is Failure with an explicit timestamp.
func FailureAt(err error, now time.Time) Result {
	return Result{
		SuspiciousRegions: []signal.Region{},
		AnalysisDetails:   Details{Error: err.Error()},
		Timestamp:         now.Format(time.RFC3339Nano),
	}
}
