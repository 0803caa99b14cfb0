// Package overlay runs the full per-frame overlay analysis: decode,
// preprocess, locate the screen, extract signals, fuse and assemble the
// response.
package overlay

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/teslashibe/go-truesight/internal/log"
	"github.com/teslashibe/go-truesight/pkg/calibration"
	"github.com/teslashibe/go-truesight/pkg/fusion"
	"github.com/teslashibe/go-truesight/pkg/report"
	"github.com/teslashibe/go-truesight/pkg/signal"
	"github.com/teslashibe/go-truesight/pkg/vision"
	"gocv.io/x/gocv"
)

// Observer receives per-frame outcomes, typically for metrics.
type Observer interface {
	ObserveOverlay(res report.Result, elapsed time.Duration)
	ObserveExtractorError(extractor string)
}

// Pipeline is safe for concurrent use; it holds no per-frame state.
type Pipeline struct {
	extractors []vision.Extractor
	fuser      *fusion.Fuser
	minWidth   int
	observer   Observer
	log        *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithExtractors replaces the default extractor set.
func WithExtractors(ex ...vision.Extractor) Option {
	return func(p *Pipeline) { p.extractors = ex }
}

// WithMinWidth sets the width small frames are upscaled to.
func WithMinWidth(w int) Option {
	return func(p *Pipeline) { p.minWidth = w }
}

// WithObserver attaches an outcome observer.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// WithLogger overrides the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// New creates a pipeline around a fuser.
func New(fuser *fusion.Fuser, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractors: vision.DefaultExtractors(),
		fuser:      fuser,
		minWidth:   vision.DefaultMinWidth,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = log.Component("overlay")
	}
	return p
}

// Threshold returns the fuser's decision threshold.
func (p *Pipeline) Threshold() float64 {
	return p.fuser.Threshold()
}

// AnalyzeBase64 decodes a base64 or data-URL frame and analyses it.
// Decode failures are returned as vision.ErrInvalidBase64 or
// vision.ErrDecodeImage.
func (p *Pipeline) AnalyzeBase64(ctx context.Context, payload string) (report.Result, error) {
	frame, err := vision.DecodeBase64(payload)
	if err != nil {
		return report.Result{}, err
	}
	defer frame.Close()
	return p.AnalyzeMat(ctx, frame)
}

// Analyze decodes JPEG or PNG bytes and analyses them.
func (p *Pipeline) Analyze(ctx context.Context, buf []byte) (report.Result, error) {
	frame, err := vision.Decode(buf)
	if err != nil {
		return report.Result{}, err
	}
	defer frame.Close()
	return p.AnalyzeMat(ctx, frame)
}

// AnalyzeMat analyses a decoded BGR frame. The frame is not modified.
// Extractor panics zero that extractor; a failure elsewhere yields the
// zero-confidence fallback. Only context cancellation is returned as an
// error.
func (p *Pipeline) AnalyzeMat(ctx context.Context, frame gocv.Mat) (res report.Result, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("overlay analysis failed", "panic", r)
			res, err = report.Failure(fmt.Errorf("overlay analysis failed: %v", r)), nil
		}
		if err == nil && p.observer != nil {
			p.observer.ObserveOverlay(res, time.Since(start))
		}
	}()

	if err := ctx.Err(); err != nil {
		return report.Result{}, err
	}

	pre := vision.Preprocess(frame, p.minWidth)
	defer pre.Close()
	roi := vision.ScreenRegion(pre)

	readings := make(map[string]signal.Reading, len(p.extractors))
	for _, ex := range p.extractors {
		if err := ctx.Err(); err != nil {
			return report.Result{}, err
		}
		readings[ex.Name()] = p.extract(ex, pre, roi)
	}

	fused := p.fuser.Fuse(readings)
	res = report.Assemble(fused, roi, image.Pt(pre.Cols(), pre.Rows()))

	p.log.Debug("frame analysed",
		"confidence", res.Confidence,
		"has_overlay", res.HasOverlay,
		"regions", len(res.SuspiciousRegions),
		"elapsed", time.Since(start))
	return res, nil
}

func (p *Pipeline) extract(ex vision.Extractor, frame gocv.Mat, roi image.Rectangle) (r signal.Reading) {
	defer func() {
		if rec := recover(); rec != nil {
			p.log.Warn("extractor panicked", "extractor", ex.Name(), "panic", rec)
			r = signal.Failed(ex.Name(), fmt.Errorf("extractor panic: %v", rec))
		}
		if r.Failed() && p.observer != nil {
			p.observer.ObserveExtractorError(ex.Name())
		}
	}()
	return ex.Extract(frame, roi)
}

var _ calibration.Analyzer = (*Pipeline)(nil)

// Sample implements calibration.Analyzer.
func (p *Pipeline) Sample(ctx context.Context, frame []byte) (calibration.Analysis, error) {
	res, err := p.Analyze(ctx, frame)
	if err != nil {
		return calibration.Analysis{}, err
	}

	d := res.AnalysisDetails
	a := calibration.Analysis{
		Confidence:  res.Confidence,
		RegionCount: len(res.SuspiciousRegions),
		Details: map[string]any{
			"color_analysis":   d.ColorAnalysis,
			"text_analysis":    d.TextAnalysis,
			"ui_analysis":      d.UIAnalysis,
			"video_specific":   d.VideoSpecific,
			"screen_region":    d.ScreenRegion,
			"frame_dimensions": d.FrameDimensions,
		},
	}
	for _, b := range d.ColorAnalysis {
		a.ColorRegions += b.Regions
	}
	if d.TextAnalysis != nil {
		a.TextScore = d.TextAnalysis.SuspiciousScore
	}
	return a, nil
}
