package calibration

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/teslashibe/go-truesight/internal/log"
)

// AnalysisThreshold is the low fixed threshold used while collecting
// samples; only confidence matters during calibration.
const AnalysisThreshold = 0.1

// Analysis is what an analyzer reports for one frame.
type Analysis struct {
	Confidence   float64
	RegionCount  int
	ColorRegions int
	TextScore    float64
	Details      map[string]any
}

// Analyzer runs extraction and fusion on an encoded frame.
type Analyzer interface {
	Sample(ctx context.Context, frame []byte) (Analysis, error)
}

// Calibrator accumulates labelled samples and derives a profile from them.
type Calibrator struct {
	analyzer Analyzer
	store    Store
	normal   []Sample
	cheat    []Sample
	log      *slog.Logger
}

// NewCalibrator creates a calibrator. store may be nil if profiles are not saved.
func NewCalibrator(analyzer Analyzer, store Store) *Calibrator {
	return &Calibrator{
		analyzer: analyzer,
		store:    store,
		log:      log.Component("calibration"),
	}
}

// AddNormal analyses a frame that should not raise an overlay.
func (c *Calibrator) AddNormal(ctx context.Context, frame []byte, description string) (Sample, error) {
	return c.add(ctx, Normal, frame, description)
}

// AddCheat analyses a frame that shows a cheating overlay.
func (c *Calibrator) AddCheat(ctx context.Context, frame []byte, description string) (Sample, error) {
	return c.add(ctx, Cheat, frame, description)
}

func (c *Calibrator) add(ctx context.Context, label Label, frame []byte, description string) (Sample, error) {
	a, err := c.analyzer.Sample(ctx, frame)
	if err != nil {
		return Sample{}, fmt.Errorf("failed to analyze %s sample %q: %w", label, description, err)
	}

	s := Sample{
		Label:        label,
		Description:  description,
		Confidence:   a.Confidence,
		RegionCount:  a.RegionCount,
		ColorRegions: a.ColorRegions,
		TextScore:    a.TextScore,
		Details:      a.Details,
	}
	if label == Normal {
		c.normal = append(c.normal, s)
	} else {
		c.cheat = append(c.cheat, s)
	}

	c.log.Info("sample added",
		"label", label,
		"description", description,
		"confidence", fmt.Sprintf("%.3f", s.Confidence),
		"regions", s.RegionCount)
	return s, nil
}

// AddFiles reads and analyses image files under one label. Files that
// cannot be read or analysed are logged and skipped; the count of added
// samples is returned.
func (c *Calibrator) AddFiles(ctx context.Context, label Label, paths []string) int {
	added := 0
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return added
		}
		data, err := os.ReadFile(p)
		if err != nil {
			c.log.Warn("skipping unreadable sample", "path", p, "error", err)
			continue
		}
		desc := fmt.Sprintf("%s: %s", label.Title(), filepath.Base(p))
		if _, err := c.add(ctx, label, data, desc); err != nil {
			c.log.Warn("skipping sample", "path", p, "error", err)
			continue
		}
		added++
	}
	return added
}

// Samples returns copies of the collected populations.
func (c *Calibrator) Samples() (normal, cheat []Sample) {
	return append([]Sample(nil), c.normal...), append([]Sample(nil), c.cheat...)
}

// Run calibrates over the collected samples and, on success, saves the
// profile. Nothing is written when calibration fails.
func (c *Calibrator) Run(now time.Time) (*Profile, Result, error) {
	res, err := Calibrate(c.normal, c.cheat)
	if err != nil {
		return nil, res, err
	}

	p := NewProfile(res, c.normal, c.cheat, now)
	if c.store != nil {
		if err := c.store.Save(p); err != nil {
			return nil, res, err
		}
		c.log.Info("calibration saved", "path", c.store.Path(), "threshold", fmt.Sprintf("%.3f", p.Threshold))
	}
	return p, res, nil
}

// ImageFiles lists .png, .jpg and .jpeg files in dir, sorted by name.
func ImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list samples in %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
