// truesight-calibrate learns the overlay threshold from labelled frames.
//
// Usage:
//
//	truesight-calibrate -normal samples/normal -cheat samples/cheat
//
// On success the profile is written to -out and picked up by truesight at
// startup. When the two populations overlap nothing is written and more
// samples are needed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-truesight/internal/log"
	"github.com/teslashibe/go-truesight/pkg/calibration"
	"github.com/teslashibe/go-truesight/pkg/fusion"
	"github.com/teslashibe/go-truesight/pkg/overlay"
)

func main() {
	normalDir := flag.String("normal", "", "Directory of frames without overlays (required)")
	cheatDir := flag.String("cheat", "", "Directory of frames with overlays (required)")
	out := flag.String("out", "overlay_calibration_data.json", "Where to write the calibration profile")
	plotPath := flag.String("plot", "", "Optional PNG path for a confidence plot")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	log.Init(*logLevel)

	if *normalDir == "" || *cheatDir == "" {
		fmt.Fprintln(os.Stderr, "both -normal and -cheat are required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *normalDir, *cheatDir, *out, *plotPath); err != nil {
		log.Error("calibration failed", "error", err)
		if errors.Is(err, calibration.ErrOverlap) {
			fmt.Fprintln(os.Stderr, "normal and cheat frames overlap; add more or clearer samples")
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, normalDir, cheatDir, out, plotPath string) error {
	pipeline := overlay.New(fusion.New(fusion.WithThreshold(calibration.AnalysisThreshold)))
	cal := calibration.NewCalibrator(pipeline, calibration.NewJSONStore(out))

	for _, set := range []struct {
		label calibration.Label
		dir   string
	}{
		{calibration.Normal, normalDir},
		{calibration.Cheat, cheatDir},
	} {
		files, err := calibration.ImageFiles(set.dir)
		if err != nil {
			return err
		}
		n := cal.AddFiles(ctx, set.label, files)
		log.Info("samples analysed", "label", string(set.label), "added", n, "files", len(files))
	}

	profile, res, err := cal.Run(time.Now())
	normal, cheat := cal.Samples()
	if plotPath != "" {
		threshold := -1.0
		if err == nil {
			threshold = profile.Threshold
		}
		if perr := calibration.Plot(normal, cheat, threshold, plotPath); perr != nil {
			log.Warn("plot failed", "error", perr)
		} else {
			log.Info("plot written", "path", plotPath)
		}
	}
	if err != nil {
		return err
	}

	fmt.Printf("threshold: %.3f\n", profile.Threshold)
	fmt.Printf("normal: n=%d min=%.3f max=%.3f mean=%.3f\n", res.Normal.Count, res.Normal.Min, res.Normal.Max, res.Normal.Mean)
	fmt.Printf("cheat:  n=%d min=%.3f max=%.3f mean=%.3f\n", res.Cheat.Count, res.Cheat.Min, res.Cheat.Max, res.Cheat.Mean)
	fmt.Printf("saved:  %s\n", out)
	return nil
}
