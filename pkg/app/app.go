// Package app wires the detection service together and runs it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-truesight/internal/config"
	"github.com/teslashibe/go-truesight/internal/log"
	"github.com/teslashibe/go-truesight/pkg/alertstore"
	"github.com/teslashibe/go-truesight/pkg/calibration"
	"github.com/teslashibe/go-truesight/pkg/debounce"
	"github.com/teslashibe/go-truesight/pkg/demo"
	"github.com/teslashibe/go-truesight/pkg/detection"
	"github.com/teslashibe/go-truesight/pkg/fusion"
	"github.com/teslashibe/go-truesight/pkg/hub"
	"github.com/teslashibe/go-truesight/pkg/ingest"
	"github.com/teslashibe/go-truesight/pkg/malpractice"
	"github.com/teslashibe/go-truesight/pkg/metrics"
	"github.com/teslashibe/go-truesight/pkg/overlay"
	"github.com/teslashibe/go-truesight/pkg/protocol"
	"github.com/teslashibe/go-truesight/pkg/report"
	"github.com/teslashibe/go-truesight/pkg/server"
	"github.com/teslashibe/go-truesight/pkg/vision"
)

// App is the service orchestrator.
// It owns every component and their lifecycle.
type App struct {
	cfg     *config.Config
	version string
	log     *slog.Logger

	// Overlay
	profile  *calibration.Profile
	pipeline *overlay.Pipeline

	// Person / device
	rooms    *debounce.MemoryStore
	detector detection.Detector
	analyzer *malpractice.Analyzer

	// Outputs
	history    *alertstore.Store
	dashboards *hub.Hub
	devices    *ingest.Hub
	metrics    *metrics.Metrics
	demo       *demo.Sequencer

	server *server.Server
}

var _ server.Analyzer = (*App)(nil)

// New creates an application for cfg. Call Init before Run.
func New(cfg *config.Config, version string) *App {
	return &App{
		cfg:     cfg,
		version: version,
		log:     log.Component("app"),
	}
}

// Init loads the calibration profile and builds every component. A
// missing or broken detector model is logged and leaves person detection
// unavailable; every other failure is returned.
func (a *App) Init() error {
	a.metrics = metrics.New()

	profile, err := calibration.NewJSONStore(a.cfg.Overlay.CalibrationPath).Load()
	if err != nil {
		return fmt.Errorf("failed to load calibration: %w", err)
	}
	a.profile = profile
	threshold := calibration.EffectiveThreshold(profile, a.cfg.Overlay.DefaultThreshold)
	if profile != nil {
		a.log.Info("calibration loaded", "path", a.cfg.Overlay.CalibrationPath, "threshold", threshold)
	} else {
		a.log.Info("no calibration found, using default threshold", "threshold", threshold)
	}

	a.pipeline = overlay.New(
		fusion.New(fusion.WithThreshold(threshold)),
		overlay.WithMinWidth(a.cfg.Overlay.MinWidth),
		overlay.WithObserver(a.metrics),
	)

	a.rooms = debounce.NewMemoryStore(debounce.Config{
		HumanWindow:  a.cfg.Debounce.HumanWindow,
		DeviceWindow: a.cfg.Debounce.DeviceWindow,
		MaxRooms:     a.cfg.Debounce.MaxRooms,
		TTL:          a.cfg.Debounce.RoomTTL,
	}, debounce.WithEvictHook(a.metrics.RoomEvicted))
	a.metrics.TrackRooms(a.rooms.Len)

	a.dashboards = hub.New()
	a.analyzer = malpractice.NewAnalyzer(a.rooms, a.dashboards, a.metrics)

	if path := a.cfg.Alerts.DBPath; path != "" {
		store, err := alertstore.Open(path)
		if err != nil {
			return err
		}
		if err := store.Migrate(); err != nil {
			store.Close()
			return err
		}
		a.history = store
		a.analyzer.AddSink(store)
		a.log.Info("alert history enabled", "path", path)
	}

	if a.cfg.Detector.Enabled {
		a.initDetector()
	}

	a.devices = ingest.NewHub(a.cfg.Server.IngestFPS)
	a.devices.OnFrame(a.HandleFrame)
	a.metrics.TrackConnections(func() int {
		return a.devices.DeviceCount() + a.dashboards.ClientCount()
	})

	if a.cfg.Demo.Enabled {
		a.demo = demo.NewSequencer()
		a.log.Warn("demo routes enabled")
	}

	deps := server.Deps{
		Analyzer:   a,
		Rooms:      a.rooms,
		Demo:       a.demo,
		Profile:    a.profile,
		Threshold:  threshold,
		Metrics:    a.metrics,
		Devices:    a.devices,
		Dashboards: a.dashboards,
	}
	if a.history != nil {
		deps.History = a.history
	}
	a.server = server.New(server.Config{
		Version:     a.version,
		Debug:       a.cfg.Server.Debug,
		BodyLimitMB: a.cfg.Server.BodyLimitMB,
	}, deps)
	return nil
}

func (a *App) initDetector() {
	dc := detection.DefaultConfig()
	dc.ModelPath = a.cfg.Detector.ModelPath
	dc.ConfidenceThresh = float32(a.cfg.Detector.Confidence)
	dc.NMSThresh = float32(a.cfg.Detector.NMS)
	dc.MaskScreens = a.cfg.Detector.MaskScreens

	yolo, err := detection.NewYOLO(dc)
	if err != nil {
		a.log.Warn("person detection unavailable", "error", err)
		return
	}
	a.detector = detection.NewGuarded(yolo, detection.BreakerConfig{
		Failures: a.cfg.Detector.BreakerFailures,
		Timeout:  a.cfg.Detector.BreakerTimeout,
	})
	a.log.Info("detector loaded", "model", dc.ModelPath)
}

// Server returns the HTTP server built by Init.
func (a *App) Server() *server.Server {
	return a.server
}

// Run serves until ctx is cancelled, then shuts the server down.
func (a *App) Run(ctx context.Context) error {
	go a.dashboards.Run(ctx)
	go a.janitor(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Listen(fmt.Sprintf(":%d", a.cfg.Server.Port))
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.log.Error("shutdown error", "error", err)
	}
	return nil
}

// janitor sweeps idle rooms until ctx is cancelled.
func (a *App) janitor(ctx context.Context) {
	interval := a.cfg.Debounce.SweepInterval
	if interval <= 0 || a.cfg.Debounce.RoomTTL <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.rooms.Sweep(); n > 0 {
				a.log.Debug("swept idle rooms", "count", n, "remaining", a.rooms.Len())
			}
		}
	}
}

// Shutdown releases the detector and the alert database.
func (a *App) Shutdown() {
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			a.log.Warn("detector close failed", "error", err)
		}
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.log.Warn("alert store close failed", "error", err)
		}
	}
}

// DetectOverlay analyses a base64 screen frame.
func (a *App) DetectOverlay(ctx context.Context, payload string) (report.Result, error) {
	return a.pipeline.AnalyzeBase64(ctx, payload)
}

// DetectHumans runs person/phone detection on a base64 camera frame and
// feeds the room's debounce state.
func (a *App) DetectHumans(ctx context.Context, room, payload string) (malpractice.Result, error) {
	started := time.Now()
	raw, err := vision.DecodePayload(payload)
	if err != nil {
		return malpractice.Result{}, err
	}
	return a.detect(room, raw, started)
}

// Observe applies counts from an external detector.
func (a *App) Observe(room string, o debounce.Outcome) []debounce.Alert {
	return a.analyzer.Observe(room, o)
}

// ModelLoaded reports whether person detection is available.
func (a *App) ModelLoaded() bool {
	return a.detector != nil
}

// HandleFrame analyses one frame streamed over the device socket.
func (a *App) HandleFrame(ctx context.Context, room, deviceID string, frame *protocol.FrameData) (*protocol.Message, error) {
	started := time.Now()
	raw, err := frame.DecodeFrameData()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vision.ErrInvalidBase64, err)
	}

	switch frame.Kind {
	case protocol.KindCamera:
		res, err := a.detect(room, raw, started)
		if err != nil {
			return nil, err
		}
		return protocol.NewResultMessage(protocol.TypeMalpractice, frame.FrameID, res)
	default:
		res, err := a.pipeline.Analyze(ctx, raw)
		if err != nil {
			return nil, err
		}
		return protocol.NewResultMessage(protocol.TypeOverlay, frame.FrameID, res)
	}
}

func (a *App) detect(room string, raw []byte, started time.Time) (malpractice.Result, error) {
	if a.detector == nil {
		return malpractice.Result{}, fmt.Errorf("%w: model not loaded", detection.ErrDetectorUnavailable)
	}

	dets, err := a.detector.Detect(raw)
	if err != nil {
		if !errors.Is(err, vision.ErrDecodeImage) {
			a.log.Error("detection failed", "room", room, "error", err)
		}
		return malpractice.Result{}, err
	}

	persons, phones := detection.Partition(dets)
	if a.cfg.Detector.FilterScreenHumans {
		persons = detection.FilterRealHumans(persons)
	}
	res := a.analyzer.Analyze(room, findings(persons), findings(phones), started)
	a.metrics.ObserveDetection(time.Since(started))
	return res, nil
}

func findings(dets []detection.ObjectDetection) []malpractice.Finding {
	out := make([]malpractice.Finding, 0, len(dets))
	for _, d := range dets {
		out = append(out, malpractice.Finding{
			ClassName:  d.ClassName,
			Confidence: d.Confidence,
			BBox: [4]float64{
				float64(d.Box.Min.X), float64(d.Box.Min.Y),
				float64(d.Box.Max.X), float64(d.Box.Max.Y),
			},
		})
	}
	return out
}
