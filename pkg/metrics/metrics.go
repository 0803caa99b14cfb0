// Package metrics exposes Prometheus metrics for the detection service.
package metrics

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/teslashibe/go-truesight/pkg/debounce"
	"github.com/teslashibe/go-truesight/pkg/malpractice"
	"github.com/teslashibe/go-truesight/pkg/overlay"
	"github.com/teslashibe/go-truesight/pkg/report"
)

// Pipeline labels
const (
	PipelineOverlay     = "overlay"
	PipelineMalpractice = "malpractice"
)

var (
	_ overlay.Observer = (*Metrics)(nil)
	_ malpractice.Sink = (*Metrics)(nil)
)

// Metrics holds all service collectors on a private registry
type Metrics struct {
	framesAnalyzed  *prometheus.CounterVec
	overlays        *prometheus.CounterVec
	extractorErrors *prometheus.CounterVec
	alerts          *prometheus.CounterVec
	roomsEvicted    prometheus.Counter
	duration        *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates a Metrics instance with its own registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		framesAnalyzed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "truesight_frames_analyzed_total",
			Help: "Frames analysed, by pipeline",
		}, []string{"pipeline"}),
		overlays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "truesight_overlays_detected_total",
			Help: "Frames classified as overlays, by category",
		}, []string{"category"}),
		extractorErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "truesight_extractor_errors_total",
			Help: "Extractor failures, by extractor",
		}, []string{"extractor"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "truesight_alerts_total",
			Help: "Debounced malpractice alerts, by condition",
		}, []string{"condition"}),
		roomsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "truesight_rooms_evicted_total",
			Help: "Rooms dropped from the debounce store",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "truesight_analysis_duration_seconds",
			Help:    "Time spent analysing one frame",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"pipeline"}),
	}

	m.registry.MustRegister(
		m.framesAnalyzed,
		m.overlays,
		m.extractorErrors,
		m.alerts,
		m.roomsEvicted,
		m.duration,
	)
	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// TrackRooms registers the truesight_rooms_active gauge
func (m *Metrics) TrackRooms(count func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "truesight_rooms_active",
			Help: "Rooms held by the debounce store",
		},
		func() float64 { return float64(count()) },
	))
}

// TrackConnections registers the truesight_ws_connections gauge
func (m *Metrics) TrackConnections(count func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "truesight_ws_connections",
			Help: "Open device and dashboard WebSocket connections",
		},
		func() float64 { return float64(count()) },
	))
}

// ObserveOverlay records one overlay analysis
func (m *Metrics) ObserveOverlay(r report.Result, elapsed time.Duration) {
	m.framesAnalyzed.WithLabelValues(PipelineOverlay).Inc()
	m.duration.WithLabelValues(PipelineOverlay).Observe(elapsed.Seconds())
	if r.HasOverlay && r.OverlayType != nil {
		m.overlays.WithLabelValues(*r.OverlayType).Inc()
	}
}

// ObserveExtractorError records one extractor failure
func (m *Metrics) ObserveExtractorError(name string) {
	m.extractorErrors.WithLabelValues(name).Inc()
}

// ObserveDetection records one person/device analysis
func (m *Metrics) ObserveDetection(elapsed time.Duration) {
	m.framesAnalyzed.WithLabelValues(PipelineMalpractice).Inc()
	m.duration.WithLabelValues(PipelineMalpractice).Observe(elapsed.Seconds())
}

// Publish counts a debounced alert
func (m *Metrics) Publish(a debounce.Alert) {
	m.alerts.WithLabelValues(string(a.Condition)).Inc()
}

// RoomEvicted counts a room dropped from the debounce store
func (m *Metrics) RoomEvicted(room string, reason debounce.EvictReason) {
	m.roomsEvicted.Inc()
}

// Handler returns an HTTP handler for the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// FiberHandler wraps Handler for a fiber route
func (m *Metrics) FiberHandler() fiber.Handler {
	return adaptor.HTTPHandler(m.Handler())
}
