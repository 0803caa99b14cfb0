package detection

import (
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/teslashibe/go-truesight/internal/log"
	"github.com/teslashibe/go-truesight/pkg/vision"
)

// ErrDetectorUnavailable is returned while the breaker is open.
var ErrDetectorUnavailable = errors.New("detection: detector unavailable")

// BreakerConfig tunes the circuit around inference.
type BreakerConfig struct {
	Failures uint32        // Consecutive failures that open the circuit
	Timeout  time.Duration // How long the circuit stays open
}

// GuardedDetector wraps a Detector in a circuit breaker. Undecodable
// frames are the caller's fault and never trip it.
type GuardedDetector struct {
	inner Detector
	cb    *gobreaker.CircuitBreaker[[]ObjectDetection]
}

var _ Detector = (*GuardedDetector)(nil)

// NewGuarded wraps inner.
func NewGuarded(inner Detector, cfg BreakerConfig) *GuardedDetector {
	if cfg.Failures == 0 {
		cfg.Failures = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	logger := log.Component("detection")

	settings := gobreaker.Settings{
		Name:        "yolo",
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.Failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, vision.ErrDecodeImage)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("detector circuit changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
	return &GuardedDetector{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[[]ObjectDetection](settings),
	}
}

// Detect runs the inner detector unless the circuit is open.
func (g *GuardedDetector) Detect(jpeg []byte) ([]ObjectDetection, error) {
	dets, err := g.cb.Execute(func() ([]ObjectDetection, error) {
		return g.inner.Detect(jpeg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrDetectorUnavailable, err)
	}
	return dets, err
}

// State reports the breaker state, e.g. "closed" or "open".
func (g *GuardedDetector) State() string {
	return g.cb.State().String()
}

// Close closes the inner detector.
func (g *GuardedDetector) Close() error {
	return g.inner.Close()
}
