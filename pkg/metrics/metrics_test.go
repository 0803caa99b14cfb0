package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-truesight/pkg/debounce"
	"github.com/teslashibe/go-truesight/pkg/report"
)

func TestObserveOverlay(t *testing.T) {
	m := New()
	category := "ui_elements"

	m.ObserveOverlay(report.Result{HasOverlay: true, OverlayType: &category}, 20*time.Millisecond)
	m.ObserveOverlay(report.Result{}, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.framesAnalyzed.WithLabelValues(PipelineOverlay)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.overlays.WithLabelValues("ui_elements")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.overlays))
}

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveExtractorError("text")
	m.ObserveExtractorError("text")
	m.ObserveDetection(5 * time.Millisecond)
	m.Publish(debounce.Alert{Condition: debounce.Human})
	m.Publish(debounce.Alert{Condition: debounce.Device})
	m.Publish(debounce.Alert{Condition: debounce.Device})
	m.RoomEvicted("r", debounce.EvictedExpired)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.extractorErrors.WithLabelValues("text")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.framesAnalyzed.WithLabelValues(PipelineMalpractice)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.alerts.WithLabelValues("human")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.alerts.WithLabelValues("device")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.roomsEvicted))
}

func TestFiberHandler(t *testing.T) {
	m := New()
	m.TrackRooms(func() int { return 3 })
	m.TrackConnections(func() int { return 2 })
	m.Publish(debounce.Alert{Condition: debounce.Human})

	app := fiber.New()
	app.Get("/metrics", m.FiberHandler())

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	text := string(body)
	for _, want := range []string{
		"truesight_rooms_active 3",
		"truesight_ws_connections 2",
		`truesight_alerts_total{condition="human"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
