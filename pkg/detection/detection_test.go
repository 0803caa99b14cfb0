package detection

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-truesight/pkg/vision"
	"gocv.io/x/gocv"
)

func obj(class string, conf float64, box image.Rectangle, frame image.Point) ObjectDetection {
	return ObjectDetection{
		Detection: Detection{
			X:          float64(box.Min.X) / float64(frame.X),
			Y:          float64(box.Min.Y) / float64(frame.Y),
			W:          float64(box.Dx()) / float64(frame.X),
			H:          float64(box.Dy()) / float64(frame.Y),
			Confidence: conf,
		},
		ClassName: class,
		Box:       box,
	}
}

func TestPartition(t *testing.T) {
	frame := image.Pt(640, 480)
	dets := []ObjectDetection{
		obj(ClassPerson, 0.9, image.Rect(0, 0, 100, 200), frame),
		obj("laptop", 0.8, image.Rect(0, 0, 300, 200), frame),
		obj(ClassCellPhone, 0.6, image.Rect(10, 10, 40, 80), frame),
		obj(ClassPerson, 0.4, image.Rect(300, 0, 400, 200), frame),
	}

	persons, phones := Partition(dets)
	assert.Len(t, persons, 2)
	require.Len(t, phones, 1)
	assert.Equal(t, 0.6, phones[0].Confidence)
}

func TestFilterRealHumans(t *testing.T) {
	frame := image.Pt(1000, 1000)
	tests := []struct {
		name string
		box  image.Rectangle
		keep bool
	}{
		{"standing person", image.Rect(100, 100, 300, 500), true},
		{"tiny person on a screen", image.Rect(0, 0, 50, 100), false},
		{"too wide", image.Rect(0, 0, 600, 200), false},
		{"too tall", image.Rect(0, 0, 100, 900), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterRealHumans([]ObjectDetection{obj(ClassPerson, 0.9, tt.box, frame)})
			assert.Equal(t, tt.keep, len(got) == 1)
		})
	}
}

func TestClassName(t *testing.T) {
	assert.Equal(t, "person", ClassName(0))
	assert.Equal(t, ClassCellPhone, ClassName(67))
	assert.Equal(t, "unknown", ClassName(80))
	assert.Equal(t, "unknown", ClassName(-1))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, float32(0.3), cfg.ConfidenceThresh)
	assert.Equal(t, float32(0.45), cfg.NMSThresh)
	assert.Equal(t, 640, cfg.InputWidth)
	assert.True(t, cfg.MaskScreens)
}

type fakeDetector struct {
	err   error
	calls int
}

func (f *fakeDetector) Detect([]byte) ([]ObjectDetection, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []ObjectDetection{{ClassName: ClassPerson}}, nil
}

func (f *fakeDetector) Close() error { return nil }

func TestGuardedDetectorOpensAfterFailures(t *testing.T) {
	inner := &fakeDetector{err: errors.New("inference failed")}
	g := NewGuarded(inner, BreakerConfig{Failures: 3, Timeout: time.Minute})

	for i := 0; i < 3; i++ {
		_, err := g.Detect(nil)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrDetectorUnavailable))
	}
	assert.Equal(t, "open", g.State())

	_, err := g.Detect(nil)
	assert.ErrorIs(t, err, ErrDetectorUnavailable)
	assert.Equal(t, 3, inner.calls, "open circuit must not reach the detector")
}

func TestGuardedDetectorIgnoresBadFrames(t *testing.T) {
	inner := &fakeDetector{err: fmt.Errorf("%w: truncated", vision.ErrDecodeImage)}
	g := NewGuarded(inner, BreakerConfig{Failures: 2, Timeout: time.Minute})

	for i := 0; i < 5; i++ {
		_, err := g.Detect(nil)
		assert.ErrorIs(t, err, vision.ErrDecodeImage)
	}
	assert.Equal(t, "closed", g.State())

	inner.err = nil
	dets, err := g.Detect(nil)
	require.NoError(t, err)
	assert.Len(t, dets, 1)
}

func TestMaskScreens(t *testing.T) {
	img := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	if img.Empty() {
		t.Skip("OpenCV could not allocate a frame")
	}
	defer img.Close()
	img.SetTo(gocv.NewScalar(40, 40, 40, 0))

	// 200x120 bright panel: area 24000, aspect 1.67.
	gocv.Rectangle(&img, image.Rect(100, 100, 300, 220), color.RGBA{250, 250, 250, 0}, -1)
	// Bright square: wrong aspect, left alone.
	gocv.Rectangle(&img, image.Rect(400, 250, 520, 370), color.RGBA{250, 250, 250, 0}, -1)

	masked := MaskScreens(&img)
	require.Len(t, masked, 1)
	assert.InDelta(t, 100, masked[0].Min.X, 2)

	px := img.GetVecbAt(160, 200)
	assert.Equal(t, uint8(128), px[0])
	sq := img.GetVecbAt(300, 460)
	assert.Equal(t, uint8(250), sq[0])
}
