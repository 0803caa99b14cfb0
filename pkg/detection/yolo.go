package detection

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	"github.com/teslashibe/go-truesight/internal/log"
	"github.com/teslashibe/go-truesight/pkg/vision"
	"gocv.io/x/gocv"
)

// YOLODetector runs YOLOv8 through the OpenCV DNN module. A gocv Net is not
// safe for concurrent use, so inference is serialized.
type YOLODetector struct {
	net       gocv.Net
	config    Config
	mu        sync.Mutex
	inputSize image.Point
	log       *slog.Logger
}

// NewYOLO loads the ONNX model named in cfg.
func NewYOLO(cfg Config) (*YOLODetector, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load YOLO model from %s", cfg.ModelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &YOLODetector{
		net:       net,
		config:    cfg,
		inputSize: image.Pt(cfg.InputWidth, cfg.InputHeight),
		log:       log.Component("detection"),
	}, nil
}

// Detect decodes a JPEG or PNG frame and returns every object above the
// confidence threshold. Undecodable input returns vision.ErrDecodeImage.
func (d *YOLODetector) Detect(jpeg []byte) ([]ObjectDetection, error) {
	img, err := vision.Decode(jpeg)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	if d.config.MaskScreens {
		if masked := MaskScreens(&img); len(masked) > 0 {
			d.log.Debug("masked screen areas", "count", len(masked))
		}
	}

	return d.DetectMat(img)
}

// DetectMat runs inference on a decoded BGR frame.
func (d *YOLODetector) DetectMat(img gocv.Mat) ([]ObjectDetection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	imgW := float32(img.Cols())
	imgH := float32(img.Rows())

	blob := gocv.BlobFromImage(img, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	dets, err := d.parseOutput(output, imgW, imgH)
	if err != nil {
		return nil, err
	}
	if len(dets) > 0 {
		d.log.Debug("objects detected", "count", len(dets))
	}
	return dets, nil
}

// parseOutput decodes the YOLOv8 [1, 84, 8400] tensor: 4 box values
// (cx, cy, w, h) then 80 class scores per candidate.
func (d *YOLODetector) parseOutput(output gocv.Mat, imgW, imgH float32) ([]ObjectDetection, error) {
	sizes := output.Size()
	if len(sizes) != 3 {
		return nil, fmt.Errorf("unexpected output shape %v", sizes)
	}
	cols := sizes[1] // 84
	rows := sizes[2] // 8400

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output tensor: %w", err)
	}

	var (
		boxes       []image.Rectangle
		confidences []float32
		classIDs    []int
	)
	for i := 0; i < rows; i++ {
		maxScore := float32(0)
		maxClassID := 0
		for c := 4; c < cols; c++ {
			if score := data[c*rows+i]; score > maxScore {
				maxScore = score
				maxClassID = c - 4
			}
		}
		if maxScore < d.config.ConfidenceThresh {
			continue
		}

		cx, cy := data[0*rows+i], data[1*rows+i]
		w, h := data[2*rows+i], data[3*rows+i]

		sx := imgW / float32(d.config.InputWidth)
		sy := imgH / float32(d.config.InputHeight)
		boxes = append(boxes, image.Rect(
			int((cx-w/2)*sx), int((cy-h/2)*sy),
			int((cx+w/2)*sx), int((cy+h/2)*sy),
		))
		confidences = append(confidences, maxScore)
		classIDs = append(classIDs, maxClassID)
	}

	if len(boxes) == 0 {
		return nil, nil
	}

	indices := gocv.NMSBoxes(boxes, confidences, d.config.ConfidenceThresh, d.config.NMSThresh)

	dets := make([]ObjectDetection, 0, len(indices))
	for _, idx := range indices {
		box := boxes[idx].Intersect(image.Rect(0, 0, int(imgW), int(imgH)))
		dets = append(dets, ObjectDetection{
			Detection: Detection{
				X:          float64(box.Min.X) / float64(imgW),
				Y:          float64(box.Min.Y) / float64(imgH),
				W:          float64(box.Dx()) / float64(imgW),
				H:          float64(box.Dy()) / float64(imgH),
				Confidence: float64(confidences[idx]),
			},
			ClassID:   classIDs[idx],
			ClassName: ClassName(classIDs[idx]),
			Box:       box,
		})
	}
	return dets, nil
}

// Close releases the network.
func (d *YOLODetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.net.Close()
	return nil
}
