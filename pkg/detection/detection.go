// Package detection finds people and phones in proctoring camera frames.
package detection

import "image"

// COCO class names the proctoring flow cares about.
const (
	ClassPerson    = "person"
	ClassCellPhone = "cell phone"
)

// Detection is a bounding box in normalized coordinates.
type Detection struct {
	X, Y       float64 // Top-left corner (0-1 normalized)
	W, H       float64 // Width and height (0-1 normalized)
	Confidence float64
}

// Area returns the normalized area, i.e. the fraction of the frame covered.
func (d Detection) Area() float64 {
	return d.W * d.H
}

// ObjectDetection is a detection with its class and pixel box.
type ObjectDetection struct {
	Detection
	ClassID   int
	ClassName string
	Box       image.Rectangle // Pixel coordinates in the source frame
}

// Detector finds objects in encoded frames.
type Detector interface {
	Detect(jpeg []byte) ([]ObjectDetection, error)
	Close() error
}

// Config holds YOLO detector configuration
type Config struct {
	ModelPath        string
	ConfidenceThresh float32
	NMSThresh        float32
	InputWidth       int
	InputHeight      int
	MaskScreens      bool // Grey out laptop screens before inference
}

// DefaultConfig returns production defaults for YOLOv8n
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/yolov8n.onnx",
		ConfidenceThresh: 0.3,
		NMSThresh:        0.45,
		InputWidth:       640,
		InputHeight:      640,
		MaskScreens:      true,
	}
}

// Partition splits detections into people and phones, dropping every other
// class.
func Partition(dets []ObjectDetection) (persons, phones []ObjectDetection) {
	for _, d := range dets {
		switch d.ClassName {
		case ClassPerson:
			persons = append(persons, d)
		case ClassCellPhone:
			phones = append(phones, d)
		}
	}
	return persons, phones
}

// Real-person heuristics.
const (
	MinPersonArea   = 0.02
	MinPersonAspect = 0.5
	MaxPersonAspect = 4.0
)

// FilterRealHumans drops person boxes that are more likely people shown on
// a screen: too small a share of the frame, or implausible height/width.
func FilterRealHumans(dets []ObjectDetection) []ObjectDetection {
	var out []ObjectDetection
	for _, d := range dets {
		w, h := d.Box.Dx(), d.Box.Dy()
		aspect := 0.0
		if w > 0 {
			aspect = float64(h) / float64(w)
		}
		if d.Area() > MinPersonArea && aspect > MinPersonAspect && aspect < MaxPersonAspect {
			out = append(out, d)
		}
	}
	return out
}

// COCOClasses contains the 80 COCO class names
var COCOClasses = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator",
	"book", "clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}

// ClassName maps a COCO class ID to its name.
func ClassName(id int) string {
	if id < 0 || id >= len(COCOClasses) {
		return "unknown"
	}
	return COCOClasses[id]
}
