package vision

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"gocv.io/x/gocv"
)

var (
	ErrInvalidBase64 = errors.New("vision: invalid base64 payload")
	ErrDecodeImage   = errors.New("vision: could not decode image")
)

// StripDataURL removes a "data:image/...;base64," prefix and all whitespace.
func StripDataURL(payload string) string {
	if strings.HasPrefix(payload, "data:") {
		if i := strings.Index(payload, ","); i >= 0 {
			payload = payload[i+1:]
		}
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, payload)
}

// DecodeBase64 decodes a base64 or data-URL encoded image into a BGR Mat.
// The caller owns the returned Mat.
func DecodeBase64(payload string) (gocv.Mat, error) {
	raw, err := DecodePayload(payload)
	if err != nil {
		return gocv.NewMat(), err
	}
	return Decode(raw)
}

// DecodePayload returns the encoded image bytes carried by a base64 or
// data-URL payload.
func DecodePayload(payload string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(StripDataURL(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBase64, err)
	}
	return raw, nil
}

// Decode decodes JPEG or PNG bytes into a BGR Mat. The caller owns the
// returned Mat.
func Decode(buf []byte) (gocv.Mat, error) {
	if len(buf) == 0 {
		return gocv.NewMat(), fmt.Errorf("%w: empty buffer", ErrDecodeImage)
	}
	img, err := gocv.IMDecode(buf, gocv.IMReadColor)
	if err != nil {
		img.Close()
		return gocv.NewMat(), fmt.Errorf("%w: %v", ErrDecodeImage, err)
	}
	if img.Empty() {
		img.Close()
		return gocv.NewMat(), fmt.Errorf("%w: empty image", ErrDecodeImage)
	}
	return img, nil
}
