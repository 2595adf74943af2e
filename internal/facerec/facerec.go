// Package facerec provides face detection and embedding extraction.
// Two engines implement the contracts: a dlib-backed in-process engine
// and a remote HTTP face service.
package facerec

import (
	"context"
	"fmt"

	"faceattend/internal/apperr"
)

// Box is a face bounding box in source-frame pixel coordinates.
type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Detection is one located face.
type Detection struct {
	Box        Box
	Confidence float64
}

// Locator finds face bounding boxes in a frame. An empty result is not
// an error; faces below the detector's confidence floor are dropped
// silently.
type Locator interface {
	Locate(ctx context.Context, frame *Image) ([]Detection, error)
}

// Codec converts a face crop into a fixed-length descriptor. It must be
// deterministic for a fixed input so repeated enrollment of the same
// photo yields identical vectors.
type Codec interface {
	Embed(ctx context.Context, crop *Image) ([]float32, error)
	Dim() int
}

// Engine is a Locator and Codec sharing one backend.
type Engine interface {
	Locator
	Codec
	Healthy(ctx context.Context) bool
	Close()
}

// MinFaceSize is the smallest usable face edge in pixels. Crops below
// this are unprocessable.
const MinFaceSize = 40

func validateCrop(crop *Image) error {
	if crop == nil || crop.Width() == 0 || crop.Height() == 0 {
		return fmt.Errorf("%w: empty crop", apperr.ErrInvalidInput)
	}
	if crop.Width() < MinFaceSize || crop.Height() < MinFaceSize {
		return fmt.Errorf("%w: crop %dx%d below %dpx minimum",
			apperr.ErrInvalidInput, crop.Width(), crop.Height(), MinFaceSize)
	}
	return nil
}
