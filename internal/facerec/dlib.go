package facerec

import (
	"context"
	"fmt"
	"sync"

	goface "github.com/Kagami/go-face"

	"faceattend/internal/apperr"
)

// DlibEngine runs detection and descriptor extraction in-process via
// dlib. Descriptors are 128-dimensional and deterministic for a fixed
// input. The recognizer is not safe for concurrent use, so calls are
// serialized.
type DlibEngine struct {
	mu  sync.Mutex
	rec *goface.Recognizer
}

// NewDlibEngine loads the dlib models from dir
// (shape_predictor_5_face_landmarks.dat, dlib_face_recognition_resnet_model_v1.dat,
// mmod_human_face_detector.dat).
func NewDlibEngine(dir string) (*DlibEngine, error) {
	rec, err := goface.NewRecognizer(dir)
	if err != nil {
		return nil, fmt.Errorf("load dlib models from %s: %w", dir, err)
	}
	return &DlibEngine{rec: rec}, nil
}

// Locate detects faces in the frame. Undersized faces are dropped.
func (e *DlibEngine) Locate(ctx context.Context, frame *Image) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := frame.JPEG()
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	faces, err := e.rec.Recognize(data)
	e.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("dlib detect: %w", err)
	}

	dets := make([]Detection, 0, len(faces))
	for _, f := range faces {
		b := Box{
			X: f.Rectangle.Min.X,
			Y: f.Rectangle.Min.Y,
			W: f.Rectangle.Dx(),
			H: f.Rectangle.Dy(),
		}
		if b.W < MinFaceSize || b.H < MinFaceSize {
			continue
		}
		// dlib's HOG detector only emits boxes it accepted, so each
		// surviving detection is reported at full confidence.
		dets = append(dets, Detection{Box: b, Confidence: 1.0})
	}
	return SuppressOverlaps(dets, 0.4), nil
}

// Embed computes the descriptor for a face crop.
func (e *DlibEngine) Embed(ctx context.Context, crop *Image) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateCrop(crop); err != nil {
		return nil, err
	}
	data, err := crop.JPEG()
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	f, err := e.rec.RecognizeSingle(data)
	e.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("dlib embed: %w", err)
	}
	if f == nil {
		return nil, fmt.Errorf("%w: no face in crop", apperr.ErrInvalidInput)
	}

	out := make([]float32, len(f.Descriptor))
	copy(out, f.Descriptor[:])
	return out, nil
}

// Dim returns the descriptor length.
func (e *DlibEngine) Dim() int { return 128 }

// Healthy reports whether the recognizer is loaded.
func (e *DlibEngine) Healthy(ctx context.Context) bool { return e.rec != nil }

// Close frees the dlib resources.
func (e *DlibEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec != nil {
		e.rec.Close()
		e.rec = nil
	}
}
