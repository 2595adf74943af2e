package facerec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/jpeg"
	"testing"

	"faceattend/internal/apperr"
)

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeBase64DataURL(t *testing.T) {
	raw := encodeJPEG(t, 32, 32)
	b64 := base64.StdEncoding.EncodeToString(raw)

	for _, data := range []string{b64, "data:image/jpeg;base64," + b64} {
		im, err := DecodeBase64(data)
		if err != nil {
			t.Fatalf("DecodeBase64: %v", err)
		}
		if im.Width() != 32 || im.Height() != 32 {
			t.Fatalf("decoded %dx%d, want 32x32", im.Width(), im.Height())
		}
	}
}

func TestDecodeBase64Invalid(t *testing.T) {
	if _, err := DecodeBase64(""); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("empty: err = %v", err)
	}
	if _, err := DecodeBase64("!!not base64!!"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("garbage: err = %v", err)
	}
	notAnImage := base64.StdEncoding.EncodeToString([]byte("hello"))
	if _, err := DecodeBase64(notAnImage); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("non-image: err = %v", err)
	}
}

func TestDecodeBytesDownscalesLargeFrames(t *testing.T) {
	im, err := DecodeBytes(encodeJPEG(t, 1280, 960))
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if im.Width() > maxFrameWidth || im.Height() > maxFrameHeight {
		t.Fatalf("frame %dx%d not downscaled", im.Width(), im.Height())
	}
	// Aspect ratio preserved.
	if im.Width() != 640 || im.Height() != 480 {
		t.Fatalf("frame %dx%d, want 640x480", im.Width(), im.Height())
	}
}

func TestDecodeBytesKeepsSmallFrames(t *testing.T) {
	im, err := DecodeBytes(encodeJPEG(t, 320, 240))
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if im.Width() != 320 || im.Height() != 240 {
		t.Fatalf("small frame resized to %dx%d", im.Width(), im.Height())
	}
}

func TestCropClampsToFrame(t *testing.T) {
	im := FromImage(image.NewRGBA(image.Rect(0, 0, 100, 100)))

	crop := im.Crop(Box{X: 80, Y: 80, W: 50, H: 50})
	if crop.Width() != 20 || crop.Height() != 20 {
		t.Fatalf("crop %dx%d, want clamped 20x20", crop.Width(), crop.Height())
	}

	outside := im.Crop(Box{X: 200, Y: 200, W: 10, H: 10})
	if outside.Width() != 0 || outside.Height() != 0 {
		t.Fatalf("out-of-frame crop %dx%d, want empty", outside.Width(), outside.Height())
	}
}

func TestValidateCrop(t *testing.T) {
	small := FromImage(image.NewRGBA(image.Rect(0, 0, MinFaceSize-1, MinFaceSize-1)))
	if err := validateCrop(small); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("undersized crop err = %v", err)
	}
	ok := FromImage(image.NewRGBA(image.Rect(0, 0, MinFaceSize, MinFaceSize)))
	if err := validateCrop(ok); err != nil {
		t.Fatalf("valid crop rejected: %v", err)
	}
}

func TestBase64JPEGRoundTrip(t *testing.T) {
	im := FromImage(image.NewRGBA(image.Rect(0, 0, 10, 10)))
	data, err := im.Base64JPEG()
	if err != nil {
		t.Fatalf("Base64JPEG: %v", err)
	}
	back, err := DecodeBase64(data)
	if err != nil {
		t.Fatalf("decode round trip: %v", err)
	}
	if back.Width() != 10 || back.Height() != 10 {
		t.Fatalf("round trip %dx%d", back.Width(), back.Height())
	}
}
