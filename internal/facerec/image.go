package facerec

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	xdraw "golang.org/x/image/draw"

	"faceattend/internal/apperr"
)

// Frames larger than this are downscaled before detection to bound
// processing time. Matches the 640x480 working size of the detector.
const (
	maxFrameWidth  = 640
	maxFrameHeight = 480
)

// Image wraps a decoded frame together with its JPEG bytes, so engines
// that consume encoded data do not re-encode per call. Boxes are always
// reported in the working (possibly downscaled) frame.
type Image struct {
	img image.Image
	jpg []byte
}

// Width returns the working-frame width in pixels.
func (im *Image) Width() int { return im.img.Bounds().Dx() }

// Height returns the working-frame height in pixels.
func (im *Image) Height() int { return im.img.Bounds().Dy() }

// Decoded returns the working frame.
func (im *Image) Decoded() image.Image { return im.img }

// JPEG returns the frame encoded as JPEG.
func (im *Image) JPEG() ([]byte, error) {
	if im.jpg != nil {
		return im.jpg, nil
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, im.img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("%w: encode jpeg: %v", apperr.ErrInvalidInput, err)
	}
	im.jpg = buf.Bytes()
	return im.jpg, nil
}

// DecodeBase64 decodes a base64 or data-URL image and downscales large
// frames to the working size.
func DecodeBase64(data string) (*Image, error) {
	if data == "" {
		return nil, fmt.Errorf("%w: empty image", apperr.ErrValidation)
	}
	if strings.HasPrefix(data, "data:") {
		if idx := strings.Index(data, ","); idx >= 0 {
			data = data[idx+1:]
		}
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		// Browsers occasionally emit unpadded payloads.
		raw, err = base64.RawStdEncoding.DecodeString(data)
		if err != nil {
			return nil, fmt.Errorf("%w: base64 decode: %v", apperr.ErrInvalidInput, err)
		}
	}
	return DecodeBytes(raw)
}

// DecodeBytes decodes raw image bytes (JPEG, PNG or GIF).
func DecodeBytes(raw []byte) (*Image, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: decode image: %v", apperr.ErrInvalidInput, err)
	}
	size := img.Bounds().Size()
	if size.X > maxFrameWidth || size.Y > maxFrameHeight {
		img = downscale(img, maxFrameWidth, maxFrameHeight)
	}
	return &Image{img: img}, nil
}

// FromImage wraps an already-decoded image without rescaling. Used for
// face crops and tests.
func FromImage(img image.Image) *Image {
	return &Image{img: img}
}

// Crop extracts the face region for the given box, clamped to the
// frame.
func (im *Image) Crop(b Box) *Image {
	r := image.Rect(b.X, b.Y, b.X+b.W, b.Y+b.H).Intersect(im.img.Bounds())
	if r.Empty() {
		return FromImage(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	}
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	xdraw.Copy(out, image.Point{}, im.img, r, xdraw.Src, nil)
	return FromImage(out)
}

// Base64JPEG returns the frame as a JPEG data URL.
func (im *Image) Base64JPEG() (string, error) {
	raw, err := im.JPEG()
	if err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(raw), nil
}

func downscale(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	sw := float64(maxW) / float64(b.Dx())
	sh := float64(maxH) / float64(b.Dy())
	scale := sw
	if sh < sw {
		scale = sh
	}
	w := int(float64(b.Dx()) * scale)
	h := int(float64(b.Dy()) * scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(out, out.Bounds(), img, b, xdraw.Src, nil)
	return out
}
