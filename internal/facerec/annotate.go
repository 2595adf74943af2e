package facerec

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Label pairs a detection box with the text drawn above it.
type Label struct {
	Box     Box
	Text    string
	Matched bool
}

var (
	matchColor   = color.RGBA{G: 200, A: 255}
	noMatchColor = color.RGBA{R: 220, A: 255}
)

// Annotate returns a copy of the frame with boxes and name labels
// rendered on it, for the processed_image response field.
func (im *Image) Annotate(labels []Label) *Image {
	b := im.img.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, im.img, b.Min, draw.Src)

	for _, l := range labels {
		c := noMatchColor
		if l.Matched {
			c = matchColor
		}
		drawRect(out, l.Box, c, 2)
		if l.Text != "" {
			drawLabel(out, l.Box, l.Text, c)
		}
	}
	return FromImage(out)
}

func drawRect(dst *image.RGBA, b Box, c color.RGBA, thickness int) {
	for t := 0; t < thickness; t++ {
		for x := b.X - t; x <= b.X+b.W+t; x++ {
			set(dst, x, b.Y-t, c)
			set(dst, x, b.Y+b.H+t, c)
		}
		for y := b.Y - t; y <= b.Y+b.H+t; y++ {
			set(dst, b.X-t, y, c)
			set(dst, b.X+b.W+t, y, c)
		}
	}
}

func drawLabel(dst *image.RGBA, b Box, text string, c color.RGBA) {
	y := b.Y - 6
	if y < basicfont.Face7x13.Height {
		y = b.Y + b.H + basicfont.Face7x13.Height + 4
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(b.X, y),
	}
	d.DrawString(text)
}

func set(dst *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(dst.Bounds()) {
		dst.SetRGBA(x, y, c)
	}
}
