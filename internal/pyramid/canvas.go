package pyramid

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Pad places src unscaled at the top-left corner of a size×size canvas
// filled with bg. An opaque bg shows through transparent source pixels; a
// transparent bg keeps the source pixels verbatim.
func Pad(src image.Image, size int, bg color.NRGBA) (*image.NRGBA, error) {
	b := src.Bounds()
	if b.Dx() > size || b.Dy() > size {
		return nil, configError("padded size %d smaller than source %dx%d", size, b.Dx(), b.Dy())
	}

	canvas := imaging.New(size, size, bg)
	if bg.A == 0 {
		return imaging.Paste(canvas, src, image.Point{}), nil
	}
	return imaging.Overlay(canvas, src, image.Point{}, 1.0), nil
}
