package tile

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif" // Register GIF format decoder
	"image/png"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/ericpauley/go-quantize/quantize"
	"github.com/lucasb-eyer/go-colorful"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// Transparent is the fully transparent background fill
var Transparent = color.NRGBA{}

// Decode reads an image in any registered format, applying EXIF orientation
// for JPEG sources.
func Decode(r io.Reader) (image.Image, error) {
	return imaging.Decode(r, imaging.AutoOrientation(true))
}

// Encode writes img to w in the requested tile format
func Encode(w io.Writer, img image.Image, opts EncodeOptions) error {
	switch opts.Format {
	case FormatPNG:
		return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	case FormatJPEG:
		quality := opts.Quality
		if quality == 0 {
			quality = DefaultJPEGQuality
		}
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case FormatPNG8:
		return encodePaletted(w, img, opts.Colors)
	default:
		return fmt.Errorf("unknown tile format: %v", opts.Format)
	}
}

// encodePaletted reduces img to at most colors entries with a median cut
// palette and writes it as an indexed PNG. Alpha is reduced to one bit:
// pixels below half opacity map to a transparent palette entry, the rest
// are quantized as opaque colours.
func encodePaletted(w io.Writer, img image.Image, colors int) (err error) {
	if colors == 0 {
		colors = DefaultColors
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("palette quantization failed: %v", r)
		}
	}()

	src := imaging.Clone(img)
	b := src.Bounds()

	// go-quantize splits buckets on R, G and B only, so colours that
	// differ just in alpha must never reach it.
	opaque := imaging.Clone(src)
	translucent := false
	for i := 3; i < len(opaque.Pix); i += 4 {
		if opaque.Pix[i] != 0xff {
			translucent = true
		}
		opaque.Pix[i] = 0xff
	}

	if !translucent {
		q := quantize.MedianCutQuantizer{}
		pm := image.NewPaletted(b, q.Quantize(make(color.Palette, 0, colors), src))
		draw.Draw(pm, b, src, b.Min, draw.Src)
		return encodePNG(w, pm)
	}

	visible := func(x, y int) bool {
		return src.Pix[src.PixOffset(x, y)+3] >= 0x80
	}
	q := quantize.MedianCutQuantizer{
		Weighting: func(_ image.Image, x, y int) uint32 {
			if visible(x, y) {
				return 1
			}
			return 0
		},
		AddTransparent: true,
	}
	palette := q.Quantize(make(color.Palette, 0, colors), opaque)

	// The transparent entry is appended last
	transparentIdx := uint8(len(palette) - 1)
	solid := palette[:len(palette)-1]

	pm := image.NewPaletted(b, palette)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if !visible(x, y) || len(solid) == 0 {
				pm.SetColorIndex(x, y, transparentIdx)
				continue
			}
			pm.SetColorIndex(x, y, uint8(solid.Index(opaque.NRGBAAt(x, y))))
		}
	}
	return encodePNG(w, pm)
}

func encodePNG(w io.Writer, pm *image.Paletted) error {
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	return enc.Encode(w, pm)
}

// ParseBackground parses a background fill: "transparent" (or "none") for a
// fully transparent fill, otherwise an opaque "#RRGGBB" colour.
func ParseBackground(s string) (color.NRGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "transparent", "none":
		return Transparent, nil
	}

	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid background colour %q: %w", s, err)
	}

	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// FormatBackground is the inverse of ParseBackground
func FormatBackground(c color.NRGBA) string {
	if c.A == 0 {
		return "transparent"
	}
	return colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}.Hex()
}
