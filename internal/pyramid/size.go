package pyramid

import (
	"math/bits"

	"github.com/kiesman99/pyramid/pkg/tile"
)

// maxLevels caps the zoom count so tile arithmetic stays within int range
const maxLevels = 24

// Layout is the geometry of a pyramid, derived from the source dimensions
// and the tile size.
type Layout struct {
	Width, Height int
	TileSize      int
	PaddedSize    int
	MaxZoom       int
	Policy        Policy
}

// Calculate derives the padded canvas size and the maximum zoom level.
//
// Under PolicyTile the padded size is (2^n)*t for the smallest n covering
// max(w, h), and maxZoom is n. Under PolicyCanvas the padded size is the
// smallest power of two covering max(w, h) and maxZoom is
// floor(log2(padded/t)), clamped to zero when the image is smaller than a
// tile.
func Calculate(w, h, t int, policy Policy) (Layout, error) {
	if t <= 0 {
		return Layout{}, configError("tile size must be positive, got %d", t)
	}
	if w <= 0 || h <= 0 {
		return Layout{}, configError("image dimensions must be positive, got %dx%d", w, h)
	}

	m := max(w, h)
	l := Layout{Width: w, Height: h, TileSize: t, Policy: policy}

	switch policy {
	case PolicyTile:
		n := 0
		for t<<uint(n) < m {
			n++
			if n > maxLevels {
				return Layout{}, configError("image %dx%d needs more than %d zoom levels at tile size %d", w, h, maxLevels, t)
			}
		}
		l.PaddedSize = t << uint(n)
		l.MaxZoom = n
	case PolicyCanvas:
		l.PaddedSize = 1 << uint(bits.Len(uint(m-1)))
		if l.PaddedSize >= t {
			l.MaxZoom = bits.Len(uint(l.PaddedSize/t)) - 1
		}
		if l.MaxZoom > maxLevels {
			return Layout{}, configError("image %dx%d needs more than %d zoom levels at tile size %d", w, h, maxLevels, t)
		}
	default:
		return Layout{}, configError("unknown padding policy: %v", policy)
	}

	return l, nil
}

// ZoomSide returns the canvas side at zoom level z
func (l Layout) ZoomSide(z int) int {
	return l.TileSize << uint(z)
}

// Aligned reports whether the padded canvas is exactly the top zoom level's
// side. It is always true under PolicyTile. Under PolicyCanvas it fails for
// tile sizes that are not powers of two, or for images smaller than a tile.
func (l Layout) Aligned() bool {
	return l.PaddedSize == l.ZoomSide(l.MaxZoom)
}

// TotalTiles returns the tile count of the whole pyramid
func (l Layout) TotalTiles() int {
	return TotalTiles(l.MaxZoom)
}

// Metadata builds the metadata record for the layout
func (l Layout) Metadata() tile.Metadata {
	return tile.Metadata{
		OriginalWidth:  l.Width,
		OriginalHeight: l.Height,
		PaddedSize:     l.PaddedSize,
		MaxZoom:        l.MaxZoom,
		TileSize:       l.TileSize,
		TotalTiles:     l.TotalTiles(),
	}
}

// TotalTiles returns the sum of 4^z for z in [0, maxZoom]
func TotalTiles(maxZoom int) int {
	total := 0
	for z := 0; z <= maxZoom; z++ {
		total += 1 << uint(2*z)
	}
	return total
}
