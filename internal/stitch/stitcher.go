package stitch

import (
	"context"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"

	"github.com/kiesman99/pyramid/internal/pyramid"
	"github.com/kiesman99/pyramid/pkg/tile"
)

// FailedTile describes one tile that is missing or unusable
type FailedTile struct {
	Coord tile.Coord
	Path  string
	Error string
}

// TileError reports the tiles a stitch or verify pass could not use
type TileError struct {
	Message         string
	FailedTiles     []FailedTile
	SuccessfulTiles int
	TotalTiles      int
}

func (e *TileError) Error() string {
	return e.Message
}

// Stitcher reads tiles back out of a generated pyramid
type Stitcher struct {
	root string
	meta tile.Metadata
	ext  string
}

// NewStitcher opens the pyramid stored in root
func NewStitcher(root string) (*Stitcher, error) {
	meta, err := pyramid.ReadMetadata(root)
	if err != nil {
		return nil, err
	}

	ext := "png"
	if _, err := os.Stat(tile.Path(root, tile.Coord{}, "jpg")); err == nil {
		ext = "jpg"
	}

	return &Stitcher{root: root, meta: meta, ext: ext}, nil
}

// Metadata returns the pyramid's metadata
func (s *Stitcher) Metadata() tile.Metadata {
	return s.meta
}

// Stitch pastes every tile of one zoom level back into a single square
// image. With crop set, the result is trimmed to the source image's extent
// at that level.
func (s *Stitcher) Stitch(ctx context.Context, zoom int, crop bool) (*image.NRGBA, error) {
	if zoom < 0 || zoom > s.meta.MaxZoom {
		return nil, fmt.Errorf("zoom %d outside [0, %d]", zoom, s.meta.MaxZoom)
	}

	ts := s.meta.TileSize
	n := tile.GridSize(zoom)
	side := ts * n
	out := imaging.New(side, side, tile.Transparent)

	var failed []FailedTile
	successful := 0
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			c := tile.Coord{Zoom: zoom, X: x, Y: y}
			img, path, err := s.readTile(c)
			if err != nil {
				failed = append(failed, FailedTile{Coord: c, Path: path, Error: err.Error()})
				continue
			}

			out = pasteInto(out, img, image.Pt(x*ts, y*ts))
			successful++
		}
	}

	if len(failed) > 0 {
		return nil, &TileError{
			Message:         fmt.Sprintf("%d of %d tiles at zoom %d could not be read", len(failed), n*n, zoom),
			FailedTiles:     failed,
			SuccessfulTiles: successful,
			TotalTiles:      n * n,
		}
	}

	if crop {
		w, h := s.Extent(zoom)
		out = imaging.Crop(out, image.Rect(0, 0, w, h))
	}
	return out, nil
}

// Extent returns the size the source image covers at a zoom level, rounded
// up. A padded canvas smaller than the level is never upscaled, so the
// level canvas side is capped at the padded size.
func (s *Stitcher) Extent(zoom int) (int, int) {
	side := s.meta.TileSize * tile.GridSize(zoom)
	scaled := min(side, s.meta.PaddedSize)
	w := ceilDiv(s.meta.OriginalWidth*scaled, s.meta.PaddedSize)
	h := ceilDiv(s.meta.OriginalHeight*scaled, s.meta.PaddedSize)
	return min(w, side), min(h, side)
}

// Verify checks that every tile the metadata promises exists, decodes and
// has the tile size.
func (s *Stitcher) Verify(ctx context.Context) error {
	expected := pyramid.TotalTiles(s.meta.MaxZoom)

	var failed []FailedTile
	successful := 0
	for z := 0; z <= s.meta.MaxZoom; z++ {
		n := tile.GridSize(z)
		for x := 0; x < n; x++ {
			for y := 0; y < n; y++ {
				if err := ctx.Err(); err != nil {
					return err
				}

				c := tile.Coord{Zoom: z, X: x, Y: y}
				img, path, err := s.readTile(c)
				if err != nil {
					failed = append(failed, FailedTile{Coord: c, Path: path, Error: err.Error()})
					continue
				}
				if b := img.Bounds(); b.Dx() != s.meta.TileSize || b.Dy() != s.meta.TileSize {
					failed = append(failed, FailedTile{Coord: c, Path: path,
						Error: fmt.Sprintf("wrong tile size: got %dx%d, expected %dx%d", b.Dx(), b.Dy(), s.meta.TileSize, s.meta.TileSize)})
					continue
				}
				successful++
			}
		}
	}

	if len(failed) > 0 {
		return &TileError{
			Message:         fmt.Sprintf("%d of %d tiles failed verification", len(failed), expected),
			FailedTiles:     failed,
			SuccessfulTiles: successful,
			TotalTiles:      expected,
		}
	}

	if s.meta.TotalTiles != expected {
		return &TileError{
			Message:         fmt.Sprintf("metadata lists %d tiles, pyramid of max zoom %d has %d", s.meta.TotalTiles, s.meta.MaxZoom, expected),
			SuccessfulTiles: successful,
			TotalTiles:      expected,
		}
	}
	return nil
}

func (s *Stitcher) readTile(c tile.Coord) (image.Image, string, error) {
	path := tile.Path(s.root, c, s.ext)

	f, err := os.Open(path)
	if err != nil {
		return nil, path, err
	}
	defer f.Close()

	img, err := tile.Decode(f)
	if err != nil {
		return nil, path, fmt.Errorf("decode error: %w", err)
	}
	return img, path, nil
}

// pasteInto copies img row by row into dst at pos. Unlike imaging.Paste it
// writes into dst in place instead of cloning the whole level per tile.
func pasteInto(dst *image.NRGBA, img image.Image, pos image.Point) *image.NRGBA {
	src := imaging.Clone(img)
	b := src.Bounds()
	for y := 0; y < b.Dy(); y++ {
		dy := pos.Y + y
		if dy < 0 || dy >= dst.Rect.Dy() {
			continue
		}
		x0 := max(pos.X, 0)
		x1 := min(pos.X+b.Dx(), dst.Rect.Dx())
		if x0 >= x1 {
			continue
		}
		srcOff := src.PixOffset(x0-pos.X, y)
		dstOff := dst.PixOffset(x0, dy)
		copy(dst.Pix[dstOff:dstOff+(x1-x0)*4], src.Pix[srcOff:srcOff+(x1-x0)*4])
	}
	return dst
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
