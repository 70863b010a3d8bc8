package pyramid

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"os"
	"sync/atomic"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"github.com/kiesman99/pyramid/pkg/tile"
)

// Slicer cuts zoom level canvases into tiles and writes them below Root
type Slicer struct {
	Root       string
	TileSize   int
	Background color.NRGBA
	Encoding   tile.EncodeOptions
	Workers    int
}

// Slice writes the 2^z × 2^z tiles of one zoom level and returns how many
// were written. The first failure cancels the remaining jobs.
func (s *Slicer) Slice(ctx context.Context, canvas *image.NRGBA, zoom int) (int, error) {
	n := tile.GridSize(zoom)
	ext := s.Encoding.Format.Ext()

	for x := 0; x < n; x++ {
		dir := tile.ColumnDir(s.Root, zoom, x)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, ioError("create directory", dir, err)
		}
	}

	var written atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.Workers, 1))

dispatch:
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			if gctx.Err() != nil {
				break dispatch
			}
			c := tile.Coord{Zoom: zoom, X: x, Y: y}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				img := Crop(canvas, c, s.TileSize, s.Background)
				if err := s.write(tile.Path(s.Root, c, ext), img); err != nil {
					return err
				}
				written.Add(1)
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return int(written.Load()), err
	}
	return int(written.Load()), ctx.Err()
}

func (s *Slicer) write(path string, img image.Image) error {
	var buf bytes.Buffer
	if err := tile.Encode(&buf, img, s.Encoding); err != nil {
		return ioError("encode tile", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return ioError("write tile", path, err)
	}
	return nil
}

// Crop extracts tile c from a zoom level canvas. Pixels past the canvas
// edge are filled with bg.
func Crop(canvas *image.NRGBA, c tile.Coord, tileSize int, bg color.NRGBA) *image.NRGBA {
	b := canvas.Bounds()
	rect := image.Rect(c.X*tileSize, c.Y*tileSize, (c.X+1)*tileSize, (c.Y+1)*tileSize).Add(b.Min)
	if rect.In(b) {
		return imaging.Crop(canvas, rect)
	}

	out := imaging.New(tileSize, tileSize, bg)
	part := rect.Intersect(b)
	if part.Empty() {
		return out
	}
	return imaging.Paste(out, imaging.Crop(canvas, part), part.Min.Sub(rect.Min))
}
