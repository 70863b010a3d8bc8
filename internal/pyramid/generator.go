// Package pyramid turns one large raster image into a tile pyramid: a
// directory of fixed-size square tiles at every zoom level from a single
// tile (zoom 0) up to native resolution, plus a metadata.json record the
// viewer calibrates against.
//
// The source is placed at the top-left of a square padded canvas, so the
// source pixel (0,0) is the top-left pixel of tile 0/0/0 at every level.
package pyramid

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/kiesman99/pyramid/pkg/tile"
)

// Generator builds tile pyramids with a fixed set of options
type Generator struct {
	opts Options
	log  *slog.Logger

	mu sync.Mutex // serialises Progress calls
}

// New validates opts and creates a generator
func New(opts Options) (*Generator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = newNopLogger()
	}

	return &Generator{opts: opts, log: logger}, nil
}

// Run loads the source image at input and writes its pyramid to outputDir
func (g *Generator) Run(ctx context.Context, input, outputDir string) (tile.Metadata, error) {
	src, err := Load(input)
	if err != nil {
		return tile.Metadata{}, err
	}
	return g.Generate(ctx, src, outputDir)
}

// Generate writes the pyramid of src to outputDir. Existing tiles are
// overwritten; metadata.json is written only after every tile succeeded.
func (g *Generator) Generate(ctx context.Context, src image.Image, outputDir string) (tile.Metadata, error) {
	b := src.Bounds()
	layout, err := Calculate(b.Dx(), b.Dy(), g.opts.TileSize, g.opts.Policy)
	if err != nil {
		return tile.Metadata{}, err
	}

	g.log.Debug("pyramid layout",
		"width", layout.Width, "height", layout.Height,
		"padded_size", layout.PaddedSize, "max_zoom", layout.MaxZoom,
		"policy", layout.Policy.String(), "format", g.opts.Encoding.Format.String(),
		"background", tile.FormatBackground(g.opts.Background))
	if !layout.Aligned() {
		g.log.Warn("padded canvas is not tile aligned, top zoom level is resampled or background filled",
			"padded_size", layout.PaddedSize, "tile_size", layout.TileSize, "max_zoom", layout.MaxZoom)
	}
	g.emit(Event{Kind: EventStart, Layout: layout})

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return tile.Metadata{}, ioError("create directory", outputDir, err)
	}

	canvas, err := Pad(src, layout.PaddedSize, g.opts.Background)
	if err != nil {
		return tile.Metadata{}, err
	}

	slicer := &Slicer{
		Root:       outputDir,
		TileSize:   layout.TileSize,
		Background: g.opts.Background,
		Encoding:   g.opts.Encoding,
		Workers:    g.opts.workers(),
	}

	var written atomic.Int64
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.zoomWorkers())

	for z := 0; z <= layout.MaxZoom; z++ {
		if gctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			side := layout.ZoomSide(z)
			g.emit(Event{Kind: EventZoomStart, Layout: layout, Zoom: z, Side: side, Tiles: 1 << uint(2*z)})

			zc := Resample(canvas, side, g.opts.Filter)
			n, err := slicer.Slice(gctx, zc, z)
			total := written.Add(int64(n))
			if err != nil {
				return err
			}

			g.emit(Event{Kind: EventZoomDone, Layout: layout, Zoom: z, Side: side, Tiles: n, Written: int(total)})
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return tile.Metadata{}, err
	}
	if err := ctx.Err(); err != nil {
		return tile.Metadata{}, err
	}

	meta := layout.Metadata()
	if got := int(written.Load()); got != meta.TotalTiles {
		return tile.Metadata{}, ioError("write tiles", outputDir,
			fmt.Errorf("wrote %d tiles, expected %d", got, meta.TotalTiles))
	}

	if err := WriteMetadata(outputDir, meta); err != nil {
		return tile.Metadata{}, err
	}
	g.emit(Event{Kind: EventMetadata, Layout: layout, Path: filepath.Join(outputDir, tile.MetadataFile), Written: meta.TotalTiles})
	g.emit(Event{Kind: EventDone, Layout: layout, Written: meta.TotalTiles})

	return meta, nil
}

func (g *Generator) emit(e Event) {
	if g.opts.Progress == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.opts.Progress(e)
}
