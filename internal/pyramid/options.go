package pyramid

import (
	"fmt"
	"image/color"
	"log/slog"
	"runtime"
	"strings"

	"github.com/kiesman99/pyramid/pkg/tile"
)

// Policy selects how the padded canvas size is derived
type Policy int

const (
	// PolicyTile pads to the smallest power-of-two multiple of the tile
	// size, so every zoom level has exact tile boundaries.
	PolicyTile Policy = iota
	// PolicyCanvas pads to the smallest power of two covering the image,
	// regardless of tile alignment.
	PolicyCanvas
)

func (p Policy) String() string {
	switch p {
	case PolicyTile:
		return "tile"
	case PolicyCanvas:
		return "canvas"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy maps a policy name to a Policy
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tile", "":
		return PolicyTile, nil
	case "canvas":
		return PolicyCanvas, nil
	default:
		return 0, configError("unknown padding policy: %s", s)
	}
}

// Options parameterises a pyramid run
type Options struct {
	TileSize   int
	Policy     Policy
	Background color.NRGBA // transparent or fully opaque
	Encoding   tile.EncodeOptions
	Filter     Filter

	// Workers bounds concurrent tile crop+encode jobs within one zoom
	// level. Zero means runtime.GOMAXPROCS(0).
	Workers int
	// ZoomWorkers bounds how many zoom level canvases exist at once.
	// Zero means 1.
	ZoomWorkers int

	// Progress, if set, receives lifecycle events. Calls are serialised.
	Progress func(Event)
	// Logger receives debug diagnostics. Nil discards them.
	Logger *slog.Logger
}

// DefaultOptions returns the overlay-map defaults: 256px lossless tiles on a
// transparent canvas, Lanczos resampling.
func DefaultOptions() Options {
	return Options{
		TileSize:   tile.DefaultTileSize,
		Policy:     PolicyTile,
		Background: tile.Transparent,
		Encoding: tile.EncodeOptions{
			Format:  tile.FormatPNG,
			Quality: tile.DefaultJPEGQuality,
			Colors:  tile.DefaultColors,
		},
		Filter: FilterLanczos,
	}
}

// Validate checks option values and combinations
func (o *Options) Validate() error {
	if o.TileSize <= 0 {
		return configError("tile size must be positive, got %d", o.TileSize)
	}
	if o.Policy != PolicyTile && o.Policy != PolicyCanvas {
		return configError("unknown padding policy: %v", o.Policy)
	}
	if a := o.Background.A; a != 0 && a != 0xff {
		return configError("background must be transparent or opaque, got alpha %d", a)
	}
	if _, ok := filterNames[o.Filter]; !ok {
		return configError("unknown resample filter: %v", o.Filter)
	}

	switch o.Encoding.Format {
	case tile.FormatPNG:
	case tile.FormatJPEG:
		if q := o.Encoding.Quality; q < 1 || q > 100 {
			return configError("jpeg quality must be between 1 and 100, got %d", q)
		}
		if o.Background.A == 0 {
			return configError("jpeg tiles cannot carry a transparent background; set an opaque background colour")
		}
	case tile.FormatPNG8:
		if c := o.Encoding.Colors; c < 2 || c > 256 {
			return configError("palette size must be between 2 and 256, got %d", c)
		}
	default:
		return configError("unknown tile format: %v", o.Encoding.Format)
	}

	if o.Workers < 0 {
		return configError("workers must not be negative, got %d", o.Workers)
	}
	if o.ZoomWorkers < 0 {
		return configError("zoom workers must not be negative, got %d", o.ZoomWorkers)
	}
	return nil
}

func (o *Options) workers() int {
	if o.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return o.Workers
}

func (o *Options) zoomWorkers() int {
	if o.ZoomWorkers <= 0 {
		return 1
	}
	return o.ZoomWorkers
}
