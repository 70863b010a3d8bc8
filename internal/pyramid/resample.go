package pyramid

import (
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
)

// Filter is a resampling kernel used to build lower zoom levels
type Filter int

const (
	FilterLanczos Filter = iota
	FilterMitchell
	FilterCatmullRom
)

var filterNames = map[Filter]string{
	FilterLanczos:    "lanczos",
	FilterMitchell:   "mitchell",
	FilterCatmullRom: "catmullrom",
}

func (f Filter) String() string {
	if name, ok := filterNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Filter(%d)", int(f))
}

// ParseFilter maps a filter name to a Filter. Nearest-neighbour and box
// filters alias at low zoom levels and are refused.
func ParseFilter(s string) (Filter, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return FilterLanczos, nil
	}
	for f, n := range filterNames {
		if n == name {
			return f, nil
		}
	}
	switch name {
	case "nearest", "nearestneighbor", "box":
		return 0, configError("resample filter %q aliases at low zoom levels; use lanczos, mitchell or catmullrom", s)
	}
	return 0, configError("unknown resample filter: %s", s)
}

// Resample returns canvas scaled to side×side. A canvas that is already that
// size, or smaller, is returned as is; the slicer fills any overrun.
func Resample(canvas *image.NRGBA, side int, f Filter) *image.NRGBA {
	if canvas.Bounds().Dx() <= side {
		return canvas
	}

	switch f {
	case FilterMitchell:
		return imaging.Resize(canvas, side, side, imaging.MitchellNetravali)
	case FilterCatmullRom:
		dst := image.NewNRGBA(image.Rect(0, 0, side, side))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), canvas, canvas.Bounds(), xdraw.Src, nil)
		return dst
	default:
		return imaging.Resize(canvas, side, side, imaging.Lanczos)
	}
}
