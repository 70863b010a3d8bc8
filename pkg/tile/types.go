package tile

import (
	"fmt"
	"strings"
)

// Format selects how individual tiles are encoded
type Format int

// Output format constants
const (
	FormatPNG Format = iota
	FormatJPEG
	FormatPNG8
)

// Encoder defaults
const (
	DefaultTileSize    = 256
	DefaultJPEGQuality = 85
	DefaultColors      = 256
)

// String returns the name used on the command line
func (f Format) String() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatJPEG:
		return "jpeg"
	case FormatPNG8:
		return "png8"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Ext returns the file extension written for the format, without the dot
func (f Format) Ext() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return "png"
}

// Lossless reports whether the format keeps the alpha channel
func (f Format) Lossless() bool {
	return f != FormatJPEG
}

// ContentType returns the MIME type of encoded tiles
func (f Format) ContentType() string {
	if f == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// ParseFormat maps a format name to a Format
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "png", "":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "png8":
		return FormatPNG8, nil
	default:
		return 0, fmt.Errorf("unknown tile format: %s", s)
	}
}

// FormatForExt maps a file extension (with or without the dot) back to a
// Format. "png" always resolves to FormatPNG.
func FormatForExt(ext string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	default:
		return 0, fmt.Errorf("unsupported tile extension: %s", ext)
	}
}

// Coord identifies a tile inside the pyramid
type Coord struct {
	Zoom, X, Y int
}

func (c Coord) String() string {
	return fmt.Sprintf("%d/%d/%d", c.Zoom, c.X, c.Y)
}

// Valid reports whether the coordinate lies inside a pyramid of maxZoom levels
func (c Coord) Valid(maxZoom int) bool {
	if c.Zoom < 0 || c.Zoom > maxZoom {
		return false
	}
	n := GridSize(c.Zoom)
	return c.X >= 0 && c.X < n && c.Y >= 0 && c.Y < n
}

// GridSize returns the number of tiles per side at a zoom level
func GridSize(zoom int) int {
	return 1 << uint(zoom)
}

// EncodeOptions controls tile encoding
type EncodeOptions struct {
	Format  Format
	Quality int // JPEG quality, 1-100
	Colors  int // palette size for FormatPNG8, 2-256
}

// Metadata is the record written next to the tiles as metadata.json
type Metadata struct {
	OriginalWidth  int `json:"original_width"`
	OriginalHeight int `json:"original_height"`
	PaddedSize     int `json:"padded_size"`
	MaxZoom        int `json:"max_zoom"`
	TileSize       int `json:"tile_size"`
	TotalTiles     int `json:"total_tiles"`
}
