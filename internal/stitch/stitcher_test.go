package stitch

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiesman99/pyramid/internal/pyramid"
	"github.com/kiesman99/pyramid/pkg/tile"
)

func createPatternImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 3), G: uint8(y * 5), B: 77, A: 255})
		}
	}
	return img
}

func generate(t *testing.T, src image.Image, tileSize int) string {
	t.Helper()
	opts := pyramid.DefaultOptions()
	opts.TileSize = tileSize
	g, err := pyramid.New(opts)
	require.NoError(t, err)

	root := t.TempDir()
	_, err = g.Generate(context.Background(), src, root)
	require.NoError(t, err)
	return root
}

func TestStitch_TopLevelMatchesSource(t *testing.T) {
	src := createPatternImage(70, 50)
	root := generate(t, src, 32)

	s, err := NewStitcher(root)
	require.NoError(t, err)
	require.Equal(t, 2, s.Metadata().MaxZoom)

	out, err := s.Stitch(context.Background(), 2, false)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 128, 128), out.Bounds())

	for _, p := range []image.Point{{0, 0}, {31, 31}, {32, 0}, {69, 49}, {40, 20}} {
		assert.Equal(t, src.NRGBAAt(p.X, p.Y), out.NRGBAAt(p.X, p.Y), "pixel %v", p)
	}
	assert.Equal(t, uint8(0), out.NRGBAAt(100, 100).A, "padding stays transparent")
}

func TestStitch_Crop(t *testing.T) {
	src := createPatternImage(70, 50)
	root := generate(t, src, 32)

	s, err := NewStitcher(root)
	require.NoError(t, err)

	out, err := s.Stitch(context.Background(), 2, true)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 70, 50), out.Bounds())

	low, err := s.Stitch(context.Background(), 0, true)
	require.NoError(t, err)
	// 70*32/128 = 17.5, 50*32/128 = 12.5
	assert.Equal(t, image.Rect(0, 0, 18, 13), low.Bounds())
}

func TestStitch_CropCanvasSmallerThanTile(t *testing.T) {
	src := createPatternImage(100, 60)
	opts := pyramid.DefaultOptions()
	opts.Policy = pyramid.PolicyCanvas
	g, err := pyramid.New(opts)
	require.NoError(t, err)
	root := t.TempDir()
	_, err = g.Generate(context.Background(), src, root)
	require.NoError(t, err)

	s, err := NewStitcher(root)
	require.NoError(t, err)
	require.Equal(t, 128, s.Metadata().PaddedSize)
	require.Equal(t, 0, s.Metadata().MaxZoom)

	w, h := s.Extent(0)
	assert.Equal(t, 100, w)
	assert.Equal(t, 60, h)

	out, err := s.Stitch(context.Background(), 0, true)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 60), out.Bounds())
	assert.Equal(t, src.NRGBAAt(99, 59), out.NRGBAAt(99, 59))
}

func TestStitch_ZoomOutOfRange(t *testing.T) {
	s, err := NewStitcher(generate(t, createPatternImage(40, 40), 32))
	require.NoError(t, err)

	_, err = s.Stitch(context.Background(), 2, false)
	assert.Error(t, err)
	_, err = s.Stitch(context.Background(), -1, false)
	assert.Error(t, err)
}

func TestStitch_MissingTile(t *testing.T) {
	root := generate(t, createPatternImage(70, 50), 32)
	require.NoError(t, os.Remove(tile.Path(root, tile.Coord{Zoom: 1, X: 1, Y: 0}, "png")))

	s, err := NewStitcher(root)
	require.NoError(t, err)

	_, err = s.Stitch(context.Background(), 1, false)
	var tileErr *TileError
	require.True(t, errors.As(err, &tileErr))
	assert.Equal(t, 4, tileErr.TotalTiles)
	assert.Equal(t, 3, tileErr.SuccessfulTiles)
	require.Len(t, tileErr.FailedTiles, 1)
	assert.Equal(t, tile.Coord{Zoom: 1, X: 1, Y: 0}, tileErr.FailedTiles[0].Coord)
}

func TestVerify_Complete(t *testing.T) {
	s, err := NewStitcher(generate(t, createPatternImage(1000, 600), 256))
	require.NoError(t, err)
	assert.NoError(t, s.Verify(context.Background()))
}

func TestVerify_ReportsProblems(t *testing.T) {
	root := generate(t, createPatternImage(70, 50), 32)
	require.NoError(t, os.Remove(tile.Path(root, tile.Coord{Zoom: 2, X: 3, Y: 3}, "png")))
	require.NoError(t, os.WriteFile(tile.Path(root, tile.Coord{Zoom: 2, X: 0, Y: 0}, "png"), []byte("junk"), 0o644))

	s, err := NewStitcher(root)
	require.NoError(t, err)

	err = s.Verify(context.Background())
	var tileErr *TileError
	require.True(t, errors.As(err, &tileErr))
	assert.Equal(t, 21, tileErr.TotalTiles)
	assert.Equal(t, 19, tileErr.SuccessfulTiles)
	assert.Len(t, tileErr.FailedTiles, 2)
}

func TestVerify_WrongTileSize(t *testing.T) {
	root := generate(t, createPatternImage(40, 40), 32)
	f, err := os.Create(filepath.Join(root, "1", "0", "1.png"))
	require.NoError(t, err)
	require.NoError(t, tile.Encode(f, createPatternImage(16, 16), tile.EncodeOptions{Format: tile.FormatPNG}))
	require.NoError(t, f.Close())

	s, err := NewStitcher(root)
	require.NoError(t, err)

	err = s.Verify(context.Background())
	var tileErr *TileError
	require.True(t, errors.As(err, &tileErr))
	require.Len(t, tileErr.FailedTiles, 1)
	assert.Contains(t, tileErr.FailedTiles[0].Error, "wrong tile size")
}

func TestVerify_MetadataCountMismatch(t *testing.T) {
	root := generate(t, createPatternImage(40, 40), 32)
	s, err := NewStitcher(root)
	require.NoError(t, err)

	meta := s.Metadata()
	meta.TotalTiles = 4
	require.NoError(t, pyramid.WriteMetadata(root, meta))

	s, err = NewStitcher(root)
	require.NoError(t, err)
	err = s.Verify(context.Background())
	var tileErr *TileError
	require.True(t, errors.As(err, &tileErr))
	assert.Empty(t, tileErr.FailedTiles)
}

func TestNewStitcher_NoMetadata(t *testing.T) {
	_, err := NewStitcher(t.TempDir())
	assert.ErrorIs(t, err, pyramid.ErrInputNotFound)
}
