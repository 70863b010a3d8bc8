package cmd

import (
	"bytes"
	"image/color"
	"io"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiesman99/pyramid/internal/pyramid"
	"github.com/kiesman99/pyramid/pkg/tile"
)

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestRootCommand_Generate(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "map.png")
	require.NoError(t, imaging.Save(imaging.New(100, 60, color.NRGBA{R: 200, A: 255}), input))
	output := filepath.Join(dir, "tiles")

	out, err := runRoot(t, input, output, "--tile-size", "32")
	require.NoError(t, err)

	assert.Equal(t, "=== Configuration for calibration ===\n"+
		"width: 100\n"+
		"height: 60\n"+
		"paddedSize: 128\n"+
		"maxZoom: 2\n"+
		"tileSize: 32\n", out)

	meta, err := pyramid.ReadMetadata(output)
	require.NoError(t, err)
	assert.Equal(t, 21, meta.TotalTiles)
	assert.FileExists(t, tile.Path(output, tile.Coord{Zoom: 2, X: 3, Y: 3}, "png"))
}

func TestRootCommand_MissingInput(t *testing.T) {
	dir := t.TempDir()
	_, err := runRoot(t, filepath.Join(dir, "nope.png"), filepath.Join(dir, "tiles"))
	assert.ErrorIs(t, err, pyramid.ErrInputNotFound)
	assert.NoDirExists(t, filepath.Join(dir, "tiles"))
}

func TestRootCommand_WrongArgCount(t *testing.T) {
	_, err := runRoot(t, "only-one.png")
	assert.Error(t, err)
}

func setConfig(t *testing.T, key string, value any) {
	t.Helper()
	prev := viper.Get(key)
	viper.Set(key, value)
	t.Cleanup(func() { viper.Set(key, prev) })
}

func TestOptionsFromConfig_JPEGDefaultBackground(t *testing.T) {
	setConfig(t, "format", "jpeg")
	setConfig(t, "background", "")

	opts, err := optionsFromConfig()
	require.NoError(t, err)
	assert.Equal(t, tile.FormatJPEG, opts.Encoding.Format)
	assert.Equal(t, color.NRGBA{R: 0x14, G: 0x14, B: 0x1e, A: 255}, opts.Background)
	assert.NoError(t, opts.Validate())
}

func TestOptionsFromConfig_Invalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"format", "gif"},
		{"policy", "square"},
		{"filter", "nearest"},
		{"background", "#12"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			setConfig(t, tt.key, tt.value)
			_, err := optionsFromConfig()
			assert.ErrorIs(t, err, pyramid.ErrInvalidConfig)
		})
	}
}

func TestLogProgress(t *testing.T) {
	layout, err := pyramid.Calculate(100, 60, 32, pyramid.PolicyTile)
	require.NoError(t, err)

	var buf bytes.Buffer
	progress := logProgress(newTextLogger(&buf, false))
	progress(pyramid.Event{Kind: pyramid.EventStart, Layout: layout})
	progress(pyramid.Event{Kind: pyramid.EventZoomStart, Zoom: 1, Side: 64})
	progress(pyramid.Event{Kind: pyramid.EventDone, Written: 21})

	assert.Contains(t, buf.String(), "padded_size=128")
	assert.Contains(t, buf.String(), "grid=2x2")
	assert.Contains(t, buf.String(), "tiles=21")
}
