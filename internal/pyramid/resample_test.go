package pyramid

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		in   string
		want Filter
	}{
		{"", FilterLanczos},
		{"lanczos", FilterLanczos},
		{"Lanczos", FilterLanczos},
		{"mitchell", FilterMitchell},
		{"catmullrom", FilterCatmullRom},
	}
	for _, tt := range tests {
		got, err := ParseFilter(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"nearest", "box", "bilinear"} {
		_, err := ParseFilter(bad)
		assert.ErrorIs(t, err, ErrInvalidConfig, bad)
	}
}

func TestResample_Sizes(t *testing.T) {
	canvas := createPatternImage(64, 64)

	for _, f := range []Filter{FilterLanczos, FilterMitchell, FilterCatmullRom} {
		t.Run(f.String(), func(t *testing.T) {
			for _, side := range []int{32, 16, 8, 1} {
				out := Resample(canvas, side, f)
				assert.Equal(t, side, out.Bounds().Dx())
				assert.Equal(t, side, out.Bounds().Dy())
			}
		})
	}
}

func TestResample_SameSizeIsIdentity(t *testing.T) {
	canvas := createPatternImage(64, 64)
	assert.Same(t, canvas, Resample(canvas, 64, FilterLanczos))
}

func TestResample_SmallerCanvasNotUpscaled(t *testing.T) {
	canvas := createPatternImage(32, 32)
	out := Resample(canvas, 64, FilterLanczos)
	assert.Same(t, canvas, out)
}

func TestResample_SolidColourPreserved(t *testing.T) {
	c := color.NRGBA{R: 200, G: 100, B: 50, A: 255}
	canvas := createSolidImage(128, 128, c)

	for _, f := range []Filter{FilterLanczos, FilterMitchell, FilterCatmullRom} {
		out := Resample(canvas, 32, f)
		got := out.NRGBAAt(16, 16)
		assert.InDelta(t, c.R, got.R, 1, f.String())
		assert.InDelta(t, c.G, got.G, 1, f.String())
		assert.InDelta(t, c.B, got.B, 1, f.String())
		assert.InDelta(t, c.A, got.A, 1, f.String())
	}
}
