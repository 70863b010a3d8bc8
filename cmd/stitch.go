package cmd

import (
	"fmt"
	"image"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/pyramid/internal/stitch"
	"github.com/kiesman99/pyramid/pkg/tile"
)

var stitchCmd = &cobra.Command{
	Use:   "stitch <pyramid-directory>",
	Short: "Reassemble one zoom level of a pyramid into a single PNG",
	Long: `Read every tile of one zoom level back and paste them into a single PNG image.

With --crop the result is trimmed to the area the source image covers at that
level, dropping the padding.

Examples:
  # Reassemble the native resolution level
  pyramid stitch public/tiles -o full.png

  # Preview zoom 2 without padding
  pyramid stitch public/tiles --zoom 2 --crop > preview.png`,
	Args: cobra.ExactArgs(1),
	RunE: runStitch,
}

func init() {
	rootCmd.AddCommand(stitchCmd)

	stitchCmd.Flags().IntP("zoom", "z", -1, "zoom level to reassemble (default: max zoom)")
	stitchCmd.Flags().StringP("output", "o", "", "output PNG file (default: stdout)")
	stitchCmd.Flags().Bool("crop", false, "trim padding to the source image's extent")

	viper.BindPFlag("stitch.zoom", stitchCmd.Flags().Lookup("zoom"))
	viper.BindPFlag("stitch.output", stitchCmd.Flags().Lookup("output"))
	viper.BindPFlag("stitch.crop", stitchCmd.Flags().Lookup("crop"))
}

func runStitch(cmd *cobra.Command, args []string) error {
	output := viper.GetString("stitch.output")

	// Check if output is to terminal
	if output == "" {
		if stat, _ := os.Stdout.Stat(); stat != nil && (stat.Mode()&os.ModeCharDevice) != 0 {
			return fmt.Errorf("didn't specify output file and standard output is a terminal")
		}
	}

	s, err := stitch.NewStitcher(args[0])
	if err != nil {
		return err
	}

	zoom := viper.GetInt("stitch.zoom")
	if zoom < 0 {
		zoom = s.Metadata().MaxZoom
	}

	logger := newLogger(cmd)
	logger.Info("stitching zoom level", "zoom", zoom, "grid", tile.GridSize(zoom))

	img, err := s.Stitch(cmd.Context(), zoom, viper.GetBool("stitch.crop"))
	if err != nil {
		return err
	}

	if output == "" {
		if err := tile.Encode(cmd.OutOrStdout(), img, tile.EncodeOptions{Format: tile.FormatPNG}); err != nil {
			return fmt.Errorf("failed to write PNG: %w", err)
		}
	} else if err := writePNG(output, img); err != nil {
		return err
	}

	b := img.Bounds()
	logger.Info("stitched image written", "width", b.Dx(), "height", b.Dy(), "output", output)
	return nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := tile.Encode(f, img, tile.EncodeOptions{Format: tile.FormatPNG}); err != nil {
		f.Close()
		return fmt.Errorf("failed to write PNG: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	return nil
}
