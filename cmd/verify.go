package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kiesman99/pyramid/internal/stitch"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <pyramid-directory>",
	Short: "Check that a pyramid is complete",
	Long: `Check that every tile metadata.json promises exists, decodes and has the
configured tile size. Exits non-zero if anything is missing or broken.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	s, err := stitch.NewStitcher(args[0])
	if err != nil {
		return err
	}

	err = s.Verify(cmd.Context())
	var tileErr *stitch.TileError
	if errors.As(err, &tileErr) {
		for _, ft := range tileErr.FailedTiles {
			logger.Error("bad tile", "tile", ft.Coord.String(), "path", ft.Path, "error", ft.Error)
		}
	}
	if err != nil {
		return err
	}

	meta := s.Metadata()
	fmt.Fprintf(cmd.OutOrStdout(), "ok: %d tiles, max zoom %d, tile size %d\n", meta.TotalTiles, meta.MaxZoom, meta.TileSize)
	return nil
}
