package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/pyramid/internal/pyramid"
	"github.com/kiesman99/pyramid/pkg/tile"
)

// Version is set by ldflags during build
var Version = "dev"

// Dark fill of opaque basemaps when no background is configured
const defaultOpaqueBackground = "#14141e"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pyramid <input-image> <output-directory>",
	Short: "Cut a large image into a zoomable tile pyramid",
	Long: `pyramid turns one large raster image into a tile pyramid for a web
pan/zoom viewer such as Leaflet.

The image is placed at the top-left of a square canvas padded to a power-of-two
multiple of the tile size, then every zoom level from a single tile up to native
resolution is written as <output>/{z}/{x}/{y}.<ext> together with
<output>/metadata.json. The calibration values a viewer needs are printed on
success.

Examples:
  # Transparent PNG tiles for an overlay map
  pyramid map.png public/tiles

  # JPEG basemap tiles on a dark background
  pyramid map.png public/tiles --format jpeg --quality 85 --background "#14141e"

  # 512 pixel paletted tiles
  pyramid map.tif public/tiles --tile-size 512 --format png8 --colors 128

  # Serve the result locally
  pyramid serve public/tiles --port 8080`,
	Args:          cobra.MaximumNArgs(2),
	SilenceUsage:  true,
	Version:       Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		// If no args, show help
		if len(args) == 0 {
			return cmd.Help()
		}
		if len(args) != 2 {
			return fmt.Errorf("expected <input-image> and <output-directory>, got %d argument(s)", len(args))
		}
		return runGenerate(cmd, args[0], args[1])
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.pyramid.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log debug output")

	// Tiling options
	rootCmd.Flags().IntP("tile-size", "t", tile.DefaultTileSize, "tile size in pixels")
	rootCmd.Flags().String("policy", "tile", "padding policy (tile|canvas)")
	rootCmd.Flags().String("background", "", "background fill: transparent or #RRGGBB (default transparent, #14141e for jpeg)")
	rootCmd.Flags().String("filter", "lanczos", "resample filter (lanczos|mitchell|catmullrom)")

	// Encoding options
	rootCmd.Flags().StringP("format", "f", "png", "tile format (png|jpeg|png8)")
	rootCmd.Flags().IntP("quality", "q", tile.DefaultJPEGQuality, "jpeg quality (1-100)")
	rootCmd.Flags().Int("colors", tile.DefaultColors, "palette size for png8 (2-256)")

	// Concurrency options
	rootCmd.Flags().Int("workers", 0, "concurrent tile encoders per zoom level (default: GOMAXPROCS)")
	rootCmd.Flags().Int("zoom-workers", 1, "zoom levels resampled at once")

	// Bind flags to viper for root command
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("tile-size", rootCmd.Flags().Lookup("tile-size"))
	viper.BindPFlag("policy", rootCmd.Flags().Lookup("policy"))
	viper.BindPFlag("background", rootCmd.Flags().Lookup("background"))
	viper.BindPFlag("filter", rootCmd.Flags().Lookup("filter"))
	viper.BindPFlag("format", rootCmd.Flags().Lookup("format"))
	viper.BindPFlag("quality", rootCmd.Flags().Lookup("quality"))
	viper.BindPFlag("colors", rootCmd.Flags().Lookup("colors"))
	viper.BindPFlag("workers", rootCmd.Flags().Lookup("workers"))
	viper.BindPFlag("zoom-workers", rootCmd.Flags().Lookup("zoom-workers"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".pyramid" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".pyramid")
	}

	// PYRAMID_TILE_SIZE, PYRAMID_SERVER_PORT, ...
	viper.SetEnvPrefix("pyramid")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	return newTextLogger(cmd.ErrOrStderr(), viper.GetBool("verbose"))
}

func newTextLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// optionsFromConfig builds generator options from flags, env and config file
func optionsFromConfig() (pyramid.Options, error) {
	opts := pyramid.DefaultOptions()
	opts.TileSize = viper.GetInt("tile-size")
	opts.Workers = viper.GetInt("workers")
	opts.ZoomWorkers = viper.GetInt("zoom-workers")

	policy, err := pyramid.ParsePolicy(viper.GetString("policy"))
	if err != nil {
		return opts, err
	}
	opts.Policy = policy

	filter, err := pyramid.ParseFilter(viper.GetString("filter"))
	if err != nil {
		return opts, err
	}
	opts.Filter = filter

	format, err := tile.ParseFormat(viper.GetString("format"))
	if err != nil {
		return opts, &pyramid.Error{Kind: pyramid.InvalidConfig, Op: "parse format", Err: err}
	}
	opts.Encoding = tile.EncodeOptions{
		Format:  format,
		Quality: viper.GetInt("quality"),
		Colors:  viper.GetInt("colors"),
	}

	background := viper.GetString("background")
	if background == "" && format == tile.FormatJPEG {
		background = defaultOpaqueBackground
	}
	bg, err := tile.ParseBackground(background)
	if err != nil {
		return opts, &pyramid.Error{Kind: pyramid.InvalidConfig, Op: "parse background", Err: err}
	}
	opts.Background = bg

	return opts, nil
}

func runGenerate(cmd *cobra.Command, input, output string) error {
	opts, err := optionsFromConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cmd)
	opts.Logger = logger
	opts.Progress = logProgress(logger)

	g, err := pyramid.New(opts)
	if err != nil {
		return err
	}

	meta, err := g.Run(cmd.Context(), input, output)
	if err != nil {
		return err
	}

	return pyramid.WriteCalibration(cmd.OutOrStdout(), meta)
}

// logProgress turns generator events into log lines
func logProgress(logger *slog.Logger) func(pyramid.Event) {
	return func(e pyramid.Event) {
		switch e.Kind {
		case pyramid.EventStart:
			logger.Info("generating pyramid",
				"width", e.Layout.Width, "height", e.Layout.Height,
				"padded_size", e.Layout.PaddedSize, "max_zoom", e.Layout.MaxZoom,
				"tile_size", e.Layout.TileSize, "tiles", e.Layout.TotalTiles())
		case pyramid.EventZoomStart:
			n := tile.GridSize(e.Zoom)
			logger.Info("zoom level", "zoom", e.Zoom, "grid", fmt.Sprintf("%dx%d", n, n), "side", e.Side)
		case pyramid.EventZoomDone:
			logger.Debug("zoom level done", "zoom", e.Zoom, "tiles", e.Tiles, "written", e.Written)
		case pyramid.EventMetadata:
			logger.Info("metadata saved", "path", e.Path)
		case pyramid.EventDone:
			logger.Info("pyramid complete", "tiles", e.Written)
		}
	}
}
