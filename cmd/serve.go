package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/pyramid/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve <pyramid-directory>",
	Short: "Serve a generated pyramid over HTTP",
	Long: `Start an HTTP server that serves the tiles and metadata of a generated pyramid.

Endpoints:
  GET /tiles/{z}/{x}/{y}.{ext}   tile image
  GET /api/v1/metadata           metadata.json
  GET /api/v1/health             health check

Examples:
  # Start server on default port 8080
  pyramid serve public/tiles

  # Start server with custom bind address
  pyramid serve public/tiles --bind 0.0.0.0 --port 3000`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server configuration
	serveCmd.Flags().StringP("bind", "b", "localhost", "bind address")
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().Duration("timeout", 30*time.Second, "request timeout")

	// Bind flags to viper
	viper.BindPFlag("server.bind", serveCmd.Flags().Lookup("bind"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.timeout", serveCmd.Flags().Lookup("timeout"))
}

func runServe(cmd *cobra.Command, args []string) error {
	bind := viper.GetString("server.bind")
	port := viper.GetInt("server.port")
	timeout := viper.GetDuration("server.timeout")

	addr := fmt.Sprintf("%s:%d", bind, port)
	logger := newLogger(cmd)

	tileServer, err := server.NewServer(args[0], Version, logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.NewRouter(tileServer, timeout),
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}

	// Graceful shutdown
	go func() {
		<-cmd.Context().Done()

		logger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error("server shutdown", "error", err)
		}
	}()

	meta := tileServer.Metadata()
	logger.Info("starting pyramid server", "addr", addr, "dir", args[0],
		"max_zoom", meta.MaxZoom, "tile_size", meta.TileSize)
	fmt.Fprintf(cmd.ErrOrStderr(), "Tiles: http://%s/tiles/{z}/{x}/{y}\n", addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "Metadata: http://%s/api/v1/metadata\n", addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "Health check: http://%s/api/v1/health\n", addr)

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
