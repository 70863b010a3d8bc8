package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/kiesman99/pyramid/internal/pyramid"
	"github.com/kiesman99/pyramid/pkg/tile"
)

// HealthResponse is the body of the health endpoint
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    *int      `json:"uptime,omitempty"`
	Version   *string   `json:"version,omitempty"`
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error     string                  `json:"error"`
	Message   string                  `json:"message"`
	RequestId *string                 `json:"request_id,omitempty"`
	Details   *map[string]interface{} `json:"details,omitempty"`
}

// Server serves the tiles and metadata of one generated pyramid
type Server struct {
	startTime time.Time
	version   string
	root      string
	meta      tile.Metadata
	format    tile.Format
	log       *slog.Logger
}

// NewServer creates a server for the pyramid stored in root
func NewServer(root, version string, logger *slog.Logger) (*Server, error) {
	meta, err := pyramid.ReadMetadata(root)
	if err != nil {
		return nil, err
	}

	format, err := detectFormat(root)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		startTime: time.Now(),
		version:   version,
		root:      root,
		meta:      meta,
		format:    format,
		log:       logger,
	}, nil
}

// detectFormat looks at the single zoom 0 tile to learn the extension
func detectFormat(root string) (tile.Format, error) {
	for _, ext := range []string{"png", "jpg"} {
		if _, err := os.Stat(tile.Path(root, tile.Coord{}, ext)); err == nil {
			return tile.FormatForExt(ext)
		}
	}
	return 0, &pyramid.Error{Kind: pyramid.InputNotFound, Op: "detect tile format", Path: root,
		Err: errors.New("no zoom 0 tile found")}
}

// Metadata returns the metadata of the served pyramid
func (s *Server) Metadata() tile.Metadata {
	return s.meta
}

// Routes registers the API and tile routes on r
func (s *Server) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.GetHealth)
		r.Get("/metadata", s.GetMetadata)
	})

	r.Get("/tiles/{z}/{x}/{file}", s.GetTile)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/v1/health", http.StatusMovedPermanently)
	})
}

// NewRouter builds the chi router with the middleware stack used by serve
func NewRouter(s *Server, timeout time.Duration) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(timeout))

	// CORS so a viewer on another origin can fetch tiles
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	s.Routes(r)
	return r
}

// GetHealth implements the health check endpoint
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	uptime := int(time.Since(s.startTime).Seconds())

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Uptime:    &uptime,
		Version:   &s.version,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.log.Error("encoding health response", "error", err)
	}
}

// GetMetadata returns the pyramid's metadata record
func (s *Server) GetMetadata(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(s.meta); err != nil {
		s.log.Error("encoding metadata response", "error", err)
	}
}

// GetTile serves /tiles/{z}/{x}/{y}.{ext}
func (s *Server) GetTile(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	var c tile.Coord
	if err := bindPathInt("z", chi.URLParam(r, "z"), &c.Zoom); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_PARAMETER", err.Error(), &requestID, nil)
		return
	}
	if err := bindPathInt("x", chi.URLParam(r, "x"), &c.X); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_PARAMETER", err.Error(), &requestID, nil)
		return
	}

	yStr, ext, err := tile.SplitName(chi.URLParam(r, "file"))
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_PARAMETER", err.Error(), &requestID, nil)
		return
	}
	if err := bindPathInt("y", yStr, &c.Y); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_PARAMETER", err.Error(), &requestID, nil)
		return
	}

	format, err := tile.FormatForExt(ext)
	if err != nil || format.Ext() != s.format.Ext() {
		s.writeErrorResponse(w, http.StatusNotFound, "TILE_NOT_FOUND",
			fmt.Sprintf("tiles are served as .%s", s.format.Ext()), &requestID, nil)
		return
	}

	if !c.Valid(s.meta.MaxZoom) {
		s.writeErrorResponse(w, http.StatusNotFound, "TILE_NOT_FOUND",
			fmt.Sprintf("tile %s outside pyramid", c), &requestID, map[string]interface{}{
				"max_zoom": s.meta.MaxZoom,
			})
		return
	}

	data, err := os.ReadFile(tile.Path(s.root, c, s.format.Ext()))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.writeErrorResponse(w, http.StatusNotFound, "TILE_NOT_FOUND",
				fmt.Sprintf("tile %s missing on disk", c), &requestID, nil)
			return
		}
		s.log.Error("reading tile", "tile", c.String(), "error", err)
		s.writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"Internal server error", &requestID, nil)
		return
	}

	w.Header().Set("Content-Type", s.format.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.log.Error("writing tile response", "tile", c.String(), "error", err)
	}
}

func bindPathInt(name, value string, dest *int) error {
	return runtime.BindStyledParameterWithOptions("simple", name, value, dest, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
}

// writeErrorResponse writes a standard error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string, requestID *string, details map[string]interface{}) {
	response := ErrorResponse{
		Error:     errorCode,
		Message:   message,
		RequestId: requestID,
	}

	if details != nil {
		response.Details = &details
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

func requestIDFrom(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return generateRequestID()
}

// generateRequestID generates a unique request ID
func generateRequestID() string {
	return "req_" + uuid.NewString()
}
