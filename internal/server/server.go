// Package server serves stimuli over HTTP.
//
// Routes:
//
//	GET /healthz          liveness probe
//	GET /stimulus.png     rendered stimulus
//	GET /stimulus.json    layout export
//
// Both stimulus routes take the generation and render parameters as query
// values (see [ParseQuery]). Responses carry the seed and layout hash in
// headers so a stimulus can be reproduced offline.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/dotstim/pkg/buildinfo"
	"github.com/matzehuels/dotstim/pkg/errors"
	"github.com/matzehuels/dotstim/pkg/pipeline"
)

// Limits applied to query parameters.
const (
	DefaultMaxDots        = 1000
	DefaultMaxCanvas      = 4096
	DefaultMaxSupersample = 8
	DefaultTimeout        = 30 * time.Second
	headerSeed        = "X-Dotstim-Seed"
	headerLayoutHash  = "X-Dotstim-Layout-Hash"
	headerCache       = "X-Dotstim-Cache"
	headerAttempts    = "X-Dotstim-Attempts"
	contentTypeJSON   = "application/json"
	contentTypePNG    = "image/png"
	cacheControlValue = "public, max-age=86400, immutable"
)

// Server handles stimulus requests with a shared pipeline runner.
type Server struct {
	runner  *pipeline.Runner
	logger  *log.Logger
	maxDots int
	maxSize int
	timeout time.Duration
	seed    func() uint64
}

// Option configures a Server.
type Option func(*Server)

// WithMaxDots caps number_of_dots.
func WithMaxDots(n int) Option { return func(s *Server) { s.maxDots = n } }

// WithMaxCanvas caps width and height.
func WithMaxCanvas(n int) Option { return func(s *Server) { s.maxSize = n } }

// WithTimeout bounds the time spent on one request.
func WithTimeout(d time.Duration) Option { return func(s *Server) { s.timeout = d } }

// WithSeedSource sets the seed used for requests that do not pass one.
func WithSeedSource(fn func() uint64) Option { return func(s *Server) { s.seed = fn } }

// New creates a server. A nil logger uses log.Default().
func New(runner *pipeline.Runner, logger *log.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		runner:  runner,
		logger:  logger,
		maxDots: DefaultMaxDots,
		maxSize: DefaultMaxCanvas,
		timeout: DefaultTimeout,
		seed:    rand.Uint64,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))
	r.Use(middleware.SetHeader("Server", buildinfo.UserAgent()))

	r.Get("/healthz", s.handleHealth)
	r.Get("/stimulus.png", s.handleStimulus(pipeline.FormatPNG))
	r.Get("/stimulus.json", s.handleStimulus(pipeline.FormatJSON))
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStimulus(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.serveStimulus(w, r, format)
	}
}

func (s *Server) serveStimulus(w http.ResponseWriter, r *http.Request, format string) {
	opts, err := ParseQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.checkLimits(opts); err != nil {
		s.writeError(w, r, err)
		return
	}
	if opts.Seed == 0 {
		opts.Seed = s.seed()
	}
	opts.Formats = []string{format}

	result, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	h := w.Header()
	h.Set(headerSeed, strconv.FormatUint(result.Layout.Seed, 10))
	h.Set(headerLayoutHash, result.LayoutHash)
	h.Set(headerAttempts, strconv.Itoa(result.Layout.Attempts))
	if result.CacheInfo.LayoutHit && result.CacheInfo.RenderHit {
		h.Set(headerCache, "hit")
	} else {
		h.Set(headerCache, "miss")
	}
	h.Set("Cache-Control", cacheControlValue)
	if format == pipeline.FormatPNG {
		h.Set("Content-Type", contentTypePNG)
	} else {
		h.Set("Content-Type", contentTypeJSON)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Artifacts[format])
}

func (s *Server) checkLimits(opts pipeline.Options) error {
	if opts.Dots > s.maxDots {
		return errors.New(errors.ErrCodeInvalidInput, "number_of_dots %d exceeds the server limit %d", opts.Dots, s.maxDots)
	}
	if opts.Width > s.maxSize || opts.Height > s.maxSize {
		return errors.New(errors.ErrCodeInvalidInput, "canvas %dx%d exceeds the server limit %d", opts.Width, opts.Height, s.maxSize)
	}
	if opts.Render.Supersample > DefaultMaxSupersample {
		return errors.New(errors.ErrCodeInvalidInput, "supersample %d exceeds the server limit %d", opts.Render.Supersample, DefaultMaxSupersample)
	}
	return nil
}

// =============================================================================
// Errors
// =============================================================================

type errorBody struct {
	Error string      `json:"error"`
	Code  errors.Code `json:"code,omitempty"`
}

// StatusCode maps an error to an HTTP status.
func StatusCode(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidConfiguration,
		errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidShape, errors.ErrCodeInvalidPath:
		return http.StatusBadRequest
	case errors.ErrCodePlacementFailed, errors.ErrCodeGenerationFailed:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusCode(err)
	if stderrors.Is(err, context.Canceled) && r.Context().Err() != nil {
		// Client went away.
		return
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Code: errors.GetCode(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// =============================================================================
// Middleware
// =============================================================================

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
