package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	domain "github.com/bryanwahyu/research-camera/internal/domain/analysis"
	"github.com/bryanwahyu/research-camera/internal/logger"
	"github.com/bryanwahyu/research-camera/internal/middleware"
)

// multipart parts above this are spooled to disk by the parser
const maxFormMemory = 32 << 20

type Options struct {
	MaxUploadBytes int64
	AllowedOrigins []string
	Metrics        *middleware.Metrics
	Checkers       map[string]middleware.HealthChecker
	Log            *logger.Logger
}

type Router struct {
	analyzer  domain.Client
	maxUpload int64
	log       *logger.Logger
}

func NewRouter(analyzer domain.Client, opt Options) http.Handler {
	if opt.Log == nil {
		opt.Log = logger.Nop()
	}
	if opt.Metrics == nil {
		opt.Metrics = middleware.NewMetrics()
	}
	if opt.MaxUploadBytes <= 0 {
		opt.MaxUploadBytes = 10 << 20
	}
	if len(opt.AllowedOrigins) == 0 {
		opt.AllowedOrigins = []string{"*"}
	}

	r := &Router{analyzer: analyzer, maxUpload: opt.MaxUploadBytes, log: opt.Log}
	mux := chi.NewRouter()

	mux.Use(chimw.RequestID)
	mux.Use(chimw.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: opt.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))
	mux.Use(middleware.Logging(opt.Log))
	mux.Use(opt.Metrics.Middleware)

	mux.Get("/health", middleware.LivenessHandler)
	mux.Get("/ready", middleware.ReadinessHandler(opt.Checkers))
	mux.Get("/metrics", opt.Metrics.Handler)

	mux.Post("/analyze", r.wrap(r.handleAnalyze))

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// badRequest marks errors caused by a malformed request body.
type badRequest struct{ err error }

func (b badRequest) Error() string { return b.err.Error() }
func (b badRequest) Unwrap() error { return b.err }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		var br badRequest
		var fe *domain.FailedError
		switch {
		case domain.IsValidation(err), middleware.IsUploadError(err), errors.As(err, &br):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, domain.ErrQuotaExceeded):
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": domain.QuotaMarker})
		case errors.As(err, &fe):
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Analysis failed", "details": fe.Message})
		default:
			logger.FromRequest(req).Error().Err(err).Msg("unhandled error")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Analysis failed", "details": err.Error()})
		}
	}
}

// POST /analyze
// multipart/form-data: images (1..2 files), mode, audience
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	// batas total body: semua file + field kecil
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload*domain.MaxImages+1<<20)
	if err := req.ParseMultipartForm(maxFormMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return fmt.Errorf("%w: request body exceeds %d bytes", middleware.ErrFileTooLarge, mbe.Limit)
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return badRequest{err}
		}
		return badRequest{fmt.Errorf("parse form: %w", err)}
	}
	defer func() { _ = req.MultipartForm.RemoveAll() }()

	files := req.MultipartForm.File["images"]
	if len(files) == 0 {
		return domain.ErrNoImage
	}
	if len(files) > domain.MaxImages {
		return domain.ErrTooManyImages
	}

	mode, err := domain.ParseMode(req.FormValue("mode"))
	if err != nil {
		return err
	}
	audience, err := domain.ParseAudience(req.FormValue("audience"))
	if err != nil {
		return err
	}

	images := make([]domain.Image, 0, len(files))
	for _, fh := range files {
		img, err := r.readImage(fh)
		if err != nil {
			return err
		}
		images = append(images, img)
	}

	res, err := r.analyzer.Analyze(req.Context(), domain.Request{Images: images, Mode: mode, Audience: audience})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

func (r *Router) readImage(fh *multipart.FileHeader) (domain.Image, error) {
	name := middleware.SanitizeString(fh.Filename)
	if fh.Size > r.maxUpload {
		return domain.Image{}, fmt.Errorf("%w: %s exceeds %d MB", middleware.ErrFileTooLarge, name, r.maxUpload>>20)
	}
	f, err := fh.Open()
	if err != nil {
		return domain.Image{}, badRequest{err}
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, r.maxUpload+1))
	if err != nil {
		return domain.Image{}, badRequest{err}
	}
	mime, err := middleware.ValidateImage(name, data, r.maxUpload)
	if err != nil {
		return domain.Image{}, err
	}
	return domain.Image{Name: name, MimeType: mime, Data: data}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
