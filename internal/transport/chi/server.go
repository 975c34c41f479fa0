package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pictag/internal/domain"
	domimage "github.com/kailas-cloud/pictag/internal/domain/image"
	"github.com/kailas-cloud/pictag/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/pictag/internal/usecase/health"
	"github.com/kailas-cloud/pictag/internal/usecase/tagging"
)

const (
	defaultMaxUploadBytes = 32 << 20
	defaultMaxFiles       = 20
	multipartMemory       = 8 << 20
	uploadField           = "images"
	banner                = "pictag backend working!"
)

// ImageService manages stored image metadata.
type ImageService interface {
	Create(ctx context.Context, d domimage.Draft) (domimage.Record, error)
	Get(ctx context.Context, id int64) (domimage.Record, error)
	List(ctx context.Context) ([]domimage.Record, error)
	Delete(ctx context.Context, id int64) error
}

// SearchService ranks images against a free-text query.
type SearchService interface {
	Search(ctx context.Context, query string, limit int) ([]result.Result, error)
}

// TaggingService derives tags and captions from uploaded images.
type TaggingService interface {
	Tag(ctx context.Context, uploads []tagging.Upload) ([]tagging.Tagged, error)
}

// HealthService reports dependency health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// Limits bounds request sizes.
type Limits struct {
	MaxUploadBytes int64
	MaxFiles       int
	DefaultLimit   int // search results when limit is absent; 0 = unlimited
	MaxLimit       int // upper bound for an explicit limit; 0 = no bound
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the pictag HTTP API.
type Server struct {
	images        ImageService
	search        SearchService
	tagging       TaggingService
	health        HealthService
	limits        Limits
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	images ImageService,
	search SearchService,
	tagging TaggingService,
	health HealthService,
	limits Limits,
	logger *zap.Logger,
) *Server {
	if limits.MaxUploadBytes <= 0 {
		limits.MaxUploadBytes = defaultMaxUploadBytes
	}
	if limits.MaxFiles <= 0 {
		limits.MaxFiles = defaultMaxFiles
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		images:  images,
		search:  search,
		tagging: tagging,
		health:  health,
		limits:  limits,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		validationHandler,
		sentinelHandler(domain.ErrImageNotFound, http.StatusNotFound, ErrorResponseCodeImageNotFound),
		sentinelHandler(domain.ErrStorageUnavailable,
			http.StatusServiceUnavailable, ErrorResponseCodeStorageUnavailable),
		sentinelHandler(domain.ErrTaggingUnavailable, http.StatusBadGateway, ErrorResponseCodeTaggingUnavailable),
		sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, ErrorResponseCodeRequestCancelled),
		sentinelHandler(context.Canceled, statusClientClosedRequest, ErrorResponseCodeRequestCancelled),
	}
	return s
}

// statusClientClosedRequest is the de facto status for requests abandoned by the client.
const statusClientClosedRequest = 499

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/", s.Root)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Get("/search", s.Search)
	r.Route("/images", func(r chi.Router) {
		r.Post("/", s.CreateImage)
		r.Get("/", s.ListImages)
		r.Post("/tags", s.GenerateTags)
		r.Get("/{id}", s.GetImage)
		r.Delete("/{id}", s.DeleteImage)
	})
	// Legacy path still called by older frontends.
	r.Post("/generateTags", s.GenerateTags)
}

// Root handles GET /.
func (s *Server) Root(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, banner)
}

// GenerateTags handles POST /images/tags (multipart field "images").
func (s *Server) GenerateTags(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.limits.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrorResponseCodePayloadTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", s.limits.MaxUploadBytes))
			return
		}
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid multipart body: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File[uploadField]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "No images found in request")
		return
	}
	if len(files) > s.limits.MaxFiles {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed,
			fmt.Sprintf("at most %d images per request", s.limits.MaxFiles))
		return
	}

	uploads := make([]tagging.Upload, 0, len(files))
	for _, fh := range files {
		data, err := readPart(fh)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid image "+fh.Filename)
			return
		}
		uploads = append(uploads, tagging.Upload{Filename: fh.Filename, Data: data})
	}

	tagged, err := s.tagging.Tag(r.Context(), uploads)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]TagResultItem, len(tagged))
	for i, t := range tagged {
		items[i] = taggedToResponse(t)
	}
	writeJSON(w, http.StatusOK, TagResponse{Error: false, Data: items})
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open part: %w", err)
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read part: %w", err)
	}
	return data, nil
}

// CreateImage handles POST /images.
func (s *Server) CreateImage(w http.ResponseWriter, r *http.Request) {
	var req CreateImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	rec, err := s.images.Create(r.Context(), domimage.Draft{
		URL:      req.URL,
		Filename: req.Filename,
		Tags:     req.Tags,
		Captions: req.Captions,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Location", "/images/"+strconv.FormatInt(rec.ID(), 10))
	writeJSON(w, http.StatusCreated, imageToResponse(&rec))
}

// ListImages handles GET /images.
func (s *Server) ListImages(w http.ResponseWriter, r *http.Request) {
	recs, err := s.images.List(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]ImageResponse, len(recs))
	for i := range recs {
		items[i] = imageToResponse(&recs[i])
	}
	writeJSON(w, http.StatusOK, ImageListResponse{Items: items, Total: len(items)})
}

// GetImage handles GET /images/{id}.
func (s *Server) GetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := bindImageID(w, r)
	if !ok {
		return
	}

	rec, err := s.images.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, imageToResponse(&rec))
}

// DeleteImage handles DELETE /images/{id}.
func (s *Server) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id, ok := bindImageID(w, r)
	if !ok {
		return
	}

	if err := s.images.Delete(r.Context(), id); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func bindImageID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	var id int64
	err := runtime.BindStyledParameterWithLocation("simple", false, "id", runtime.ParamLocationPath,
		chi.URLParam(r, "id"), &id)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid format for parameter id")
		return 0, false
	}
	return id, true
}

// Search handles GET /search?q=<query>&limit=<n>.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var q string
	if err := runtime.BindQueryParameter("form", true, true, "q", r.URL.Query(), &q); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, "query parameter q is required")
		return
	}

	var limitParam *int
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limitParam); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid format for parameter limit")
		return
	}
	limit, err := s.searchLimit(limitParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, err := s.search.Search(ctx, q, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]SearchResultItem, len(results))
	for i := range results {
		items[i] = searchResultToResponse(&results[i])
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, SearchResponse{Query: q, Items: items, Total: len(items)})
}

func (s *Server) searchLimit(p *int) (int, error) {
	if p == nil {
		return s.limits.DefaultLimit, nil
	}
	if *p <= 0 || (s.limits.MaxLimit > 0 && *p > s.limits.MaxLimit) {
		if s.limits.MaxLimit > 0 {
			return 0, fmt.Errorf("limit must be between 1 and %d", s.limits.MaxLimit)
		}
		return 0, errors.New("limit must be positive")
	}
	return *p, nil
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	tokens, calls := usage.Snapshot()
	if calls > 0 {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(tokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidRequest,
		domain.ErrImageNotFound,
		domain.ErrStorageUnavailable,
		domain.ErrTaggingUnavailable,
		context.DeadlineExceeded,
		context.Canceled,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// validationHandler reports ErrInvalidRequest with the full message; validation errors
// are built from request data only.
func validationHandler(w http.ResponseWriter, err error, _ string) bool {
	if !errors.Is(err, domain.ErrInvalidRequest) {
		return false
	}
	writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, err.Error())
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}
