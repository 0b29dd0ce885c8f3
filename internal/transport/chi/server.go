package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/memento/internal/domain"
	dommem "github.com/kailas-cloud/memento/internal/domain/memory"
	"github.com/kailas-cloud/memento/internal/domain/upload"
	healthuc "github.com/kailas-cloud/memento/internal/usecase/health"
)

// base64 inflates 3 bytes to 4; the rest of the JSON body is small.
const uploadBodyOverhead = 64 << 10

// MemoryListResponse wraps search and timeline results.
type MemoryListResponse struct {
	Memories []dommem.View `json:"memories"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Server serves the memory HTTP API.
type Server struct {
	search         Searcher
	timeline       TimelineWalker
	ingest         Ingester
	health         HealthChecker
	logger         *zap.Logger
	maxUploadBytes int
	errorHandlers  []errorHandler
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithMaxUploadBytes caps the decoded image size accepted by the upload endpoint.
func WithMaxUploadBytes(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// NewServer creates an HTTP API server.
func NewServer(
	search Searcher,
	timeline TimelineWalker,
	ingest Ingester,
	health HealthChecker,
	logger *zap.Logger,
	opts ...ServerOption,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		search:         search,
		timeline:       timeline,
		ingest:         ingest,
		health:         health,
		logger:         logger,
		maxUploadBytes: upload.DefaultMaxBytes,
		errorHandlers:  defaultErrorHandlers(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Upload handles POST /api/upload/.
func (s *Server) Upload(w http.ResponseWriter, r *http.Request) {
	limit := int64(s.maxUploadBytes)/3*4 + uploadBodyOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	var req UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	up, err := uploadFromRequest(req, s.maxUploadBytes)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	id, err := s.ingest.Ingest(ctx, up)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, UploadResponse{Status: "success", ID: id})
}

// SearchMemories handles GET /api/memory/. Besides the fixed filters it
// accepts metadata.<key>=value exact-match parameters.
func (s *Server) SearchMemories(w http.ResponseWriter, r *http.Request) {
	params, err := bindSearchParams(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	req, err := searchRequestFromParams(params)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	views, err := s.search.Search(ctx, &req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, memoryList(views))
}

// Timeline handles GET /api/memory/timeline.
func (s *Server) Timeline(w http.ResponseWriter, r *http.Request) {
	params, err := bindTimelineParams(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	cursor, err := cursorFromParams(params)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	views, err := s.timeline.Walk(r.Context(), cursor)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, memoryList(views))
}

// GetMemory handles GET /api/memory/{id}.
func (s *Server) GetMemory(w http.ResponseWriter, r *http.Request) {
	v, err := s.search.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
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

func memoryList(views []dommem.View) MemoryListResponse {
	if views == nil {
		views = []dommem.View{}
	}
	return MemoryListResponse{Memories: views}
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}
