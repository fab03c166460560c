// Package server is the HTTP surface of the insights service. Handlers
// translate requests into service calls and StandardError codes into
// HTTP statuses; all business behavior lives below this layer.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sellerqi-insights/internal/common/config"
	stderrors "sellerqi-insights/internal/common/errors"
	"sellerqi-insights/internal/common/logger"
	"sellerqi-insights/internal/models"
	"sellerqi-insights/internal/notify"
	"sellerqi-insights/internal/service"
	"sellerqi-insights/pkg/catalog"
)

// Server wires the route table over the service.
type Server struct {
	cfg      *config.Config
	service  *service.Service
	logger   logger.Logger
	errorOut *stderrors.Handler
}

// New builds the HTTP server wrapper.
func New(cfg *config.Config, svc *service.Service, log logger.Logger) *Server {
	componentLog := log.WithFields(map[string]interface{}{"component": "server"})
	return &Server{
		cfg:      cfg,
		service:  svc,
		logger:   componentLog,
		errorOut: stderrors.NewHandler(componentLog),
	}
}

// Routes returns the full route table.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/categories", s.handleCatalog)
	mux.HandleFunc("GET /api/v1/accounts/{account}/issues/{category}", s.handleLoad)
	mux.HandleFunc("POST /api/v1/accounts/{account}/issues/{category}/load-more", s.handleLoadMore)
	mux.HandleFunc("POST /api/v1/accounts/{account}/issues/{category}/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/v1/accounts/{account}/issues/{category}/export", s.handleExport)
	mux.HandleFunc("GET /api/v1/accounts/{account}/views/{category}", s.handleRawView)
	mux.HandleFunc("GET /api/v1/accounts/{account}/summary", s.handleSummary)
	mux.HandleFunc("GET /api/v1/accounts/{account}/search", s.handleSearch)
	mux.HandleFunc("GET /api/v1/accounts/{account}/exports", s.handleExportHistory)

	return mux
}

// HTTPServer builds the configured http.Server around the route table.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.Routes(),
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeout) * time.Millisecond,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","service":"%s"}`, s.cfg.App.Name)
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"ready"}`)
}

func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, catalog.Default())
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("account")
	category := models.Category(r.PathValue("category"))

	result, err := s.service.Load(r.Context(), accountID, category)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLoadMore(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("account")
	category := models.Category(r.PathValue("category"))

	result, err := s.service.LoadMore(r.Context(), accountID, category)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("account")
	category := models.Category(r.PathValue("category"))

	result, err := s.service.Refresh(r.Context(), accountID, category)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRawView(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("account")
	category := models.Category(r.PathValue("category"))

	raw, err := s.service.RawView(r.Context(), accountID, category)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("account")

	metric := models.RankMetric(r.URL.Query().Get("metric"))
	switch metric {
	case models.RankByIssues, models.RankByRevenue, models.RankByUnits:
	case "":
		metric = models.RankByIssues
	default:
		s.writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("unsupported metric %q", metric),
		})
		return
	}

	contact := notify.Contact{
		Email: r.URL.Query().Get("alertEmail"),
		Phone: r.URL.Query().Get("alertPhone"),
	}

	result, err := s.service.Summary(r.Context(), accountID, metric, contact)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("account")

	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query parameter q is required"})
		return
	}

	size := 0
	if sizeStr := r.URL.Query().Get("size"); sizeStr != "" {
		parsed, err := strconv.Atoi(sizeStr)
		if err != nil || parsed < 0 {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "size must be a non-negative integer"})
			return
		}
		size = parsed
	}

	category := models.Category(r.URL.Query().Get("category"))
	result, err := s.service.Search(r.Context(), accountID, query, category, size)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("account")
	category := models.Category(r.PathValue("category"))

	format := r.URL.Query().Get("format")
	switch format {
	case "", "csv":
		format = "csv"
		w.Header().Set("Content-Type", "text/csv")
	case "ndjson":
		w.Header().Set("Content-Type", "application/x-ndjson")
	default:
		s.writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("unsupported format %q", format),
		})
		return
	}
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%s-issues.%s", category, format))

	if _, err := s.service.Export(r.Context(), accountID, category, format, w); err != nil {
		// Headers may already be out; at least log the failure.
		s.logger.Error("export failed", map[string]interface{}{
			"account":  accountID,
			"category": string(category),
			"error":    err.Error(),
		})
	}
}

func (s *Server) handleExportHistory(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("account")

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	history, err := s.service.ExportHistory(r.Context(), accountID, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"reports": history})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("response encoding failed", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	stdErr := s.errorOut.Handle("http request", err)
	s.writeJSON(w, stderrors.HTTPStatus(stdErr.Code), stdErr)
}
