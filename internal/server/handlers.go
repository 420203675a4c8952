package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/arielhalevy123/revsearch/internal/models"
	"github.com/arielhalevy123/revsearch/internal/search"
	"go.uber.org/zap"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.observeSearch(http.StatusBadRequest, start)
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("top_k", query.TopK))
	response, err := s.retriever.Retrieve(r.Context(), &query)
	if err != nil {
		status := statusForError(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("search failed", zap.Error(err))
		} else {
			s.logger.Warn("search rejected", zap.Error(err))
		}
		s.observeSearch(status, start)
		s.respondError(w, status, err.Error())
		return
	}
	s.logger.Info("search completed",
		zap.String("query", response.Query),
		zap.Int("results", len(response.Results)),
		zap.Duration("duration", time.Since(start)))
	s.observeSearch(http.StatusOK, start)
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := "healthy"
	if err := s.index.Health(ctx); err != nil {
		s.logger.Warn("index health check failed", zap.Error(err))
		status = "degraded"
	}
	var documents uint64
	if n, err := s.index.Count(ctx); err == nil {
		documents = n
	} else {
		s.logger.Warn("document count failed", zap.Error(err))
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     status,
		"version":    s.version,
		"backend":    s.config.Index.Backend,
		"collection": s.config.Index.Collection,
		"documents":  documents,
		"embedding": map[string]interface{}{
			"provider":   s.config.Embedding.Provider,
			"model":      s.config.Embedding.Model,
			"dimensions": s.embedder.Dimensions(),
		},
	})
}

// statusForError maps retrieval errors to HTTP status codes. Invalid queries
// are the caller's fault; embedding and index failures are server errors.
func statusForError(err error) int {
	var invalidErr *search.InvalidQueryError
	if errors.As(err, &invalidErr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) observeSearch(status int, start time.Time) {
	s.metrics.ObserveSearch(strconv.Itoa(status), time.Since(start))
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError writes the error envelope shared by every non-2xx response.
func (s *Server) respondError(w http.ResponseWriter, status int, detail string) {
	s.respondJSON(w, status, models.ErrorResponse{Detail: detail})
}
