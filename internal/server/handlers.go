package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"docdex/internal/retriever"
)

// QueryRequest is the POST /api/query body. Omitted numeric fields fall back
// to the server's configured query defaults.
type QueryRequest struct {
	Query          string   `json:"query"`
	Collection     string   `json:"collection"`
	Mode           string   `json:"mode"`
	NResults       int      `json:"n_results"`
	Threshold      *float64 `json:"threshold"`
	ChunkWeight    *float64 `json:"chunk_weight"`
	DocumentWeight *float64 `json:"document_weight"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}

	mode, err := retriever.ParseMode(req.Mode)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts := retriever.Options{
		Collection:     req.Collection,
		Mode:           mode,
		MaxResults:     req.NResults,
		Threshold:      s.cfg.Query.Threshold,
		ChunkWeight:    s.cfg.Query.ChunkWeight,
		DocumentWeight: s.cfg.Query.DocumentWeight,
	}
	if opts.MaxResults == 0 {
		opts.MaxResults = s.cfg.Query.MaxResults
	}
	if req.Threshold != nil {
		opts.Threshold = *req.Threshold
	}
	if req.ChunkWeight != nil {
		opts.ChunkWeight = *req.ChunkWeight
	}
	if req.DocumentWeight != nil {
		opts.DocumentWeight = *req.DocumentWeight
	}

	s.logger.Debug("query request",
		zap.String("query", req.Query),
		zap.String("mode", string(mode)),
		zap.Int("n_results", opts.MaxResults))

	resp, err := s.searcher.Query(req.Query, opts)
	if err != nil {
		s.logger.Error("query failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.Stats()
	if err != nil {
		s.logger.Error("stats failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}
