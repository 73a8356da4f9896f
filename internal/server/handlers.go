package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/tsunagu/internal/catalog"
	"github.com/hyperjump/tsunagu/internal/embedding"
	"github.com/hyperjump/tsunagu/internal/ingest"
	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/paperid"
	"github.com/hyperjump/tsunagu/internal/search"
	"github.com/hyperjump/tsunagu/internal/vectordb"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	papers, chunks, err := s.catalog.Stats(ctx)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"papers": papers,
		"chunks": chunks,
	}
	if n, err := s.index.Count(ctx); err == nil {
		resp["index_records"] = n
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type ingestRequest struct {
	ID      string `json:"id,omitempty"`
	Title   string `json:"title"`
	Authors string `json:"authors,omitempty"`
	Year    int    `json:"year,omitempty"`
	Text    string `json:"text,omitempty"`
	// Path ingests a file readable by the server instead of inline text.
	Path  string                 `json:"path,omitempty"`
	Extra map[string]interface{} `json:"extra,omitempty"`
}

func (s *Server) handleIngestPaper(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path != "" {
		meta := models.PaperMeta{Title: req.Title, Authors: req.Authors, Year: req.Year, Extra: req.Extra}
		res, err := s.orchestrator.IngestFile(r.Context(), req.Path, meta)
		if err != nil {
			s.log.Warn("ingest failed", zap.String("path", req.Path), zap.Error(err))
			s.respondError(w, ingestStatus(err), err.Error())
			return
		}
		s.respondJSON(w, http.StatusCreated, res)
		return
	}
	if req.Title == "" && req.ID == "" {
		s.respondError(w, http.StatusBadRequest, "id or title is required")
		return
	}
	id := req.ID
	if id == "" {
		id = paperid.Slug(req.Title)
	}
	if !paperid.Valid(id) {
		s.respondError(w, http.StatusBadRequest, "invalid paper id: lowercase alphanumerics and hyphens only")
		return
	}

	meta := models.PaperMeta{Title: req.Title, Authors: req.Authors, Year: req.Year, Extra: req.Extra}
	res, err := s.orchestrator.IngestText(r.Context(), id, req.Text, meta)
	if err != nil {
		s.log.Warn("ingest failed", zap.String("paper_id", id), zap.Error(err))
		s.respondError(w, ingestStatus(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListPapers(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 50)
	papers, err := s.catalog.List(r.Context(), offset, limit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if papers == nil {
		papers = []*models.Paper{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"papers": papers})
}

func (s *Server) handleGetPaper(w http.ResponseWriter, r *http.Request) {
	paper, err := s.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, catalog.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "paper not found")
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, paper)
}

func (s *Server) handleDeletePaper(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.orchestrator.RemovePaper(r.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "paper not found")
		return
	}
	if err != nil {
		s.log.Warn("delete failed", zap.String("paper_id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"paper_id": id, "status": "deleted"})
}

type searchRequest struct {
	models.SearchRequest
	// ByPaper adds a per-paper grouping of the matches to the response.
	ByPaper bool `json:"by_paper,omitempty"`
	// Summarize adds an LLM or extractive summary of the matches.
	Summarize bool `json:"summarize,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	matches, err := s.engine.Search(r.Context(), &req.SearchRequest)
	if err != nil {
		s.respondError(w, searchStatus(err), err.Error())
		return
	}
	if matches == nil {
		matches = []models.SearchMatch{}
	}
	resp := map[string]interface{}{"matches": matches}
	if req.ByPaper {
		resp["papers"] = search.AggregateByPaper(matches)
	}
	if req.Summarize && s.summarizer != nil {
		summary, err := s.summarizer.Summarize(r.Context(), req.Query, matches)
		if err == nil {
			resp["summary"] = summary
		} else {
			s.log.Warn("result summarization failed", zap.Error(err))
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type contradictionsRequest struct {
	Claim string `json:"claim"`
	TopK  int    `json:"top_k,omitempty"`
}

func (s *Server) handleContradictions(w http.ResponseWriter, r *http.Request) {
	var req contradictionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	out, err := s.engine.FindContradictions(r.Context(), req.Claim, req.TopK)
	if err != nil {
		s.respondError(w, searchStatus(err), err.Error())
		return
	}
	if out == nil {
		out = []search.Contradiction{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"candidates": out})
}

func (s *Server) handleRelatedPapers(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	related, err := s.engine.FindRelated(r.Context(), id, queryInt(r, "top_k", 0))
	if errors.Is(err, search.ErrPaperNotFound) {
		s.respondError(w, http.StatusNotFound, "paper not indexed")
		return
	}
	if err != nil {
		s.respondError(w, searchStatus(err), err.Error())
		return
	}
	if related == nil {
		related = []search.RelatedPaper{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"paper_id": id, "related": related})
}

// handleSummarizePaper summarizes a paper from its leading indexed chunks.
func (s *Server) handleSummarizePaper(w http.ResponseWriter, r *http.Request) {
	if s.summarizer == nil {
		s.respondError(w, http.StatusNotImplemented, "summarization not configured")
		return
	}
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	paper, err := s.catalog.Get(ctx, id)
	if errors.Is(err, catalog.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "paper not found")
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	const summaryChunks = 5
	var matches []models.SearchMatch
	for i := 0; i < paper.ChunkCount && i < summaryChunks; i++ {
		rec, err := s.index.FetchByID(ctx, models.ChunkRecordID(id, i))
		if err != nil {
			break
		}
		matches = append(matches, models.SearchMatch{RecordID: rec.ID, Metadata: rec.Metadata})
	}
	if len(matches) == 0 {
		s.respondError(w, http.StatusNotFound, "paper has no indexed text")
		return
	}

	summary, err := s.summarizer.Summarize(ctx, paper.Title, matches)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"paper_id": id, "summary": summary})
}

// ingestStatus maps ingestion errors to HTTP status codes.
func ingestStatus(err error) int {
	switch {
	case errors.Is(err, ingest.ErrEmptyDocument), errors.Is(err, os.ErrNotExist):
		return http.StatusBadRequest
	case errors.Is(err, embedding.ErrUnavailable),
		errors.Is(err, vectordb.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, vectordb.ErrCollectionConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// searchStatus maps query errors to HTTP status codes.
func searchStatus(err error) int {
	if errors.Is(err, search.ErrUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadRequest
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
