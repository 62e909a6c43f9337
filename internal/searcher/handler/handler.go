// Package handler exposes the engine over a JSON HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/cache"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/logger"
)

const (
	maxBatchQueries = 100
	maxBodyBytes    = 1 << 20
)

// Engine is the part of engine.Engine the API serves.
type Engine interface {
	Search(ctx context.Context, query string, limit int) (*searcher.Response, error)
	BatchSearch(ctx context.Context, queries []string, limit int) ([]*searcher.Response, error)
	Load(ctx context.Context, name string) (int, error)
	Status() engine.Status
	Document(id string) (*index.Document, error)
	CacheStats() (cache.Stats, bool)
	InvalidateCache(ctx context.Context) error
}

type Handler struct {
	engine    Engine
	indexFile string
	logger    *slog.Logger
}

// New builds a Handler. indexFile is the snapshot reloaded by
// POST /api/v1/index/reload.
func New(eng Engine, indexFile string) *Handler {
	return &Handler{
		engine:    eng,
		indexFile: indexFile,
		logger:    logger.WithComponent("search-handler"),
	}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("POST /api/v1/search/batch", h.BatchSearch)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("GET /api/v1/documents/{id...}", h.Document)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("POST /api/v1/index/reload", h.Reload)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	if !params.Has("q") {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit, err := parseLimit(params.Get("limit"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.engine.Search(r.Context(), params.Get("q"), limit)
	if err != nil {
		h.writeAppError(w, r, "search failed", err)
		return
	}
	logger.FromContext(r.Context()).Debug("search served",
		"query", resp.Query,
		"total_hits", resp.TotalHits,
		"returned", len(resp.Results),
		"cache_hit", resp.CacheHit,
	)
	h.writeJSON(w, http.StatusOK, resp)
}

type batchRequest struct {
	Queries []string `json:"queries"`
	Limit   int      `json:"limit"`
}

type batchResponse struct {
	Responses []*searcher.Response `json:"responses"`
}

func (h *Handler) BatchSearch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Queries) == 0 {
		h.writeError(w, http.StatusBadRequest, "'queries' must not be empty")
		return
	}
	if len(req.Queries) > maxBatchQueries {
		h.writeError(w, http.StatusBadRequest, "too many queries (max "+strconv.Itoa(maxBatchQueries)+")")
		return
	}
	if req.Limit < 0 {
		h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	responses, err := h.engine.BatchSearch(r.Context(), req.Queries, req.Limit)
	if err != nil {
		h.writeAppError(w, r, "batch search failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, batchResponse{Responses: responses})
}

type statsResponse struct {
	engine.Status
	Cache *cache.Stats `json:"cache,omitempty"`
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{Status: h.engine.Status()}
	if stats, ok := h.engine.CacheStats(); ok {
		resp.Cache = &stats
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	doc, err := h.engine.Document(r.PathValue("id"))
	if err != nil {
		h.writeAppError(w, r, "document lookup failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.engine.CacheStats(); !ok {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.engine.InvalidateCache(r.Context()); err != nil {
		h.writeAppError(w, r, "cache invalidation failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// Reload re-reads the configured snapshot and swaps it in.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	docs, err := h.engine.Load(r.Context(), h.indexFile)
	if err != nil {
		h.writeAppError(w, r, "reload failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "reloaded", "documents": docs})
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || limit < 1 {
		return 0, errors.New("limit must be a positive integer")
	}
	return limit, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeAppError maps err to its HTTP status. Only AppError messages reach
// the client; anything else is logged and reported generically.
func (h *Handler) writeAppError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := apperrors.HTTPStatusCode(err)
	var appErr *apperrors.AppError
	if apperrors.As(err, &appErr) {
		msg = appErr.Error()
	}
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error(msg, "error", err)
	}
	h.writeError(w, status, msg)
}
