// Package handler serves the search API: ranked queries, document
// indexing, index and cache statistics.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/rankengine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/rankengine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/rankengine/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/rankengine/pkg/tracing"
)

const maxBodyBytes = validator.MaxTextLength * 4

type SearchExecutor interface {
	Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*executor.SearchResult, error)
}

// DocumentPublisher is satisfied by *publisher.Publisher.
type DocumentPublisher interface {
	Publish(ctx context.Context, docs []index.Document) error
}

type Handler struct {
	engine       *indexer.Engine
	executor     SearchExecutor
	cache        *cache.QueryCache
	publisher    DocumentPublisher
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

// New creates a Handler. queryCache may be nil to disable caching.
func New(engine *indexer.Engine, exec SearchExecutor, queryCache *cache.QueryCache, defaultLimit, maxResults int) *Handler {
	return &Handler{
		engine:       engine,
		executor:     exec,
		cache:        queryCache,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

// UsePublisher routes POSTed documents through p instead of indexing them
// in process. They become searchable once consumed from the topic.
func (h *Handler) UsePublisher(p DocumentPublisher) *Handler {
	h.publisher = p
	return h
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("POST /api/v1/documents", h.IndexDocuments)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.GetDocument)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := tracing.StartSpan(r.Context(), "search", middleware.GetRequestID(r.Context()))
	log := logger.FromContext(ctx)
	defer func() {
		span.End()
		span.Log(log)
	}()

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'q' is required"))
		return
	}
	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer"))
			return
		}
		limit = min(parsed, h.maxResults)
	}

	plan := parser.Parse(query)
	var (
		result   *executor.SearchResult
		cacheHit bool
		err      error
	)
	span.SetAttr("terms", len(plan.Terms))
	// A query with no terms matches nothing; it is not worth a cache entry.
	cached := h.cache != nil && len(plan.Terms) > 0
	if cached {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, plan, limit, h.engine.Generation(), func() (*executor.SearchResult, error) {
			return h.executor.Execute(ctx, plan, limit)
		})
	} else {
		result, err = h.executor.Execute(ctx, plan, limit)
	}
	if err != nil {
		log.Error("search execution failed", "query", query, "error", err)
		h.writeError(w, err)
		return
	}

	log.Info("search completed",
		"query", query,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	span.SetAttr("cache_hit", cacheHit)
	w.Header().Set("X-Cache", cacheHeader(cached, cacheHit))
	h.writeJSON(w, http.StatusOK, result)
}

// IndexDocuments accepts one document object or an array of them.
func (h *Handler) IndexDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusRequestEntityTooLarge, "request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "could not read request body"))
		return
	}
	docs, err := ingestion.DecodeDocuments(body)
	if err != nil {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, err.Error()))
		return
	}
	if err := validator.ValidateBatch(docs); err != nil {
		h.writeError(w, err)
		return
	}

	if h.publisher != nil {
		if err := h.publisher.Publish(ctx, docs); err != nil {
			logger.FromContext(ctx).Error("publishing documents failed", "count", len(docs), "error", err)
			h.writeError(w, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "document queue unavailable"))
			return
		}
		h.writeJSON(w, http.StatusAccepted, ingestion.IndexResponse{
			Accepted: len(docs),
			DocCount: h.engine.IndexSize(),
		})
		return
	}

	added := h.engine.IndexAll(docs...)
	logger.FromContext(ctx).Info("documents indexed",
		"received", len(docs),
		"accepted", added,
		"request_id", middleware.GetRequestID(ctx),
	)
	h.writeJSON(w, http.StatusOK, ingestion.IndexResponse{
		Accepted:   added,
		Duplicates: len(docs) - added,
		DocCount:   h.engine.IndexSize(),
	})
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "document id must be an integer"))
		return
	}
	doc, ok := h.engine.Document(id)
	if !ok {
		h.writeError(w, apperrors.Newf(apperrors.ErrNotFound, http.StatusNotFound, "document %d not found", id))
		return
	}
	h.writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Stats())
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"backend":  h.cache.Backend(),
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, apperrors.New(apperrors.ErrInternal, http.StatusInternalServerError, "cache invalidation failed"))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError maps err to a status code. Validation failures carry their
// per-field messages; other non-AppErrors are reported generically.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var verr *validator.ValidationError
	if errors.As(err, &verr) {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
		return
	}
	status := apperrors.HTTPStatusCode(err)
	message := http.StatusText(status)
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}

func cacheHeader(cached, hit bool) string {
	switch {
	case !cached:
		return "BYPASS"
	case hit:
		return "HIT"
	default:
		return "MISS"
	}
}
