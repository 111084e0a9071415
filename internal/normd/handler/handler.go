// Package handler exposes the weighting service over HTTP.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/lexstat/pivotnorm/internal/eval"
	"github.com/lexstat/pivotnorm/internal/normd"
	"github.com/lexstat/pivotnorm/internal/normd/cache"
	"github.com/lexstat/pivotnorm/internal/normd/store"
	"github.com/lexstat/pivotnorm/internal/weighting"
	apperrors "github.com/lexstat/pivotnorm/pkg/errors"
	"github.com/lexstat/pivotnorm/pkg/logger"
)

type Handler struct {
	service *normd.Service
	cache   *cache.TransformCache
	store   *store.RunStore
	logger  *slog.Logger
}

func New(service *normd.Service, transformCache *cache.TransformCache, runStore *store.RunStore) *Handler {
	return &Handler{
		service: service,
		cache:   transformCache,
		store:   runStore,
		logger:  slog.Default().With("component", "normd-handler"),
	}
}

type fitRequest struct {
	Corpus []weighting.CountVector `json:"corpus"`
	Params map[string]any          `json:"params"`
}

func (h *Handler) Fit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req fitRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	params, err := weighting.ParseParams(req.Params)
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}

	summary, err := h.service.Fit(ctx, req.Corpus, params)
	if err != nil {
		log.Error("fit failed", "error", err, "corpus_size", len(req.Corpus))
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	log.Info("fit complete", "num_docs", summary.NumDocs, "vocab_size", summary.VocabSize)
	h.writeJSON(w, http.StatusOK, summary)
}

type transformRequest struct {
	Documents []weighting.CountVector `json:"documents"`
}

type transformResponse struct {
	Vectors []weighting.WeightVector `json:"vectors"`
}

func (h *Handler) Transform(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req transformRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Documents) == 0 {
		h.writeError(w, http.StatusBadRequest, "documents must be non-empty")
		return
	}

	vectors, err := h.service.Transform(ctx, req.Documents)
	if err != nil {
		log.Error("transform failed", "error", err, "documents", len(req.Documents))
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, transformResponse{Vectors: vectors})
}

func (h *Handler) Model(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Model()
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

type biasRequest struct {
	Scores    []float64 `json:"scores"`
	Lengths   []float64 `json:"lengths"`
	K         int       `json:"k"`
	Direction string    `json:"direction"`
}

func (h *Handler) Bias(w http.ResponseWriter, r *http.Request) {
	var req biasRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	dir := eval.Ascending
	switch strings.ToLower(req.Direction) {
	case "", "ascending":
	case "descending":
		dir = eval.Descending
	default:
		h.writeError(w, http.StatusBadRequest, "direction must be \"ascending\" or \"descending\"")
		return
	}

	report, err := h.service.Bias(req.Scores, req.Lengths, req.K, dir)
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

type sweepRequest struct {
	Train       []weighting.CountVector `json:"train"`
	TrainLabels []int                   `json:"train_labels"`
	Test        []weighting.CountVector `json:"test"`
	TestLabels  []int                   `json:"test_labels"`
	VocabSize   int                     `json:"vocab_size"`
	Slopes      []float64               `json:"slopes"`
}

func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req sweepRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	report, err := h.service.Sweep(ctx, eval.Split{
		Train:       req.Train,
		TrainLabels: req.TrainLabels,
		Test:        req.Test,
		TestLabels:  req.TestLabels,
		VocabSize:   req.VocabSize,
	}, req.Slopes)
	if err != nil {
		log.Error("sweep failed", "error", err, "candidates", len(req.Slopes))
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	log.Info("sweep complete", "best_slope", report.Best.Slope, "best_accuracy", report.Best.Accuracy)
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) SweepHistory(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.writeError(w, http.StatusNotFound, "sweep history store not configured")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	runs, err := h.store.Recent(r.Context(), limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to load sweep history")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (h *Handler) SweepBest(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.writeError(w, http.StatusNotFound, "sweep history store not configured")
		return
	}
	run, err := h.store.Best(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to load best sweep run")
		return
	}
	if run == nil {
		h.writeError(w, http.StatusNotFound, "no sweep runs recorded")
		return
	}
	h.writeJSON(w, http.StatusOK, run)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusNotFound, "cache not configured")
		return
	}
	hits, misses := h.cache.Stats()
	h.writeJSON(w, http.StatusOK, map[string]int64{
		"hits":   hits,
		"misses": misses,
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusNotFound, "cache not configured")
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
