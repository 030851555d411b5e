package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"

	"github.com/wonny/movies/internal/dataset"
	"github.com/wonny/movies/internal/loader"
	"github.com/wonny/movies/pkg/logger"
)

// Reloader replaces the catalog from a dataset source
type Reloader interface {
	Reload(ctx context.Context, source string) (*loader.Result, error)
}

// DatasetHandler triggers dataset reloads
type DatasetHandler struct {
	reloader      Reloader
	defaultSource string
	allowed       map[string]bool
	logger        *logger.Logger
}

// NewDatasetHandler creates a new dataset handler. defaultSource is used when
// the request names no source; allowed lists the other sources a request may name.
func NewDatasetHandler(reloader Reloader, defaultSource string, allowed []string, log *logger.Logger) *DatasetHandler {
	h := &DatasetHandler{
		reloader:      reloader,
		defaultSource: defaultSource,
		allowed:       map[string]bool{defaultSource: true},
		logger:        log,
	}
	for _, source := range allowed {
		h.allowed[source] = true
	}
	return h
}

// ReloadRequest names the dataset to load. Empty means the configured dataset.
type ReloadRequest struct {
	Source string `json:"source"`
}

// ReloadResponse reports the reload outcome
type ReloadResponse struct {
	Status string         `json:"status"`
	Result *loader.Result `json:"result"`
}

// Reload replaces the catalog with a dataset
// POST {base}/dataset/reload
func (h *DatasetHandler) Reload(w http.ResponseWriter, r *http.Request) {
	var req ReloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	source := req.Source
	if source == "" {
		source = h.defaultSource
	}
	// 설정된 데이터셋과 허용 목록 외에는 로드하지 않음
	if !h.allowed[source] {
		h.logger.WithField("source", source).Warn("Rejected dataset reload source")
		respondError(w, http.StatusBadRequest, "Source is not an allowed dataset")
		return
	}

	result, err := h.reloader.Reload(r.Context(), source)
	if err != nil {
		h.logger.WithError(err).WithField("source", source).Error("Dataset reload failed")
		if isDatasetError(err) {
			respondError(w, http.StatusBadRequest, "Dataset is invalid or unavailable")
			return
		}
		respondError(w, http.StatusInternalServerError, "Dataset reload failed")
		return
	}

	respondJSON(w, http.StatusOK, ReloadResponse{
		Status: "ok",
		Result: result,
	})
}

func isDatasetError(err error) bool {
	return errors.Is(err, dataset.ErrInvalidHeader) ||
		errors.Is(err, dataset.ErrMalformedRow) ||
		errors.Is(err, dataset.ErrEmptyDataset) ||
		errors.Is(err, fs.ErrNotExist)
}
