package handlers

import (
	"context"
	"net/http"

	"github.com/wonny/movies/internal/contracts"
	"github.com/wonny/movies/pkg/logger"
)

// IntervalReporter produces the award interval report
type IntervalReporter interface {
	ProducerIntervals(ctx context.Context) (*contracts.IntervalReport, error)
}

// AwardsHandler serves the award interval report
// ⭐ SSOT: 수상 간격 API 핸들러
type AwardsHandler struct {
	reporter IntervalReporter
	logger   *logger.Logger
}

// NewAwardsHandler creates a new awards handler
func NewAwardsHandler(reporter IntervalReporter, log *logger.Logger) *AwardsHandler {
	return &AwardsHandler{
		reporter: reporter,
		logger:   log,
	}
}

// GetProducerIntervals returns producers with the minimum and maximum interval between wins
// GET {base}/producers/awards-intervals
func (h *AwardsHandler) GetProducerIntervals(w http.ResponseWriter, r *http.Request) {
	report, err := h.reporter.ProducerIntervals(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to compute award intervals")
		respondError(w, http.StatusInternalServerError, "Failed to compute award intervals")
		return
	}

	respondJSON(w, http.StatusOK, report)
}
