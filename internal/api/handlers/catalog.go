package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/movies/internal/contracts"
	"github.com/wonny/movies/pkg/logger"
)

// CatalogHandler exposes the stored movies, producers and studios
type CatalogHandler struct {
	repo   contracts.MovieRepository
	logger *logger.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(repo contracts.MovieRepository, log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{
		repo:   repo,
		logger: log,
	}
}

// ListMovies returns movies, optionally filtered
// GET {base}/movies?winner=true&year=1990
func (h *CatalogHandler) ListMovies(w http.ResponseWriter, r *http.Request) {
	filter, err := parseMovieFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	movies, err := h.repo.ListMovies(r.Context(), filter)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list movies")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve movies")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"movies": movies,
		"count":  len(movies),
	})
}

func parseMovieFilter(r *http.Request) (contracts.MovieFilter, error) {
	var filter contracts.MovieFilter
	q := r.URL.Query()

	if v := q.Get("winner"); v != "" {
		winner, err := strconv.ParseBool(v)
		if err != nil {
			return filter, errors.New("invalid 'winner' parameter (expected true or false)")
		}
		filter.Winner = &winner
	}

	if v := q.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return filter, errors.New("invalid 'year' parameter (expected an integer)")
		}
		filter.Year = &year
	}

	return filter, nil
}

// GetMovie returns one movie
// GET {base}/movies/{id}
func (h *CatalogHandler) GetMovie(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid movie id")
		return
	}

	movie, err := h.repo.GetMovie(r.Context(), id)
	if errors.Is(err, contracts.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Movie not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get movie")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve movie")
		return
	}

	respondJSON(w, http.StatusOK, movie)
}

// ListProducers returns every producer
// GET {base}/producers
func (h *CatalogHandler) ListProducers(w http.ResponseWriter, r *http.Request) {
	producers, err := h.repo.ListProducers(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list producers")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve producers")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"producers": producers,
		"count":     len(producers),
	})
}

// ListStudios returns every studio
// GET {base}/studios
func (h *CatalogHandler) ListStudios(w http.ResponseWriter, r *http.Request) {
	studios, err := h.repo.ListStudios(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list studios")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve studios")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"studios": studios,
		"count":   len(studios),
	})
}
