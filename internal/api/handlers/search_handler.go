package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/zatekoja/servicemarket/internal/application/services"
	"github.com/zatekoja/servicemarket/internal/domain/repositories"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

// SearchHandler handles provider discovery
type SearchHandler struct {
	service *services.SearchService
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(service *services.SearchService) *SearchHandler {
	return &SearchHandler{service: service}
}

// SearchProviders searches the provider index
// GET /api/providers/search?q=&category=a,b&min_rating=&max_rate=&lat=&lon=&radius_km=&page=&per_page=
func (h *SearchHandler) SearchProviders(w http.ResponseWriter, r *http.Request) {
	params, err := parseSearchParams(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	result, err := h.service.SearchProviders(r.Context(), params)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func parseSearchParams(r *http.Request) (repositories.ProviderSearchParams, error) {
	query := r.URL.Query()
	params := repositories.ProviderSearchParams{
		Query: strings.TrimSpace(query.Get("q")),
	}

	for _, raw := range query["category"] {
		for _, c := range strings.Split(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				params.Categories = append(params.Categories, c)
			}
		}
	}

	var err error
	if params.MinRating, err = queryFloat(r, "min_rating"); err != nil {
		return params, err
	}
	if params.RadiusKm, err = queryFloat(r, "radius_km"); err != nil {
		return params, err
	}
	if raw := query.Get("max_rate"); raw != "" {
		if params.MaxHourlyRate, err = strconv.ParseInt(raw, 10, 64); err != nil || params.MaxHourlyRate < 0 {
			return params, apperrors.NewValidationError("max_rate must be a non-negative integer")
		}
	}
	if raw := query.Get("lat"); raw != "" {
		lat, err := strconv.ParseFloat(raw, 64)
		if err != nil || lat < -90 || lat > 90 {
			return params, apperrors.NewValidationError("invalid latitude parameter")
		}
		params.Latitude = &lat
	}
	if raw := query.Get("lon"); raw != "" {
		lon, err := strconv.ParseFloat(raw, 64)
		if err != nil || lon < -180 || lon > 180 {
			return params, apperrors.NewValidationError("invalid longitude parameter")
		}
		params.Longitude = &lon
	}
	if params.Page, err = queryInt(r, "page", 1); err != nil {
		return params, err
	}
	if params.PerPage, err = queryInt(r, "per_page", 20); err != nil {
		return params, err
	}
	return params, nil
}

func queryFloat(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 {
		return 0, apperrors.NewValidationError(name + " must be a non-negative number")
	}
	return f, nil
}
