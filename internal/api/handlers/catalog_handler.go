package handlers

import (
	"net/http"

	"github.com/zatekoja/servicemarket/internal/application/services"
	"github.com/zatekoja/servicemarket/pkg/validator"
)

// CatalogHandler handles provider service catalog requests
type CatalogHandler struct {
	service  *services.CatalogService
	validate *validator.Validator
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(service *services.CatalogService, validate *validator.Validator) *CatalogHandler {
	return &CatalogHandler{service: service, validate: validate}
}

// ListProviderServices lists a provider's services. Archived services are
// only visible to their owner and admins.
// GET /api/providers/{id}/services
func (h *CatalogHandler) ListProviderServices(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListProviderServices(r.Context(), identity(r), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"services": list,
		"count":    len(list),
	})
}

// CreateService adds a service to the caller's catalog
// POST /api/services
func (h *CatalogHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	var in services.ServiceInput
	if err := decodeJSON(r, h.validate, &in); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	svc, err := h.service.CreateService(r.Context(), identity(r), in)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, svc)
}

// UpdateService replaces a service's editable fields
// PUT /api/services/{id}
func (h *CatalogHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
	var in services.ServiceInput
	if err := decodeJSON(r, h.validate, &in); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	svc, err := h.service.UpdateService(r.Context(), identity(r), r.PathValue("id"), in)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, svc)
}

// ArchiveService hides a service from new bookings
// DELETE /api/services/{id}
func (h *CatalogHandler) ArchiveService(w http.ResponseWriter, r *http.Request) {
	svc, err := h.service.ArchiveService(r.Context(), identity(r), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, svc)
}
