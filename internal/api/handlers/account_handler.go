package handlers

import (
	"net/http"

	"github.com/zatekoja/servicemarket/internal/application/services"
	"github.com/zatekoja/servicemarket/pkg/validator"
)

// AccountHandler handles account and provider profile requests
type AccountHandler struct {
	service  *services.AccountService
	validate *validator.Validator
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(service *services.AccountService, validate *validator.Validator) *AccountHandler {
	return &AccountHandler{service: service, validate: validate}
}

// CreateAccount registers the caller's account
// POST /api/accounts
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var in services.CreateAccountInput
	if err := decodeJSON(r, h.validate, &in); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	account, err := h.service.CreateAccount(r.Context(), identity(r), in)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, account)
}

// GetMe returns the caller's account
// GET /api/accounts/me
func (h *AccountHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.GetAccount(r.Context(), identity(r))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, account)
}

// GetProvider returns a provider's public profile
// GET /api/providers/{id}
func (h *AccountHandler) GetProvider(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.GetProvider(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, profile)
}

// UpdateMyProfile applies a partial update to the caller's provider profile
// PATCH /api/providers/me
func (h *AccountHandler) UpdateMyProfile(w http.ResponseWriter, r *http.Request) {
	var patch services.ProviderPatch
	if err := decodeJSON(r, h.validate, &patch); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	provider, err := h.service.UpdateProviderProfile(r.Context(), identity(r), patch)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, provider)
}
