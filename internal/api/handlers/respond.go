package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
	"github.com/zatekoja/servicemarket/pkg/validator"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string              `json:"error"`
	Type  apperrors.ErrorType `json:"type"`
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, errType apperrors.ErrorType, message string) {
	respondWithJSON(w, statusCode, errorResponse{Error: message, Type: errType})
}

// StatusFor maps an error's AppError type to an HTTP status code.
func StatusFor(err error) int {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorTypeConflict, apperrors.ErrorTypeDuplicate,
		apperrors.ErrorTypeAlreadyReplied, apperrors.ErrorTypeConcurrentModification,
		apperrors.ErrorTypeInvalidTransition:
		return http.StatusConflict
	case apperrors.ErrorTypeNotEligible:
		return http.StatusUnprocessableEntity
	case apperrors.ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrorTypeForbidden:
		return http.StatusForbidden
	case apperrors.ErrorTypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondWithAppError writes err as {"error", "type"}. Internal details are
// logged and never sent to the client.
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	errType := apperrors.TypeOf(err)

	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}

	if status >= http.StatusInternalServerError {
		observability.LoggerFromContext(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		if status == http.StatusInternalServerError {
			message = "internal server error"
		}
	}
	respondWithError(w, status, errType, message)
}

// decodeJSON reads a JSON body into dst and runs struct validation on it.
func decodeJSON(r *http.Request, v *validator.Validator, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.NewValidationError("request body is required")
		}
		return apperrors.NewValidationError("malformed JSON body: " + err.Error())
	}
	if v == nil {
		return nil
	}
	return v.Validate(dst)
}

func identity(r *http.Request) entities.Identity {
	id, _ := entities.IdentityFromContext(r.Context())
	return id
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.NewValidationError(name + " must be a non-negative integer")
	}
	return n, nil
}
