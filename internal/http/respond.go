package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/Johngardev/Emeraldia/internal/repository"
	"github.com/Johngardev/Emeraldia/internal/service"
	"github.com/Johngardev/Emeraldia/internal/store"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError converts the service layer's sentinel errors to HTTP
// status codes. The error message is safe to surface: services phrase their
// errors for callers and never leak internals into the sentinel chain.
func handleServiceError(w http.ResponseWriter, err error) {
	var httpStatus int
	var code string

	switch {
	case errors.Is(err, service.ErrEmptyCart):
		httpStatus = http.StatusBadRequest
		code = "empty_cart"
	case errors.Is(err, service.ErrInvalidQuantity):
		httpStatus = http.StatusBadRequest
		code = "invalid_quantity"
	case errors.Is(err, service.ErrMissingAddress):
		httpStatus = http.StatusBadRequest
		code = "missing_address"
	case errors.Is(err, service.ErrInvalidStatus):
		httpStatus = http.StatusBadRequest
		code = "invalid_status"
	case errors.Is(err, service.ErrInvalidTransition):
		httpStatus = http.StatusBadRequest
		code = "invalid_transition"
	case errors.Is(err, store.ErrInsufficientStock):
		httpStatus = http.StatusBadRequest
		code = "insufficient_stock"
	case errors.Is(err, service.ErrItemNotFound),
		errors.Is(err, store.ErrProductNotFound),
		errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrCartNotFound),
		errors.Is(err, repository.ErrOrderNotFound):
		httpStatus = http.StatusNotFound
		code = "not_found"
	case errors.Is(err, service.ErrStockRestoreFailed):
		httpStatus = http.StatusInternalServerError
		code = "stock_restore_failed"
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondError(w, httpStatus, code, err.Error())
}
