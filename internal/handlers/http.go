package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/rafflehouse/internal/competition"
	"github.com/abrezinsky/rafflehouse/internal/errors"
)

// Error codes for standardized API error responses
const (
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeInvalidState      = "INVALID_STATE"
	ErrCodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	ErrCodeLimitExceeded     = "LIMIT_EXCEEDED"
	ErrCodeAlreadyPaid       = "ALREADY_PAID"
	ErrCodeNotOwner          = "NOT_OWNER"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeInternalServer    = "INTERNAL_SERVER_ERROR"
)

// APIError represents an error with an HTTP status code and error code
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"error"`
	// Reason is the competition rejection code, e.g. WalletLimitExceeded
	Reason string `json:"reason,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Common errors
var (
	ErrBadRequest     = &APIError{Status: http.StatusBadRequest, Code: ErrCodeBadRequest, Message: "Bad request"}
	ErrUnauthorized   = &APIError{Status: http.StatusUnauthorized, Code: ErrCodeUnauthorized, Message: "Unauthorized"}
	ErrNotFound       = &APIError{Status: http.StatusNotFound, Code: ErrCodeNotFound, Message: "Not found"}
	ErrRateLimited    = &APIError{Status: http.StatusTooManyRequests, Code: ErrCodeRateLimited, Message: "Too many requests"}
	ErrInternalServer = &APIError{Status: http.StatusInternalServerError, Code: ErrCodeInternalServer, Message: "Internal server error"}
)

// kindStatus maps error kinds to HTTP statuses and codes
var kindStatus = map[errors.Kind]struct {
	status int
	code   string
}{
	errors.ErrNotFound:          {http.StatusNotFound, ErrCodeNotFound},
	errors.ErrValidation:        {http.StatusBadRequest, ErrCodeValidation},
	errors.ErrInvalidInput:      {http.StatusBadRequest, ErrCodeValidation},
	errors.ErrConflict:          {http.StatusConflict, ErrCodeConflict},
	errors.ErrUnauthorized:      {http.StatusForbidden, ErrCodeForbidden},
	errors.ErrInvalidState:      {http.StatusConflict, ErrCodeInvalidState},
	errors.ErrInsufficientFunds: {http.StatusPaymentRequired, ErrCodeInsufficientFunds},
	errors.ErrLimitExceeded:     {http.StatusUnprocessableEntity, ErrCodeLimitExceeded},
	errors.ErrAlreadyPaid:       {http.StatusConflict, ErrCodeAlreadyPaid},
	errors.ErrNotOwner:          {http.StatusForbidden, ErrCodeNotOwner},
}

// NewAPIError creates a new API error with custom message and code
func NewAPIError(status int, code, message string) *APIError {
	return &APIError{Status: status, Code: code, Message: message}
}

// BadRequest creates a 400 error with custom message
func BadRequest(message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: ErrCodeBadRequest, Message: message}
}

// Unauthorized creates a 401 error with custom message
func Unauthorized(message string) *APIError {
	return &APIError{Status: http.StatusUnauthorized, Code: ErrCodeUnauthorized, Message: message}
}

// NotFound creates a 404 error with custom message
func NotFound(message string) *APIError {
	return &APIError{Status: http.StatusNotFound, Code: ErrCodeNotFound, Message: message}
}

// Conflict creates a 409 error with custom message
func Conflict(message string) *APIError {
	return &APIError{Status: http.StatusConflict, Code: ErrCodeConflict, Message: message}
}

// InternalError creates a 500 error, logs the original error
func InternalError(err error) *APIError {
	log.Printf("Internal error: %v", err)
	return &APIError{Status: http.StatusInternalServerError, Code: ErrCodeInternalServer, Message: "Internal server error"}
}

// respondJSON writes a JSON response with the given status code
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondOK writes a 200 OK JSON response
func respondOK(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusOK, data)
}

// respondCreated writes a 201 Created JSON response
func respondCreated(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusCreated, data)
}

// respondSuccess writes a 200 OK with a message
func respondSuccess(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusOK, map[string]string{"message": message})
}

// respondError writes an error response
func respondError(w http.ResponseWriter, err error) {
	if apiErr, ok := err.(*APIError); ok {
		respondJSON(w, apiErr.Status, apiErr)
		return
	}
	// Convert service errors to appropriate API errors
	apiErr := ToAPIError(err)
	respondJSON(w, apiErr.Status, apiErr)
}

// decodeJSON decodes JSON from request body into the target
func decodeJSON(r *http.Request, target interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		if err == io.EOF {
			return BadRequest("Request body is empty")
		}
		return BadRequest("Invalid JSON: " + err.Error())
	}
	return nil
}

// parseUintParam extracts and parses an unsigned integer URL parameter
func parseUintParam(r *http.Request, name string) (uint64, error) {
	param := chi.URLParam(r, name)
	if param == "" {
		return 0, BadRequest("Missing " + name + " parameter")
	}
	n, err := strconv.ParseUint(param, 10, 64)
	if err != nil {
		return 0, BadRequest("Invalid " + name + " parameter")
	}
	return n, nil
}

// parseUintQuery parses an optional unsigned integer query value
func parseUintQuery(r *http.Request, name string) (uint64, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, BadRequest("Invalid " + name + " query parameter")
	}
	return n, nil
}

// ToAPIError converts service errors to appropriate API errors
func ToAPIError(err error) *APIError {
	kind := errors.KindOf(err)
	mapped, ok := kindStatus[kind]
	if !ok {
		return InternalError(err)
	}

	apiErr := &APIError{Status: mapped.status, Code: mapped.code, Message: err.Error()}

	var appErr *errors.Error
	if stderrors.As(err, &appErr) {
		apiErr.Message = appErr.Message
	}
	var compErr *competition.Error
	if stderrors.As(err, &compErr) {
		apiErr.Reason = compErr.Code
	}
	return apiErr
}
