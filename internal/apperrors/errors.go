package apperrors

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the JSON envelope for failed requests.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failure. Retryable marks backend or transient
// failures the caller may repeat unchanged.
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Retryable bool   `json:"retryable,omitempty"`
}

// SuccessResponse is the JSON envelope for successful requests.
type SuccessResponse struct {
	RequestID string      `json:"request_id"`
	Data      interface{} `json:"data"`
}

// WriteError writes a non-retryable error envelope.
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	writeError(w, r, statusCode, ErrorDetail{Code: code, Message: message})
}

func writeError(w http.ResponseWriter, r *http.Request, statusCode int, detail ErrorDetail) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	detail.RequestID = GetRequestID(r.Context())
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: detail})
}

// WriteSuccess writes data in the success envelope.
func WriteSuccess(w http.ResponseWriter, r *http.Request, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	_ = json.NewEncoder(w).Encode(SuccessResponse{
		RequestID: GetRequestID(r.Context()),
		Data:      data,
	})
}

// WriteServiceUnavailable writes a retryable 503.
func WriteServiceUnavailable(w http.ResponseWriter, r *http.Request, message string) {
	writeError(w, r, http.StatusServiceUnavailable, ErrorDetail{
		Code:      "service_unavailable",
		Message:   message,
		Retryable: true,
	})
}

// WriteInternalError writes a retryable 500. Store and network failures end up here.
func WriteInternalError(w http.ResponseWriter, r *http.Request, message string) {
	writeError(w, r, http.StatusInternalServerError, ErrorDetail{
		Code:      "internal_error",
		Message:   message,
		Retryable: true,
	})
}

func WriteBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusBadRequest, "bad_request", message)
}

func WriteUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusUnauthorized, "unauthorized", message)
}

func WriteForbidden(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusForbidden, "forbidden", message)
}

func WriteNotFound(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusNotFound, "not_found", message)
}

func WriteConflict(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusConflict, "conflict", message)
}

// WriteUnprocessable is used when a well-formed request refers to data that
// cannot be used, such as a material type missing from inventory.
func WriteUnprocessable(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusUnprocessableEntity, "unprocessable", message)
}

func WriteTooManyRequests(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusTooManyRequests, "too_many_requests", message)
}
