package shared

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"

	"github.com/qaforge/qaforge/internal/redact"
)

// Business result codes carried in the envelope's code field. They are stable
// API contract values and independent of HTTP status codes.
const (
	CodeOK            = 0
	CodeGeneric       = 1000
	CodeNotFound      = 1001
	CodeValidation    = 1002
	CodeForbidden     = 1003
	CodeUnauthorized  = 1004
	CodeBadCredential = 1005
	CodeUpstream      = 2000
)

// Envelope is the uniform JSON wrapper returned by every API response.
// Success responses carry code 0; failures carry one of the stable business
// codes above. List responses additionally carry Pagination.
type Envelope struct {
	Code       int         `json:"code"`
	Data       interface{} `json:"data"`
	Message    string      `json:"message"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination describes the page window of a list response.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes the pagination block for a list response.
// TotalPages is ceil(total / pageSize).
func NewPagination(page, pageSize, total int) *Pagination {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(pageSize)))
	}
	return &Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	}
}

// writeJSON writes the envelope with the given HTTP status.
func writeJSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// RespondOK writes a 200 success envelope.
func RespondOK(w http.ResponseWriter, r *http.Request, data interface{}, message string) {
	writeJSON(w, http.StatusOK, Envelope{Code: CodeOK, Data: data, Message: message})
}

// RespondCreated writes a 201 success envelope.
func RespondCreated(w http.ResponseWriter, r *http.Request, data interface{}, message string) {
	writeJSON(w, http.StatusCreated, Envelope{Code: CodeOK, Data: data, Message: message})
}

// RespondList writes a 200 success envelope with a pagination block.
func RespondList(w http.ResponseWriter, r *http.Request, data interface{}, p *Pagination, message string) {
	writeJSON(w, http.StatusOK, Envelope{Code: CodeOK, Data: data, Message: message, Pagination: p})
}

// RespondConflict writes a 409 failure envelope that, unlike other failures,
// carries data: idempotent create endpoints surface the already-existing
// resource in it.
func RespondConflict(w http.ResponseWriter, r *http.Request, code int, data interface{}, message string) {
	writeJSON(w, http.StatusConflict, Envelope{Code: code, Data: data, Message: message})
}

// RespondError writes a failure envelope with the given HTTP status and
// business code. Data is always null on failure.
func RespondError(w http.ResponseWriter, r *http.Request, status, code int, message string) {
	traceID := GetTraceID(r.Context())

	slog.Debug("sending error response",
		"status_code", status,
		"code", code,
		"message", message,
		"trace_id", traceID,
		"path", r.URL.Path,
		"method", r.Method)

	writeJSON(w, status, Envelope{Code: code, Data: nil, Message: message})
}

// RespondErrorAndLog writes a failure envelope and logs the underlying error
// server-side. The raw error never reaches the client; the redacted form is
// logged at ERROR level for 5xx and DEBUG otherwise.
func RespondErrorAndLog(w http.ResponseWriter, r *http.Request, status, code int, userMessage string, err error) {
	traceID := GetTraceID(r.Context())

	logAttrs := []slog.Attr{
		slog.String("trace_id", traceID),
		slog.String("path", r.URL.Path),
		slog.String("method", r.Method),
		slog.Int("status_code", status),
		slog.Int("code", code),
		slog.String("user_message", userMessage),
	}
	if err != nil {
		logAttrs = append(logAttrs,
			slog.String("error", redact.Error(err)),
			slog.String("error_type", fmt.Sprintf("%T", err)))
	}

	logLevel := slog.LevelDebug
	if status >= http.StatusInternalServerError {
		logLevel = slog.LevelError
	}
	slog.LogAttrs(r.Context(), logLevel, "API error response", logAttrs...)

	writeJSON(w, status, Envelope{Code: code, Data: nil, Message: userMessage})
}
