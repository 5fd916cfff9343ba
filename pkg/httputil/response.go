package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/donorkit/styleforge/internal/domain"
)

// Response represents a standard API response
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// Error represents an API error
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error codes for handler-level failures
const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeNotFound    = "NOT_FOUND"
	CodeRateLimited = "RATE_LIMITED"
	CodeInternal    = "INTERNAL_ERROR"
)

// JSON writes a JSON response wrapped in the standard envelope
func JSON(w http.ResponseWriter, status int, data any) {
	Raw(w, status, Response{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

// Raw writes v as the JSON body without the envelope
func Raw(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// JSONError writes a JSON error response
func JSONError(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	Raw(w, status, Response{
		Success: false,
		Error: &Error{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// ErrorFromDomain converts a domain error to HTTP response
func ErrorFromDomain(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrAnalysisNotFound) {
		JSONError(w, http.StatusNotFound, CodeNotFound, "No cached analysis found for this URL", nil)
		return
	}

	var classified *domain.ClassifiedError
	if errors.As(err, &classified) {
		JSONError(w, classified.HTTPStatus(), string(classified.Kind), classified.Message, map[string]any{
			"suggestions": classified.Suggestions(),
		})
		return
	}

	// Default to internal error
	JSONError(w, http.StatusInternalServerError, CodeInternal, "Internal server error", nil)
}

// ErrBodyRequired is returned by DecodeJSON for an empty request body
var ErrBodyRequired = errors.New("request body is required")

// DecodeJSON decodes JSON from request body. Unknown fields are ignored.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return ErrBodyRequired
	}

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid JSON: " + err.Error())
	}

	return nil
}

// Page holds limit/offset paging parameters
type Page struct {
	Limit  int
	Offset int
}

// GetPage extracts limit and offset from query params
func GetPage(r *http.Request, defaultLimit, maxLimit int) Page {
	page := Page{Limit: defaultLimit}

	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			page.Limit = parsed
		}
	}

	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			page.Offset = parsed
		}
	}

	if page.Limit > maxLimit {
		page.Limit = maxLimit
	}

	return page
}
