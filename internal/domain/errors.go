package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorKind categorizes an analysis failure
type ErrorKind string

const (
	// Network and access errors
	KindNetwork      ErrorKind = "NETWORK_ERROR"
	KindTimeout      ErrorKind = "TIMEOUT"
	KindAccessDenied ErrorKind = "ACCESS_DENIED"
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindInvalidURL   ErrorKind = "INVALID_URL"

	// Content and parsing errors
	KindNoContent ErrorKind = "NO_CONTENT"
	KindParsing   ErrorKind = "PARSING_ERROR"
	KindNoStyles  ErrorKind = "NO_STYLES"

	// Technical errors
	KindBrowser  ErrorKind = "BROWSER_ERROR"
	KindMemory   ErrorKind = "MEMORY_ERROR"
	KindSecurity ErrorKind = "SECURITY_ERROR"

	// Service errors
	KindRateLimited        ErrorKind = "RATE_LIMITED"
	KindServiceUnavailable ErrorKind = "SERVICE_UNAVAILABLE"
	KindUnknown            ErrorKind = "UNKNOWN"
)

// ErrorInfo is the user-facing description of an error kind
type ErrorInfo struct {
	Message     string
	Suggestions []string
	HTTPStatus  int
}

var errorCatalog = map[ErrorKind]ErrorInfo{
	KindNetwork: {
		Message: "Unable to connect to the website. Please check the URL and try again.",
		Suggestions: []string{
			"Verify the website URL is correct",
			"Check if the website is online",
			"Try again in a few moments",
		},
		HTTPStatus: http.StatusInternalServerError,
	},
	KindTimeout: {
		Message: "The website took too long to respond. This might be a slow site.",
		Suggestions: []string{
			"Try a different page from the same website",
			"Wait a moment and try again",
			"Check if the website is working in your browser",
		},
		HTTPStatus: http.StatusRequestTimeout,
	},
	KindAccessDenied: {
		Message: "The website blocked our analysis. Some sites restrict automated access.",
		Suggestions: []string{
			"Try the main homepage URL instead of a specific page",
			"Check if the site has a robots.txt that might block crawlers",
			"Contact support if this is your own website",
		},
		HTTPStatus: http.StatusForbidden,
	},
	KindNotFound: {
		Message: "The webpage was not found. Please check the URL.",
		Suggestions: []string{
			"Verify the URL is spelled correctly",
			"Try the main website homepage",
			"Check if the page exists in your browser",
		},
		HTTPStatus: http.StatusNotFound,
	},
	KindInvalidURL: {
		Message: "The URL format is invalid. Please enter a valid website URL.",
		Suggestions: []string{
			"Include http:// or https://",
			"Use the full website address",
			"Example: https://yoursite.com",
		},
		HTTPStatus: http.StatusBadRequest,
	},
	KindNoContent: {
		Message: "The website appears to be empty or has no visible content to analyze.",
		Suggestions: []string{
			"Try a different page with more content",
			"Make sure the website has loaded completely",
			"Check if the site requires JavaScript to load content",
		},
		HTTPStatus: http.StatusInternalServerError,
	},
	KindParsing: {
		Message: "We had trouble analyzing the website content. The site may use unusual formatting.",
		Suggestions: []string{
			"Try analyzing the main homepage",
			"Check if the site loads properly in your browser",
			"Some sites with heavy JavaScript may not work well",
		},
		HTTPStatus: http.StatusInternalServerError,
	},
	KindNoStyles: {
		Message: "We couldn't find any useful colors or fonts to extract from this website.",
		Suggestions: []string{
			"Try a page with more visual content",
			"Make sure the site has loaded completely",
			"Some minimal sites may not have extractable styles",
		},
		HTTPStatus: http.StatusInternalServerError,
	},
	KindBrowser: {
		Message: "Our analysis tool encountered a technical issue. Please try again.",
		Suggestions: []string{
			"Wait a moment and try again",
			"Try a different URL from the same site",
			"Contact support if this keeps happening",
		},
		HTTPStatus: http.StatusInternalServerError,
	},
	KindMemory: {
		Message: "The website is too complex to analyze right now. Please try a simpler page.",
		Suggestions: []string{
			"Try the main homepage instead",
			"Try a page with less content",
			"Contact support for help with complex sites",
		},
		HTTPStatus: http.StatusInternalServerError,
	},
	KindSecurity: {
		Message: "Security restrictions prevented us from analyzing this website.",
		Suggestions: []string{
			"Make sure this is a public website",
			"Try the main homepage URL",
			"Some secure sites may not be analyzable",
		},
		HTTPStatus: http.StatusInternalServerError,
	},
	KindRateLimited: {
		Message: "Too many analysis requests. Please wait a moment before trying again.",
		Suggestions: []string{
			"Wait 15 minutes before your next analysis",
			"Consider analyzing fewer websites",
			"Contact support for higher limits",
		},
		HTTPStatus: http.StatusTooManyRequests,
	},
	KindServiceUnavailable: {
		Message: "Our analysis service is temporarily unavailable. Please try again later.",
		Suggestions: []string{
			"Try again in a few minutes",
			"Check our status page for updates",
			"Contact support if the issue persists",
		},
		HTTPStatus: http.StatusServiceUnavailable,
	},
	KindUnknown: {
		Message: "An unexpected error occurred during analysis. Please try again.",
		Suggestions: []string{
			"Try a different website URL",
			"Wait a moment and retry",
			"Contact support if this keeps happening",
		},
		HTTPStatus: http.StatusInternalServerError,
	},
}

// Info returns the catalog entry for the kind, falling back to UNKNOWN
func (k ErrorKind) Info() ErrorInfo {
	if info, ok := errorCatalog[k]; ok {
		return info
	}
	return errorCatalog[KindUnknown]
}

// Retryable reports whether retrying an operation that failed with this kind can help
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindInvalidURL, KindAccessDenied, KindNotFound, KindRateLimited:
		return false
	default:
		return true
	}
}

// ClassifiedError is an analysis failure mapped to one of the fixed error kinds
type ClassifiedError struct {
	Kind      ErrorKind `json:"code"`
	Message   string    `json:"message"`
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`

	// Original error (for error wrapping)
	Cause error `json:"-"`
}

// NewClassifiedError creates an error of the given kind. An empty message uses the catalog text.
func NewClassifiedError(kind ErrorKind, url, message string) *ClassifiedError {
	if message == "" {
		message = kind.Info().Message
	}
	return &ClassifiedError{
		Kind:      kind,
		Message:   message,
		URL:       url,
		Timestamp: time.Now().UTC(),
	}
}

// Error implements the error interface
func (e *ClassifiedError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error
func (e *ClassifiedError) Unwrap() error {
	return e.Cause
}

// Is matches another ClassifiedError of the same kind
func (e *ClassifiedError) Is(target error) bool {
	t, ok := target.(*ClassifiedError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithCause adds the underlying cause
func (e *ClassifiedError) WithCause(err error) *ClassifiedError {
	e.Cause = err
	return e
}

// Suggestions returns the remediation hints for the error's kind
func (e *ClassifiedError) Suggestions() []string {
	return e.Kind.Info().Suggestions
}

// HTTPStatus returns the status code the API layer reports for this error
func (e *ClassifiedError) HTTPStatus() int {
	return e.Kind.Info().HTTPStatus
}

// classifier pairs a kind with the message fragments that identify it
type classifier struct {
	kind    ErrorKind
	needles []string
}

// classifiers is evaluated in order; the first match wins
var classifiers = []classifier{
	{KindNetwork, []string{"ENOTFOUND", "ECONNREFUSED", "net::ERR_"}},
	{KindTimeout, []string{"timeout", "Navigation timeout"}},
	{KindAccessDenied, []string{"403", "blocked", "Access denied"}},
	{KindNotFound, []string{"404", "Not found"}},
	{KindInvalidURL, []string{"Invalid URL", "ERR_INVALID_URL"}},
	{KindNoContent, []string{"No content", "empty"}},
	{KindBrowser, []string{"Browser", "Chromium", "Page crashed"}},
	{KindMemory, []string{"memory", "ENOMEM"}},
	{KindSecurity, []string{"security", "CORS", "SSL"}},
	{KindRateLimited, []string{"rate limit", "429"}},
}

// KindOf returns the kind whose fragments match the message, or UNKNOWN
func KindOf(message string) ErrorKind {
	lower := strings.ToLower(message)
	for _, c := range classifiers {
		for _, needle := range c.needles {
			if strings.Contains(lower, strings.ToLower(needle)) {
				return c.kind
			}
		}
	}
	return KindUnknown
}

// Classify maps an arbitrary error to a ClassifiedError.
// Errors that already carry a classification are returned unchanged.
func Classify(err error, url string) *ClassifiedError {
	if err == nil {
		return nil
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	return NewClassifiedError(KindOf(err.Error()), url, "").WithCause(err)
}

// IsRetryable reports whether err is worth retrying.
// Unclassified errors are retried.
func IsRetryable(err error) bool {
	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified.Kind.Retryable()
	}
	return true
}

// ErrorResponse is the API body describing a failed analysis request
type ErrorResponse struct {
	Error        string     `json:"error"`
	Code         ErrorKind  `json:"code"`
	URL          string     `json:"url"`
	Timestamp    time.Time  `json:"timestamp"`
	Suggestions  []string   `json:"suggestions"`
	UserFriendly bool       `json:"userFriendly"`
	Debug        *DebugInfo `json:"debug,omitempty"`
}

// DebugInfo carries the raw error in non-production responses
type DebugInfo struct {
	OriginalMessage string `json:"originalMessage"`
	Name            string `json:"name"`
}

// NewErrorResponse builds the API error body for err
func NewErrorResponse(err error, url string, debug bool) ErrorResponse {
	var classified *ClassifiedError
	userFriendly := errors.As(err, &classified)

	kind := KindUnknown
	message := KindUnknown.Info().Message
	if userFriendly {
		kind = classified.Kind
		message = classified.Message
	}

	resp := ErrorResponse{
		Error:        message,
		Code:         kind,
		URL:          url,
		Timestamp:    time.Now().UTC(),
		Suggestions:  kind.Info().Suggestions,
		UserFriendly: userFriendly,
	}

	if debug && err != nil {
		resp.Debug = &DebugInfo{
			OriginalMessage: err.Error(),
			Name:            fmt.Sprintf("%T", err),
		}
	}

	return resp
}

// ErrAnalysisNotFound is returned when no stored analysis matches a lookup
var ErrAnalysisNotFound = errors.New("analysis not found")
