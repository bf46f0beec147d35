package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/maildispatch/pkg/mailer"
)

// Error codes returned in the "code" field of error responses.
const (
	CodeInvalidRequest    = "invalid_request"
	CodeValidationFailed  = "validation_failed"
	CodeTemplateNotFound  = "template_not_found"
	CodeRenderFailed      = "render_failed"
	CodeVendorUnavailable = "vendor_unavailable"
	CodeVendorRejected    = "vendor_rejected"
	CodeInternal          = "internal_error"
)

// HTTPError is an error with everything needed to render the response.
type HTTPError struct {
	// Err is the underlying error, logged but never exposed.
	Err error `json:"-"`

	// Message is the client-facing message.
	Message string `json:"message"`

	// ErrorCode is a stable machine-readable code.
	ErrorCode string `json:"code"`

	// RequestID is the request tracking ID.
	RequestID string `json:"request_id,omitempty"`

	// Code is the HTTP status code.
	Code int `json:"-"`
}

func (e *HTTPError) Error() string {
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// errorResponse is the JSON envelope for failures.
type errorResponse struct {
	Error *HTTPError `json:"error"`
}

// badRequest wraps a request decoding failure.
func badRequest(err error) *HTTPError {
	return &HTTPError{
		Err:       err,
		Code:      http.StatusBadRequest,
		ErrorCode: CodeInvalidRequest,
		Message:   err.Error(),
	}
}

// toHTTPError maps dispatch errors onto status codes:
//   - validation: 422
//   - template not found: 404
//   - other template failures: 500
//   - temporary vendor failure or timeout: 503
//   - permanent vendor failure: 502
func toHTTPError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	e := &HTTPError{Err: err, Message: err.Error()}

	switch {
	case errors.Is(err, mailer.ErrValidation):
		e.Code, e.ErrorCode = http.StatusUnprocessableEntity, CodeValidationFailed
	case errors.Is(err, mailer.ErrTemplateNotFound):
		e.Code, e.ErrorCode = http.StatusNotFound, CodeTemplateNotFound
	case errors.Is(err, mailer.ErrLayoutNotFound),
		errors.Is(err, mailer.ErrRenderFailed),
		errors.Is(err, mailer.ErrInvalidFrontmatter):
		e.Code, e.ErrorCode = http.StatusInternalServerError, CodeRenderFailed
	case errors.Is(err, mailer.ErrSendFailed) && mailer.IsTemporary(err):
		e.Code, e.ErrorCode = http.StatusServiceUnavailable, CodeVendorUnavailable
	case errors.Is(err, mailer.ErrSendFailed):
		e.Code, e.ErrorCode = http.StatusBadGateway, CodeVendorRejected
	default:
		e.Code, e.ErrorCode = http.StatusInternalServerError, CodeInternal
		e.Message = http.StatusText(http.StatusInternalServerError)
	}

	return e
}
