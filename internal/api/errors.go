package api

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/playlore/playlore-server/internal/errors"
)

// CodeRateLimited is reported for 429 responses. It has no domain counterpart.
const CodeRateLimited = "RATE_LIMITED"

// APIError is the huma.StatusError every failed operation returns. Its fields are
// flattened into APIErrorEnvelope by EnvelopeTransformer.
type APIError struct { //nolint:revive // name mirrors APIEnvelope
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

func (e *APIError) Error() string { return e.Message }

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int { return e.status }

// ContentType implements huma.ContentTypeFilter.
func (e *APIError) ContentType(string) string { return "application/json" }

func fromDomainError(err *domainerrors.Error) *APIError {
	return &APIError{
		status:  err.HTTPStatus(),
		Code:    string(err.Code),
		Message: err.Message,
		Details: err.Details,
	}
}

// RegisterErrorHandler replaces huma.NewError so that domain errors keep their code and
// huma's own failures (schema validation, unknown routes) get one derived from the status.
// It must run before any operation is served.
func RegisterErrorHandler() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		var details []string
		for _, err := range errs {
			var domainErr *domainerrors.Error
			if errors.As(err, &domainErr) {
				return fromDomainError(domainErr)
			}
			if err != nil {
				details = append(details, err.Error())
			}
		}

		apiErr := &APIError{status: status, Code: statusToCode(status), Message: message}
		if len(details) > 0 {
			apiErr.Details = details
		}
		return apiErr
	}
}

var codeByStatus = map[int]string{
	http.StatusBadRequest:          string(domainerrors.CodeValidation),
	http.StatusUnprocessableEntity: string(domainerrors.CodeValidation),
	http.StatusNotFound:            string(domainerrors.CodeNotFound),
	http.StatusConflict:            string(domainerrors.CodeConflict),
	http.StatusTooManyRequests:     CodeRateLimited,
	http.StatusBadGateway:          string(domainerrors.CodeSyncTransport),
}

func statusToCode(status int) string {
	if code, ok := codeByStatus[status]; ok {
		return code
	}
	return string(domainerrors.CodeInternal)
}

// handlerError converts a service error into the error huma writes. Domain errors keep
// their code; anything else becomes an opaque 500. Server-side failures are logged.
func (s *Server) handlerError(op string, err error) error {
	var domainErr *domainerrors.Error
	if !errors.As(err, &domainErr) {
		s.logger.Error("request failed", "op", op, "error", err)
		return huma.Error500InternalServerError("internal server error")
	}
	if domainErr.HTTPStatus() >= http.StatusInternalServerError {
		s.logger.Error("request failed", "op", op, "code", domainErr.Code, "error", err)
	}
	return huma.NewError(domainErr.HTTPStatus(), domainErr.Message, domainErr)
}
