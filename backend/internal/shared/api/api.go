package apicommon

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"redalert/backend/internal/shared/types"
	"redalert/backend/pkg/router"
	"redalert/backend/pkg/utils"
)

const (
	MaxBodySize     = 1048576 // 1MB
	MaxBodyText     = "1MB"
	RequestIDHeader = "X-Request-ID"
	APIKeyHeader    = "X-API-Key"
)

const (
	zeroUUID          = "00000000-0000-0000-0000-000000000000"
	internalErrorText = "Internal Server Error"
	tooLargeText      = "Request body too large (max " + MaxBodyText + ")"
)

// HandlerFunc is a HTTP handler that can return an error.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// NewError creates a simple error response.
func NewError(statusCode int, message string) *types.ErrorResponse {
	return &types.ErrorResponse{
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewValidationError creates a 400 with field-level details.
func NewValidationError(message string, fieldErrors map[string]string) *types.ErrorResponse {
	if message == "" {
		message = "Validation failed"
	}

	return &types.ErrorResponse{
		StatusCode: http.StatusBadRequest,
		Message:    message,
		Errors:     fieldErrors,
	}
}

// ErrorHandler renders *types.ErrorResponse errors as they are and hides
// everything else behind a logged 500.
func ErrorHandler(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}

		l := GetLogger(r.Context())

		var httpErr *types.ErrorResponse
		if !errors.As(err, &httpErr) {
			l.Error("internal error", utils.ErrAttr(err))

			httpErr = NewError(http.StatusInternalServerError, internalErrorText)
		}

		httpErr.RequestID = GetRequestID(r.Context())
		RespondJSON(w, r, httpErr.StatusCode, httpErr)
	}
}

// RespondJSON writes data as JSON with the given status. A nil data sends headers only.
// Encoding failures are logged since the status line is already on the wire.
func RespondJSON(w http.ResponseWriter, r *http.Request, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data == nil {
		return
	}

	if err := utils.ToJSONStream(w, data); err != nil {
		GetLogger(r.Context()).Error("failed to encode JSON response", utils.ErrAttr(err))
	}
}

// DecodeJSON decodes the request body into T. Decoder failures come back as 4xx responses.
//
//nolint:ireturn // Generic functions must return type parameter T
func DecodeJSON[T any](r *http.Request) (T, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxBodySize)

	res, err := utils.FromJSONStream[T](r.Body)
	if err != nil {
		var zero T
		return zero, decodeError(err)
	}

	return res, nil
}

func decodeError(err error) *types.ErrorResponse {
	var (
		syntaxError        *json.SyntaxError
		unmarshalTypeError *json.UnmarshalTypeError
		maxBytesError      *http.MaxBytesError
		extraDataError     *utils.ExtraDataAfterJSONError
	)

	switch {
	case errors.As(err, &maxBytesError):
		return NewError(http.StatusRequestEntityTooLarge, tooLargeText)
	case errors.As(err, &syntaxError):
		return NewError(http.StatusBadRequest, fmt.Sprintf("Invalid JSON syntax at position %d", syntaxError.Offset))
	case errors.As(err, &unmarshalTypeError):
		return NewError(http.StatusBadRequest, fmt.Sprintf("Invalid type for field '%s'", unmarshalTypeError.Field))
	case errors.Is(err, io.EOF):
		return NewError(http.StatusBadRequest, "Request body is empty")
	case errors.Is(err, io.ErrUnexpectedEOF):
		return NewError(http.StatusBadRequest, "Malformed JSON")
	case errors.As(err, &extraDataError):
		return NewError(http.StatusBadRequest, "Request body contains multiple JSON objects")
	case strings.HasPrefix(err.Error(), "json: unknown field"):
		return NewError(http.StatusBadRequest, err.Error())
	default:
		return NewError(http.StatusBadRequest, "Invalid JSON payload")
	}
}

// APIKeyMiddleware rejects requests whose X-API-Key does not match key.
// An empty key disables the protected routes entirely.
func APIKeyMiddleware(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return ErrorHandler(func(w http.ResponseWriter, r *http.Request) error {
			if key == "" {
				return NewError(http.StatusServiceUnavailable, "Responder access is not configured")
			}

			got := r.Header.Get(APIKeyHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				GetLogger(r.Context()).Warn("rejected API key")
				return NewError(http.StatusUnauthorized, "Invalid API key")
			}

			next.ServeHTTP(w, r)

			return nil
		})
	}
}

// ErrorSpec documents an error response with a single example.
func ErrorSpec(description, message string) router.ResponseSpec {
	return router.ResponseSpec{
		Description: description,
		Type:        types.ErrorResponse{},
		Examples: map[string]any{
			description: types.ErrorResponse{
				RequestID: zeroUUID,
				Message:   message,
			},
		},
	}
}

// GenerateResponses adds the 413 and 500 responses every route can produce.
func GenerateResponses(responses map[int]router.ResponseSpec) map[int]router.ResponseSpec {
	defaults := map[int]router.ResponseSpec{
		http.StatusRequestEntityTooLarge: ErrorSpec("Request entity too large", tooLargeText),
		http.StatusInternalServerError:   ErrorSpec(internalErrorText, internalErrorText),
	}

	for code, spec := range defaults {
		if _, ok := responses[code]; !ok {
			responses[code] = spec
		}
	}

	return responses
}
