package apiframework

import (
	"errors"
	"net/http"

	"github.com/contenox/pkgbot/libauth"
	libdb "github.com/contenox/pkgbot/libdbexec"
)

var (
	ErrInvalidParameterValue = errors.New("serverops: invalid parameter value type")
	ErrBadPathValue          = errors.New("serverops: bad path value")
	ErrBadQueryValue         = errors.New("serverops: bad query value")
	ErrMissingParameter      = errors.New("serverops: missing parameter")
	ErrEmptyRequest          = errors.New("serverops: empty request")
	ErrEmptyRequestBody      = errors.New("serverops: empty request body")

	ErrBadRequest           = errors.New("serverops: bad request")
	ErrUnprocessableEntity  = errors.New("serverops: unprocessable entity")
	ErrNotFound             = errors.New("serverops: not found")
	ErrConflict             = errors.New("serverops: conflict")
	ErrForbidden            = errors.New("serverops: forbidden")
	ErrInternalServerError  = errors.New("serverops: internal server error")
	ErrUnsupportedMediaType = errors.New("serverops: unsupported media type")
	ErrUnauthorized         = errors.New("serverops: unauthorized")
)

var errorMappings = map[error]struct {
	errorType string
	errorCode string
}{
	ErrInvalidParameterValue: {"invalid_request_error", "invalid_parameter_value"},
	ErrBadPathValue:          {"invalid_request_error", "bad_path_value"},
	ErrBadQueryValue:         {"invalid_request_error", "bad_query_value"},
	ErrMissingParameter:      {"invalid_request_error", "missing_parameter"},
	ErrEmptyRequest:          {"invalid_request_error", "empty_request"},
	ErrEmptyRequestBody:      {"invalid_request_error", "empty_request_body"},
	ErrBadRequest:            {"invalid_request_error", "bad_request"},
	ErrUnprocessableEntity:   {"invalid_request_error", "unprocessable_entity"},
	ErrNotFound:              {"invalid_request_error", "not_found"},
	ErrConflict:              {"invalid_request_error", "conflict"},
	ErrForbidden:             {"authorization_error", "forbidden"},
	ErrInternalServerError:   {"api_error", "internal_server_error"},
	ErrUnsupportedMediaType:  {"invalid_request_error", "unsupported_media_type"},
	ErrUnauthorized:          {"authentication_error", "unauthorized"},

	libdb.ErrNotFound:           {"invalid_request_error", "not_found"},
	libdb.ErrUniqueViolation:    {"invalid_request_error", "conflict"},
	libauth.ErrInsufficientRole: {"authorization_error", "forbidden"},
}

func getErrorMapping(err error) (string, string) {
	for standardErr, mapping := range errorMappings {
		if errors.Is(err, standardErr) {
			return mapping.errorType, mapping.errorCode
		}
	}
	return "", ""
}

func getErrorTypeAndCode(status int) (string, string) {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request_error", "bad_request"
	case http.StatusUnauthorized:
		return "authentication_error", "unauthorized"
	case http.StatusForbidden:
		return "authorization_error", "forbidden"
	case http.StatusNotFound:
		return "invalid_request_error", "not_found"
	case http.StatusConflict:
		return "invalid_request_error", "conflict"
	case http.StatusRequestEntityTooLarge:
		return "invalid_request_error", "request_too_large"
	case http.StatusUnsupportedMediaType:
		return "invalid_request_error", "unsupported_media"
	case http.StatusUnprocessableEntity:
		return "invalid_request_error", "unprocessable_entity"
	case http.StatusInternalServerError:
		return "api_error", "internal_error"
	default:
		return "api_error", "unknown_error"
	}
}

// Operation tells Error which fallback status to use for errors that carry
// no more specific meaning.
type Operation uint16

const (
	CreateOperation Operation = iota
	GetOperation
	UpdateOperation
	DeleteOperation
	ListOperation
	AuthorizeOperation
	ServerOperation
	ExecuteOperation
)

func mapErrorToStatus(op Operation, err error) int {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge
	}
	if errors.Is(err, libauth.ErrInsufficientRole) {
		return http.StatusForbidden
	}
	if errors.Is(err, libauth.ErrNotAuthorized) {
		return http.StatusUnauthorized
	}
	if op == AuthorizeOperation {
		return http.StatusForbidden
	}
	if errors.Is(err, libauth.ErrTokenExpired) || errors.Is(err, libauth.ErrTokenMissing) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, libauth.ErrIssuedAtMissing) ||
		errors.Is(err, libauth.ErrIssuedAtInFuture) ||
		errors.Is(err, libauth.ErrIdentityMissing) ||
		errors.Is(err, libauth.ErrInvalidTokenClaims) ||
		errors.Is(err, libauth.ErrUnexpectedSigningMethod) ||
		errors.Is(err, libauth.ErrTokenParsingFailed) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, libauth.ErrTokenSigningFailed) {
		return http.StatusInternalServerError
	}

	switch {
	case errors.Is(err, ErrEmptyRequest),
		errors.Is(err, ErrEmptyRequestBody),
		errors.Is(err, ErrBadRequest),
		errors.Is(err, ErrInvalidParameterValue),
		errors.Is(err, ErrBadPathValue),
		errors.Is(err, ErrBadQueryValue),
		errors.Is(err, ErrMissingParameter):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound), errors.Is(err, libdb.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrInternalServerError):
		return http.StatusInternalServerError
	case errors.Is(err, ErrUnprocessableEntity):
		return http.StatusUnprocessableEntity
	}

	if errors.Is(err, libdb.ErrUniqueViolation) ||
		errors.Is(err, libdb.ErrForeignKeyViolation) ||
		errors.Is(err, libdb.ErrNotNullViolation) ||
		errors.Is(err, libdb.ErrCheckViolation) ||
		errors.Is(err, libdb.ErrConstraintViolation) {
		return http.StatusConflict
	}
	if errors.Is(err, libdb.ErrMaxRowsReached) {
		return http.StatusTooManyRequests
	}
	if errors.Is(err, libdb.ErrDataTruncation) ||
		errors.Is(err, libdb.ErrNumericOutOfRange) ||
		errors.Is(err, libdb.ErrInvalidInputSyntax) {
		return http.StatusBadRequest
	}
	if errors.Is(err, libdb.ErrDeadlockDetected) ||
		errors.Is(err, libdb.ErrSerializationFailure) ||
		errors.Is(err, libdb.ErrLockNotAvailable) ||
		errors.Is(err, libdb.ErrQueryCanceled) {
		return http.StatusConflict
	}

	switch op {
	case CreateOperation, UpdateOperation:
		return http.StatusUnprocessableEntity
	case GetOperation, ListOperation, DeleteOperation:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// NewAPIError creates an APIError. An empty message falls back to err's text.
func NewAPIError(err error, message, param string) *APIError {
	errorType, errorCode := getErrorMapping(err)
	if message == "" {
		message = err.Error()
	}
	return &APIError{
		err:       err,
		message:   message,
		param:     param,
		errorType: errorType,
		errorCode: errorCode,
	}
}

func firstOr(message []string, fallback string) string {
	if len(message) > 0 && message[0] != "" {
		return message[0]
	}
	return fallback
}

func InvalidParameterValue(param string, message ...string) *APIError {
	return NewAPIError(ErrInvalidParameterValue, firstOr(message, "Invalid parameter value"), param)
}

func MissingParameter(param string, message ...string) *APIError {
	return NewAPIError(ErrMissingParameter, firstOr(message, "Missing required parameter"), param)
}

func BadPathValue(param string, message ...string) *APIError {
	return NewAPIError(ErrBadPathValue, firstOr(message, "Bad path value"), param)
}

func Unauthorized(message ...string) *APIError {
	return NewAPIError(ErrUnauthorized, firstOr(message, "Unauthorized access"), "")
}

func Forbidden(message ...string) *APIError {
	return NewAPIError(ErrForbidden, firstOr(message, "Forbidden access"), "")
}

func NotFound(message ...string) *APIError {
	return NewAPIError(ErrNotFound, firstOr(message, "Resource not found"), "")
}

func BadRequest(message ...string) *APIError {
	return NewAPIError(ErrBadRequest, firstOr(message, "Bad request"), "")
}

func Conflict(message ...string) *APIError {
	return NewAPIError(ErrConflict, firstOr(message, "Conflict"), "")
}

func InternalServerError(message ...string) *APIError {
	return NewAPIError(ErrInternalServerError, firstOr(message, "Internal server error"), "")
}
