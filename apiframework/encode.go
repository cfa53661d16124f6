package apiframework

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
)

const maxRequestBody = 1 << 20

// Encode writes v as JSON with the given status.
func Encode[T any](w http.ResponseWriter, _ *http.Request, status int, v T) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// Decode reads a JSON body into a T. Unknown fields are rejected.
func Decode[T any](r *http.Request) (T, error) {
	var v T
	if r.Body == nil {
		return v, ErrEmptyRequestBody
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return v, ErrEmptyRequestBody
		}
		return v, fmt.Errorf("%w: decode json: %w", ErrUnprocessableEntity, err)
	}
	return v, nil
}

// Error writes err as a structured error body, choosing the status from the
// error chain and falling back to op.
func Error(w http.ResponseWriter, r *http.Request, err error, op Operation) error {
	status := mapErrorToStatus(op, err)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		apiErr = NewAPIError(err, "", "")
	}
	errorType, errorCode := apiErr.errorType, apiErr.errorCode
	if errorType == "" || errorCode == "" {
		errorType, errorCode = getErrorTypeAndCode(status)
	}

	var body errorBody
	body.Error.Message = err.Error()
	body.Error.Type = errorType
	body.Error.Code = errorCode
	if apiErr.param != "" {
		param := apiErr.param
		body.Error.Param = &param
	}

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	} else {
		slog.DebugContext(r.Context(), "request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	return Encode(w, r, status, body)
}

// GetPathParam returns the named path wildcard. description documents the
// parameter for readers of the route.
func GetPathParam(r *http.Request, name string, description string) string {
	_ = description
	return r.PathValue(name)
}

// GetQueryParam returns the named query value or defaultValue.
func GetQueryParam(r *http.Request, name, defaultValue, description string) string {
	_ = description
	if v := r.URL.Query().Get(name); v != "" {
		return v
	}
	return defaultValue
}

// RequiredQuery returns the named query value or a MissingParameter error.
func RequiredQuery(r *http.Request, name string) (string, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return "", MissingParameter(name, fmt.Sprintf("query parameter %q is required", name))
	}
	return v, nil
}

// ParseInt64 parses a path or query value as a numeric id.
func ParseInt64(param, value string) (int64, error) {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, InvalidParameterValue(param, fmt.Sprintf("%q must be an integer", param))
	}
	return n, nil
}
