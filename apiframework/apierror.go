package apiframework

import "fmt"

// APIError carries the client-facing message, parameter and error code that
// Error writes for a failed request.
type APIError struct {
	err       error
	message   string
	param     string
	errorType string
	errorCode string
}

func (e *APIError) Error() string {
	if e.param != "" {
		return fmt.Sprintf("%s (param: %s)", e.message, e.param)
	}
	return e.message
}

func (e *APIError) Unwrap() error { return e.err }

type errorBody struct {
	Error struct {
		Message string  `json:"message"`
		Type    string  `json:"type"`
		Param   *string `json:"param"`
		Code    string  `json:"code"`
	} `json:"error"`
}
