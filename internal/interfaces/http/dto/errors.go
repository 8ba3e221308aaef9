package dto

import "net/http"

// Error codes
const (
	ErrCodeInternal      = "ERR_INTERNAL"
	ErrCodeBadRequest    = "ERR_BAD_REQUEST"
	ErrCodeValidation    = "ERR_VALIDATION"
	ErrCodeNotFound      = "ERR_NOT_FOUND"
	ErrCodeUnknownKind   = "ERR_UNKNOWN_KIND"
	ErrCodeDirection     = "ERR_INVALID_DIRECTION"
	ErrCodeRunInProgress = "ERR_RUN_IN_PROGRESS"
	ErrCodeNotPurgeable  = "ERR_NOT_PURGEABLE"
	ErrCodeInvalidInput  = "ERR_INVALID_INPUT"
	ErrCodeInvalidState  = "ERR_INVALID_STATE"
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	ErrCodeUnavailable   = "ERR_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:      http.StatusInternalServerError,
	ErrCodeBadRequest:    http.StatusBadRequest,
	ErrCodeValidation:    http.StatusBadRequest,
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeUnknownKind:   http.StatusBadRequest,
	ErrCodeDirection:     http.StatusBadRequest,
	ErrCodeRunInProgress: http.StatusConflict,
	ErrCodeNotPurgeable:  http.StatusUnprocessableEntity,
	ErrCodeInvalidInput:  http.StatusBadRequest,
	ErrCodeInvalidState:  http.StatusUnprocessableEntity,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeUnavailable:   http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status of an error code, 500 for unknown codes
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// domainErrorCodes maps domain error codes to API error codes
var domainErrorCodes = map[string]string{
	"NOT_FOUND":      ErrCodeNotFound,
	"ALREADY_EXISTS": ErrCodeAlreadyExists,
	"INVALID_INPUT":  ErrCodeInvalidInput,
	"INVALID_STATE":  ErrCodeInvalidState,
}

// NormalizeErrorCode converts a domain error code to an API error code.
// Unknown codes are passed through with the ERR_ prefix.
func NormalizeErrorCode(code string) string {
	if mapped, ok := domainErrorCodes[code]; ok {
		return mapped
	}
	if len(code) > 4 && code[:4] == "ERR_" {
		return code
	}
	return "ERR_" + code
}
