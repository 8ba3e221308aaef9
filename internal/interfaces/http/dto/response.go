package dto

// Response is the envelope of every trigger API response
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo describes a failed request
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data any) Response {
	return Response{Success: true, Data: data}
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message string) Response {
	return Response{Error: &ErrorInfo{Code: code, Message: message}}
}

// NewErrorResponseWithRequestID creates an error response carrying the request ID
func NewErrorResponseWithRequestID(code, message, requestID string) Response {
	return Response{Error: &ErrorInfo{Code: code, Message: message, RequestID: requestID}}
}

// RunRequest selects the records of a batch run
type RunRequest struct {
	Kind      string `uri:"kind" binding:"required"`
	Direction string `uri:"direction" binding:"required,oneof=to from"`
}

// RunOneRequest selects a single record by its natural key
type RunOneRequest struct {
	RunRequest
	Key string `uri:"key" binding:"required"`
}

// RunQuery holds the query options of a batch run
type RunQuery struct {
	Changed bool `form:"changed"`
}

// PurgeResponse reports the number of deleted bridge rows
type PurgeResponse struct {
	Kind    string `json:"kind"`
	Deleted int64  `json:"deleted"`
}
