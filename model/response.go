package model

// APIResponse is the success envelope returned by every handler.
type APIResponse struct {
	StatusCode int         `json:"statusCode"`
	Data       interface{} `json:"data"`
	Message    string      `json:"message"`
	Success    bool        `json:"success"`
}

// APIError is the error envelope.
type APIError struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// NewAPIResponse builds a success envelope; Success follows the status code.
func NewAPIResponse(statusCode int, data interface{}, message string) APIResponse {
	return APIResponse{
		StatusCode: statusCode,
		Data:       data,
		Message:    message,
		Success:    statusCode < 400,
	}
}

// NewAPIError builds an error envelope.
func NewAPIError(statusCode int, message string) APIError {
	return APIError{StatusCode: statusCode, Message: message}
}
