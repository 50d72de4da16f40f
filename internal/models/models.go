// Package models defines shared data structures for the YAHA bot.
package models

// Entry is a shadow-log row recording every fallback-parsed message for
// debugging and classifier training. Writing it must never interrupt the
// main pipeline.
type Entry struct {
	ChatID    int64     `json:"chat_id"`
	RawText   string    `json:"raw_text"`
	Parsed    string    `json:"parsed,omitempty"` // JSON blob of the parsed payload
	Container Container `json:"container,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// APIStatus represents the status of an API response.
type APIStatus string

// API status constants.
const (
	APIStatusOK    APIStatus = "ok"
	APIStatusError APIStatus = "error"
)

// APIResponse is the standard JSON envelope returned by HTTP endpoints.
type APIResponse struct {
	Status  APIStatus   `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: APIStatusOK, Result: result}
}

// SuccessWithMessage creates a successful API response with a message.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: APIStatusOK, Message: message, Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: APIStatusError, Message: message}
}
