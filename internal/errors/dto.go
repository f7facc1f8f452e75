package errors

// ErrorResponse is the error body every endpoint answers with. OK is always false and
// lets the confirm endpoint share one shape for failures.
type ErrorResponse struct {
	OK      bool           `json:"ok"`
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}
