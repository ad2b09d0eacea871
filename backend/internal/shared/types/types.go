package types

// ErrorResponse is the body of every failed request. Validation failures fill
// Errors per field and auth failures may name a follow-up Action.
//
//nolint:errname // ErrorResponse is an API response type, not a traditional error
type ErrorResponse struct {
	StatusCode int               `json:"-"`
	RequestID  string            `json:"requestID"`
	Message    string            `json:"message"`
	Errors     map[string]string `json:"errors,omitempty"`
	Action     string            `json:"action,omitempty"` // e.g. "resendVerification"
}

func (e *ErrorResponse) Error() string {
	return e.Message
}

// AddError records a field-level error.
func (e *ErrorResponse) AddError(field, message string) *ErrorResponse {
	if e.Errors == nil {
		e.Errors = make(map[string]string)
	}

	e.Errors[field] = message

	return e
}

// WithAction sets the follow-up the client can offer.
func (e *ErrorResponse) WithAction(action string) *ErrorResponse {
	e.Action = action

	return e
}

// PingStatus is the coarse state reported by ping and health.
type PingStatus string

const (
	PingStatusOK    PingStatus = "OK"
	PingStatusError PingStatus = "ERROR"
)

type PingResponse struct {
	Message string     `json:"message"`
	Status  PingStatus `json:"status"`
}

// HealthResponse reports whether each dependency is reachable.
type HealthResponse struct {
	Status   PingStatus        `json:"status"`
	Database bool              `json:"database"`
	MQTT     bool              `json:"mqtt"`
	Sessions bool              `json:"sessions"`
	Build    map[string]string `json:"build,omitempty"`
}

// MessageResponse acknowledges an operation that has no other result.
type MessageResponse struct {
	Message string `json:"message"`
}
