package model

// ErrorResponse is the envelope for all gateway-originated errors. Message is
// set for single-cause failures; Reasons is set for field-level validation
// failures. Downstream HTTP error responses are passed through verbatim and
// never use this envelope.
type ErrorResponse struct {
	Status  int           `json:"status"`
	Message string        `json:"message,omitempty"`
	Reasons []FieldReason `json:"reasons,omitempty"`
}

// FieldReason describes one invalid request field.
type FieldReason struct {
	Property string `json:"property"`
	Value    any    `json:"value"`
	Message  string `json:"message"`
}
