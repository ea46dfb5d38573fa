package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public shape of a failed request. RetryAllowed tells the
// client whether re-submitting the same request may succeed.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RetryAllowed bool   `json:"retryAllowed"`
	RequestID    string `json:"requestId,omitempty"`
	Details      any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
