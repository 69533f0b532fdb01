package types

// SuccessEnvelope is the body shape for every 2xx JSON response.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError carries the machine-readable code alongside the message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
