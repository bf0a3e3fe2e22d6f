package types

type SuccessEnvelope struct {
	Data any `json:"data"`
	Meta any `json:"meta,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// WebhookAck is the body returned to the payment gateway for every webhook
// delivery. Business failures still answer HTTP 200 so the gateway does not
// retry mismatches it cannot fix.
type WebhookAck struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
