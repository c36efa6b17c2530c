package types

// SuccessEnvelope wraps every 2xx response body under a "data" key so
// clients can decode uniformly across endpoints.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public error body. Details is populated only for codes
// whose metadata allows exposing caller input back to the client.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope pairs with SuccessEnvelope on the failure path.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
