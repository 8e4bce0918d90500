package webhook

import "fmt"

// WebhookError is the base type every dispatch failure wraps, carrying
// the hook's name so logs and retry bookkeeping can identify it without
// re-parsing the message.
type WebhookError struct {
	WebhookName string
	Err         error
}

func (e *WebhookError) Error() string {
	return fmt.Sprintf("webhook %q: %v", e.WebhookName, e.Err)
}

func (e *WebhookError) Unwrap() error { return e.Err }

// TimeoutError marks a dispatch that exceeded the hook's configured
// timeout.
type TimeoutError struct{ WebhookError }

func NewTimeoutError(name string, err error) *TimeoutError {
	return &TimeoutError{WebhookError{WebhookName: name, Err: err}}
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("webhook %q: timeout: %v", e.WebhookName, e.Err)
}

// NetworkError marks a transport-level failure (connection refused,
// DNS failure, TLS handshake failure).
type NetworkError struct{ WebhookError }

func NewNetworkError(name string, err error) *NetworkError {
	return &NetworkError{WebhookError{WebhookName: name, Err: err}}
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("webhook %q: network error: %v", e.WebhookName, e.Err)
}

// InvalidResponseError marks a response the client could not trust:
// non-2xx status, malformed body, or a body exceeding the size cap.
type InvalidResponseError struct{ WebhookError }

func NewInvalidResponseError(name string, err error) *InvalidResponseError {
	return &InvalidResponseError{WebhookError{WebhookName: name, Err: err}}
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("webhook %q: invalid response: %v", e.WebhookName, e.Err)
}
