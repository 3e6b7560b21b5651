package apiclient

// ErrorResponse is the OAuth2 style error body used by the gateway.
type ErrorResponse struct {
	// Error is the OAuth2 error code (e.g., "invalid_request", "invalid_grant")
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description"`
}

// ValidationErrorResponse is the body some resource endpoints answer with
// when request validation fails.
type ValidationErrorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Envelope is implemented by response types a Base can fill.
type Envelope interface {
	// Target returns the value the response body is decoded into.
	Target() any

	// Settle records the outcome after the body has been decoded. apiErr is
	// nil for 2xx responses and describes the failure otherwise.
	Settle(status int, apiErr *ErrorResponse)
}

// Result is the generic success/failure envelope. When Success is true Data
// holds the decoded payload and the error fields are empty; when it is false
// Data is the zero value and ErrorCode/ErrorMessage describe the failure.
type Result[T any] struct {
	Success    bool `json:"-"`
	StatusCode int  `json:"-"`
	Data       T    `json:"-"`

	ErrorCode    string `json:"-"`
	ErrorMessage string `json:"-"`
}

// Target implements Envelope.
func (r *Result[T]) Target() any { return &r.Data }

// Settle implements Envelope.
func (r *Result[T]) Settle(status int, apiErr *ErrorResponse) {
	r.StatusCode = status
	if apiErr == nil {
		r.Success = true
		r.ErrorCode = ""
		r.ErrorMessage = ""
		return
	}

	var zero T
	r.Success = false
	r.Data = zero
	r.ErrorCode = apiErr.Error
	r.ErrorMessage = apiErr.ErrorDescription
}

// Err returns the failure as an *OAuth2Error, or nil when the call succeeded.
func (r *Result[T]) Err() error {
	if r.Success {
		return nil
	}
	return &OAuth2Error{
		StatusCode:  r.StatusCode,
		Code:        r.ErrorCode,
		Description: r.ErrorMessage,
	}
}
