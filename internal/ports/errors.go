package ports

import "errors"

// Standard application-level errors.
// Adapters wrap underlying infrastructure errors with these so callers can
// branch on errors.Is without knowing the transport.
var (
	// General errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")
	ErrValidation         = errors.New("validation failed")

	// Broker API errors
	ErrAuthenticationFailed = errors.New("broker authentication failed (check API keys)")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrTransientNetwork     = errors.New("transient network failure")
	ErrAPIFault             = errors.New("broker API returned an error status")
	ErrOrderRejected        = errors.New("order was rejected by the broker")

	// Analysis errors
	ErrInsufficientData = errors.New("not enough data points for analysis")

	// Database errors
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
)
