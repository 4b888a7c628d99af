package locast

import "errors"

// Sentinel errors for source call outcomes.
var (
	// ErrSourceUnavailable indicates a network failure, non-2xx response,
	// or malformed JSON on an outbound call. Callers surface it per their
	// own policy; it never terminates the process after startup.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrMarketUnresolved indicates the get_dma response was missing the
	// DMA or name field. Session state must not be mutated in this case.
	ErrMarketUnresolved = errors.New("market could not be resolved")

	// ErrLoginFailed indicates the member_login response carried no token.
	ErrLoginFailed = errors.New("login failed: no token in response")

	// ErrStationInactive marks a station that resolved successfully but is
	// not currently broadcasting. It is a terminal state, not a fault.
	ErrStationInactive = errors.New("station inactive")
)
