package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInsufficientQuotes = errors.New("insufficient quotes")
	ErrExecutionInFlight  = errors.New("execution already in flight")
	ErrVenueTimeout       = errors.New("venue request timed out")
	ErrMalformedQuote     = errors.New("malformed quote")
	ErrLockHeld           = errors.New("lock already held")
	ErrInvalidKeypair     = errors.New("invalid keypair")
)
