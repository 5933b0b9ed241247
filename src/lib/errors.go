package lib

import "errors"

// Error kinds per the core's error taxonomy (§7). These are sentinels, not
// types — callers use errors.Is against them and wrap with context via
// fmt.Errorf("...: %w", ErrX).
var (
	ErrTimeout               = errors.New("timeout")
	ErrUnknownTerminal       = errors.New("unknown terminal")
	ErrMultiplexerUnavailable = errors.New("multiplexer unavailable")
	ErrParseNoResponse       = errors.New("no response found")
	ErrParseEmptyResponse    = errors.New("empty response")
	ErrPersistenceFailure    = errors.New("persistence failure")
	ErrDeliveryFailure       = errors.New("delivery failure")
)
