package ceremony

import "errors"

// Sentinel kinds for ceremony errors.
var (
	ErrCeremonyActive = errors.New("a ceremony is already active")
	ErrNoCeremony     = errors.New("no ceremony")
	ErrAlreadyViewed  = errors.New("ceremony already viewed")
	ErrInvalidParams  = errors.New("invalid ceremony parameters")
)
