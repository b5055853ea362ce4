package rehearsal

import "errors"

// Sentinel kinds for rehearsal errors.
var (
	ErrUnhealthy       = errors.New("service unhealthy")
	ErrUnexpectedReply = errors.New("unexpected response")
	ErrRevealOrder     = errors.New("reveal order violated")
	ErrTooManySteps    = errors.New("ceremony did not end")
)
