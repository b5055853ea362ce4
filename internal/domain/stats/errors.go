package stats

import "errors"

// Sentinel kinds for aggregation errors.
var (
	ErrNoLeague  = errors.New("league must not be empty")
	ErrFetchData = errors.New("fetch monthly data failed")
)
