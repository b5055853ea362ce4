package model

import "errors"

// Sentinel kinds for domain model errors.
var (
	ErrInvalidMonthKey = errors.New("invalid month key")
	ErrUnknownKind     = errors.New("unknown competition kind")
)
