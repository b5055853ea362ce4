package rehearsal

import "time"

// Defaults used when Config leaves a field empty.
const (
	DefaultBaseURL  = "http://localhost:9080"
	DefaultInterval = 1500 * time.Millisecond
	DefaultTimeout  = 10 * time.Second
	DefaultMaxSteps = 200
)
