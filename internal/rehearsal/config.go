package rehearsal

import "time"

// Config holds configuration for a rehearsal run.
type Config struct {
	BaseURL  string        // Base URL of the service
	Kind     string        // team or hero
	League   string        // league to rank
	Month    string        // YYYY-MM
	Scope    string        // class id; empty for league-wide
	Force    bool          // replay an already viewed ceremony
	Interval time.Duration // pause between advances
	Timeout  time.Duration // HTTP request timeout
	MaxSteps int           // safety cap on advance calls
	Verbose  bool          // print state after every step
}

// Stats holds rehearsal statistics.
type Stats struct {
	Groups    int
	Steps     int
	Ignored   int
	Events    int
	Showdown  bool
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}
