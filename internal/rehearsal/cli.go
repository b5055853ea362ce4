package rehearsal

import (
	"fmt"
	"io"
	"strings"

	service "github.com/okian/podium/internal/app"
)

// ShowHelp prints usage information for the rehearsal tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `Podium Ceremony Rehearsal
=========================

Drives one ceremony through the HTTP API, prints every reveal as a presenter
would, and checks the reveal order against the standings.

Usage:
  podium-rehearsal [options]

Options:
  -url string        Base URL of the service (default "http://localhost:9080")
  -kind string       team or hero (default "hero")
  -league string     League to rank (required)
  -month string      Month as YYYY-MM (required)
  -scope string      Class id; empty ranks the whole league
  -force             Replay a ceremony that was already viewed
  -interval duration Pause between advances (default 1.5s)
  -timeout duration  HTTP request timeout (default 10s)
  -verbose           Print state after every step
  -help              Show this help message

Examples:
  podium-rehearsal -league junior -month 2026-09 -scope c1
  podium-rehearsal -kind team -league junior -month 2026-09 -interval 0
`)
}

// Render formats one event as a presenter line.
func Render(e service.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d ", e.Seq)
	switch e.Type {
	case service.EventGroup:
		names := make([]string, 0, 1)
		if e.Group != nil {
			for _, entry := range e.Group.Entries {
				names = append(names, entry.DisplayName)
			}
		}
		fmt.Fprintf(&b, "[%s] rank %d: %s", e.Cue, e.Rank, strings.Join(names, ", "))
	case service.EventShowdown:
		fmt.Fprintf(&b, "[%s] %d contestants, identities hidden", e.Cue, len(e.Contestants))
	case service.EventWinner:
		names := []string{}
		if e.Reveal != nil {
			for _, c := range e.Reveal.Winners {
				if c.Entry != nil {
					names = append(names, c.Entry.DisplayName)
				}
			}
		}
		fmt.Fprintf(&b, "[%s] champion: %s", e.Cue, strings.Join(names, ", "))
	case service.EventNothingRecorded:
		b.WriteString(e.Message)
	case service.EventEnded:
		fmt.Fprintf(&b, "ceremony %s ended", e.Key)
	default:
		b.WriteString(string(e.Type))
	}
	if e.Narration != "" {
		fmt.Fprintf(&b, "\n     %q", e.Narration)
	}
	return b.String()
}
