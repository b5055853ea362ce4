package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/podium/internal/rehearsal"
	"github.com/okian/podium/pkg/logger"
)

const defaultRunTimeout = 10 * time.Minute

func main() {
	var (
		baseURL  = flag.String("url", rehearsal.DefaultBaseURL, "Base URL of the service")
		kind     = flag.String("kind", "hero", "Competition kind: team or hero")
		league   = flag.String("league", "", "League to rank")
		month    = flag.String("month", "", "Month as YYYY-MM")
		scope    = flag.String("scope", "", "Class id; empty ranks the whole league")
		force    = flag.Bool("force", false, "Replay a ceremony that was already viewed")
		interval = flag.Duration("interval", rehearsal.DefaultInterval, "Pause between advances")
		timeout  = flag.Duration("timeout", rehearsal.DefaultTimeout, "HTTP request timeout")
		verbose  = flag.Bool("verbose", false, "Print state after every step")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help || *league == "" || *month == "" {
		rehearsal.ShowHelp(os.Stdout)
		return
	}

	if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	config := &rehearsal.Config{
		BaseURL:  *baseURL,
		Kind:     *kind,
		League:   *league,
		Month:    *month,
		Scope:    *scope,
		Force:    *force,
		Interval: *interval,
		Timeout:  *timeout,
		Verbose:  *verbose,
	}

	if _, err := rehearsal.Run(ctx, config, os.Stdout); err != nil {
		logger.Get().Error(ctx, "rehearsal failed", logger.Error(err))
		cancel()
		stop()
		os.Exit(1)
	}
}
