package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/veristep/veristep/internal/seedtraffic"
)

// Default configuration constants.
const (
	defaultUsers         = 100
	defaultChallenges    = 25
	defaultValidators    = 10
	defaultSubmissions   = 1000
	defaultDuplicateRate = 0.05
	defaultWorkers       = 2 // multiplier for runtime.NumCPU()
	defaultTimeout       = 30 * time.Second
	defaultRunTimeout    = 10 * time.Minute
)

func main() {
	var (
		baseURL       = flag.String("url", "http://localhost:9080", "Base URL of the service")
		users         = flag.Int("users", defaultUsers, "Number of users to register")
		challenges    = flag.Int("challenges", defaultChallenges, "Number of challenges to register")
		validators    = flag.Int("validators", defaultValidators, "Number of validators to register")
		submissions   = flag.Int("submissions", defaultSubmissions, "Number of evidence submissions")
		duplicateRate = flag.Float64("duplicate-rate", defaultDuplicateRate, "Fraction of submissions retried with the same token")
		workers       = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout       = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFile       = flag.String("log", "", "Log file for run output (default: seed_log_TIMESTAMP.log)")
		verbose       = flag.Bool("verbose", false, "Enable verbose logging")
		help          = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seedtraffic.ShowHelp()
		return
	}

	if err := seedtraffic.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &seedtraffic.Config{
		BaseURL:        *baseURL,
		NumUsers:       *users,
		NumChallenges:  *challenges,
		NumValidators:  *validators,
		NumSubmissions: *submissions,
		DuplicateRate:  *duplicateRate,
		Workers:        *workers,
		Timeout:        *timeout,
		LogFile:        *logFile,
		Verbose:        *verbose,
	}

	if err := seedtraffic.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Seed traffic run failed: " + err.Error() + "\n")
		return
	}
}
