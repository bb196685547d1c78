package seedtraffic

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/veristep/veristep/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "seed_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the seed traffic tool.
func ShowHelp() {
	os.Stdout.WriteString(`Veristep Seed Traffic Tool
==========================

A concurrent tool for exercising the evidence validation pipeline.

Usage:
  go run cmd/seed/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -users int
        Number of users to register (default 100)
  -challenges int
        Number of challenges to register (default 25)
  -validators int
        Number of validators to register (default 10)
  -submissions int
        Number of evidence submissions (default 1000)
  -duplicate-rate float
        Fraction of submissions retried with the same token (default 0.05)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -log string
        Log file for run output (default: seed_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Run with default settings
  go run cmd/seed/main.go

  # Flood the intake
  go run cmd/seed/main.go -submissions 50000 -workers 16

  # Exercise replay handling heavily
  go run cmd/seed/main.go -duplicate-rate 0.3
`)
}
