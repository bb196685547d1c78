// Package seedtraffic drives synthetic traffic against a running
// service instance: it registers reference data, floods the evidence
// intake with a mix of fresh and retried submissions, and reports what
// landed on the review queue.
package seedtraffic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/veristep/veristep/pkg/logger"
)

// Run executes the complete traffic run.
func Run(ctx context.Context, cfg *Config) error {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting seed traffic run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("users", cfg.NumUsers),
		logger.Int("challenges", cfg.NumChallenges),
		logger.Int("validators", cfg.NumValidators),
		logger.Int("submissions", cfg.NumSubmissions),
		logger.Float64("duplicateRate", cfg.DuplicateRate),
		logger.Int("workers", cfg.Workers),
	)

	client := newHTTPClient(cfg.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client, cfg); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Register reference data
	users := generateUsers(cfg.NumUsers)
	n, err := postAll(ctx, client, cfg.BaseURL+"/users", users)
	if err != nil {
		return fmt.Errorf("user registration failed: %w", err)
	}
	stats.UsersRegistered = n

	challenges := generateChallenges(cfg.NumChallenges, users)
	n, err = postAll(ctx, client, cfg.BaseURL+"/challenges", challenges)
	if err != nil {
		return fmt.Errorf("challenge registration failed: %w", err)
	}
	stats.ChallengesRegistered = n

	validators := generateValidators(cfg.NumValidators)
	n, err = postAll(ctx, client, cfg.BaseURL+"/validators", validators)
	if err != nil {
		return fmt.Errorf("validator registration failed: %w", err)
	}
	stats.ValidatorsRegistered = n

	// Step 3: Submit evidence concurrently
	subs := generateSubmissions(cfg, users, challenges)
	if err := submitEvidence(ctx, cfg, subs, stats); err != nil {
		return fmt.Errorf("evidence submission failed: %w", err)
	}

	// Step 4: Inspect the review queue
	if err := inspectQueue(ctx, client, cfg, stats); err != nil {
		logger.Get().Warn(ctx, "review queue inspection failed", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	logger.Get().Info(ctx, "seed traffic run completed")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, cfg *Config) error {
	resp, err := client.Get(ctx, cfg.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// inspectQueue reads back the review queue ordering.
func inspectQueue(ctx context.Context, client *HTTPClient, cfg *Config, stats *Stats) error {
	resp, err := client.Get(ctx, cfg.BaseURL+"/review-queue?limit=100")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("review queue fetch failed with status: %d", resp.StatusCode)
	}

	var entries []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return fmt.Errorf("review queue decode failed: %w", err)
	}
	stats.QueueEntries = len(entries)
	return nil
}

// displayFinalStats prints the final run statistics.
func displayFinalStats(stats *Stats) {
	var submissionsPerSecond float64
	if stats.Duration > 0 {
		submissionsPerSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("usersRegistered", stats.UsersRegistered),
		logger.Int("challengesRegistered", stats.ChallengesRegistered),
		logger.Int("validatorsRegistered", stats.ValidatorsRegistered),
		logger.Int("submitted", stats.Submitted),
		logger.Int("created", stats.Created),
		logger.Int("replayed", stats.Replayed),
		logger.Int("failed", stats.Failed),
		logger.Int("queueEntries", stats.QueueEntries),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("submissionsPerSecond", submissionsPerSecond),
	)
}
