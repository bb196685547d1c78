package seedtraffic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/veristep/veristep/pkg/logger"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{Timeout: timeout},
	}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body and optional headers.
func (c *HTTPClient) Post(ctx context.Context, url string, body any, headers map[string]string) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.client.Do(req)
}

// postAll submits payloads sequentially, counting successes.
func postAll[T any](ctx context.Context, client *HTTPClient, url string, payloads []T) (int, error) {
	created := 0
	for _, p := range payloads {
		resp, err := client.Post(ctx, url, p, nil)
		if err != nil {
			return created, fmt.Errorf("post %s failed: %w", url, err)
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode == http.StatusCreated {
			created++
		}
	}
	return created, nil
}

// submitEvidence submits evidence concurrently using a worker pool.
func submitEvidence(ctx context.Context, cfg *Config, subs []Submission, stats *Stats) error {
	logger.Get().Info(ctx, "submitting evidence",
		logger.Int("count", len(subs)),
		logger.Int("workers", cfg.Workers),
	)

	client := newHTTPClient(cfg.Timeout)
	url := cfg.BaseURL + "/evidence"

	var (
		created  int64
		replayed int64
		failed   int64
	)

	subChan := make(chan Submission, cfg.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sub := range subChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				switch submitSingle(ctx, client, url, sub) {
				case http.StatusCreated:
					atomic.AddInt64(&created, 1)
				case http.StatusOK:
					atomic.AddInt64(&replayed, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}
			}
		}()
	}

	go func() {
		defer close(subChan)
		for _, sub := range subs {
			select {
			case <-ctx.Done():
				return
			case subChan <- sub:
			}
		}
	}()

	wg.Wait()

	stats.Submitted = len(subs)
	stats.Created = int(atomic.LoadInt64(&created))
	stats.Replayed = int(atomic.LoadInt64(&replayed))
	stats.Failed = int(atomic.LoadInt64(&failed))

	logger.Get().Info(ctx, "evidence submission completed",
		logger.Int("created", stats.Created),
		logger.Int("replayed", stats.Replayed),
		logger.Int("failed", stats.Failed),
	)
	return nil
}

// submitSingle submits one piece of evidence and returns the HTTP status.
func submitSingle(ctx context.Context, client *HTTPClient, url string, sub Submission) int {
	resp, err := client.Post(ctx, url, sub, map[string]string{
		"Idempotency-Key": sub.Token,
	})
	if err != nil {
		return 0
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode
}
