// Package idempotency deduplicates retried mutating calls with
// client-supplied tokens. A token is consumable exactly once: the first
// caller to begin it executes the operation, retries of a completed
// token replay the cached result, and retries of an in-flight token fail
// fast with a conflict.
package idempotency

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/veristep/veristep/internal/domain/model"
	"github.com/veristep/veristep/pkg/clock"
	"github.com/veristep/veristep/pkg/metrics"
)

const defaultTokenTTL = 24 * time.Hour

// Result is the cached outcome replayed to retries.
type Result struct {
	Data       string
	HTTPStatus int
}

// Begin outcomes.
type BeginStatus int

const (
	// StatusAccepted means the token is fresh; the caller must execute
	// the operation and call Complete.
	StatusAccepted BeginStatus = iota

	// StatusReplayed means the token already completed; Result holds
	// the cached outcome and the operation must not run again.
	StatusReplayed
)

// BeginResult reports how a token was admitted.
type BeginResult struct {
	Status BeginStatus
	Result Result // populated when Status == StatusReplayed
}

// Guard is the idempotency contract used by the service facade.
type Guard interface {
	// Begin admits a token. Fresh and expired tokens are accepted
	// (fail-open: the guard dedups, it does not authorize). A completed
	// token with matching user and operation replays its result. A
	// token owned by another user, carrying another operation, or still
	// in flight returns model.ErrConflict.
	Begin(ctx context.Context, token, userID, operationType string, ttl time.Duration) (BeginResult, error)

	// Complete marks a token used and caches the operation result.
	// The first completion wins; later calls are no-ops.
	Complete(ctx context.Context, token string, result Result) error

	// Release drops an unused token after a failed operation so the
	// caller may retry. Used tokens are kept for replay.
	Release(ctx context.Context, token string)

	// Sweep drops tokens expired at now and returns how many went.
	Sweep(ctx context.Context, now time.Time) int

	// Size returns the number of tracked tokens.
	Size() int64
}

// inMemoryGuard implements Guard with a mutex-protected token table.
// Begin performs the check-and-record under one lock so concurrent
// retries of the same token serialize: exactly one caller wins the
// fresh-token path.
type inMemoryGuard struct {
	mu     sync.Mutex
	tokens map[string]*model.IdempotencyToken
	size   atomic.Int64

	defaultTTL time.Duration
	clock      clock.Clock
}

// Option applies a configuration option to the in-memory guard.
type Option func(*inMemoryGuard)

// WithClock sets the time source.
func WithClock(c clock.Clock) Option {
	return func(g *inMemoryGuard) {
		if c != nil {
			g.clock = c
		}
	}
}

// WithDefaultTTL sets the TTL applied when Begin receives a zero ttl.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(g *inMemoryGuard) {
		if ttl > 0 {
			g.defaultTTL = ttl
		}
	}
}

// NewInMemoryGuard creates an in-memory guard with configuration options.
func NewInMemoryGuard(opts ...Option) Guard {
	g := &inMemoryGuard{
		tokens:     make(map[string]*model.IdempotencyToken),
		defaultTTL: defaultTokenTTL,
		clock:      clock.New(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Begin admits a token under one lock.
func (g *inMemoryGuard) Begin(ctx context.Context, token, userID, operationType string, ttl time.Duration) (BeginResult, error) {
	if token == "" {
		return BeginResult{}, fmt.Errorf("%w: empty idempotency token", model.ErrValidation)
	}
	if ttl <= 0 {
		ttl = g.defaultTTL
	}
	now := g.clock.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	existing, ok := g.tokens[token]
	if ok && !existing.Expired(now) {
		if existing.UserID != userID || existing.OperationType != operationType {
			return BeginResult{}, fmt.Errorf("%w: token claimed by another operation", model.ErrConflict)
		}
		if existing.IsUsed {
			metrics.RecordDuplicateReplay()
			return BeginResult{
				Status: StatusReplayed,
				Result: Result{Data: existing.ResultData, HTTPStatus: existing.HTTPStatus},
			}, nil
		}
		// Same token, operation still running: first-writer-wins, the
		// retry fails fast and polls again.
		return BeginResult{}, fmt.Errorf("%w: operation in progress", model.ErrConflict)
	}

	// Fresh token, or an expired row replaced in place.
	if !ok {
		g.size.Add(1)
	}
	g.tokens[token] = &model.IdempotencyToken{
		Token:         token,
		UserID:        userID,
		OperationType: operationType,
		CreatedAt:     now,
		ExpiresAt:     now.Add(ttl),
	}
	metrics.UpdateTokenTableSize(g.size.Load())
	return BeginResult{Status: StatusAccepted}, nil
}

// Complete marks the token used and caches the result.
func (g *inMemoryGuard) Complete(ctx context.Context, token string, result Result) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, ok := g.tokens[token]
	if !ok {
		return fmt.Errorf("%w: idempotency token %q", model.ErrNotFound, token)
	}
	if t.IsUsed {
		// First completion is fixed.
		return nil
	}
	t.IsUsed = true
	t.ResultData = result.Data
	t.HTTPStatus = result.HTTPStatus
	return nil
}

// Release drops an unused token so the caller may retry after a failed
// operation. Used tokens are kept for replay.
func (g *inMemoryGuard) Release(ctx context.Context, token string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, ok := g.tokens[token]
	if !ok || t.IsUsed {
		return
	}
	delete(g.tokens, token)
	g.size.Add(-1)
	metrics.UpdateTokenTableSize(g.size.Load())
}

// Sweep drops expired tokens. Not correctness-critical; a missed sweep
// only wastes memory.
func (g *inMemoryGuard) Sweep(ctx context.Context, now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	swept := 0
	for token, t := range g.tokens {
		if t.Expired(now) {
			delete(g.tokens, token)
			swept++
		}
	}
	if swept > 0 {
		g.size.Add(int64(-swept))
		metrics.RecordTokensSwept(swept)
		metrics.UpdateTokenTableSize(g.size.Load())
	}
	return swept
}

// Size returns the number of tracked tokens.
func (g *inMemoryGuard) Size() int64 {
	return g.size.Load()
}
