// Package embed turns text batches into L2-normalized embedding
// vectors, retrying transient provider failures per text.
package embed

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/contentscout/contentscout/internal/ai"
)

const (
	DefaultMaxRetries = 4
	baseRetryDelay    = 500 * time.Millisecond
)

// Embedder runs embedding calls against an ai.Client, one provider
// call per text, and normalizes every returned vector to unit length
// so cosine similarity reduces to inner product downstream.
type Embedder struct {
	client     ai.Client
	maxRetries int
	retryDelay time.Duration
}

// Option configures an Embedder.
type Option func(*Embedder)

// WithMaxRetries sets the per-text retry budget.
func WithMaxRetries(n int) Option {
	return func(e *Embedder) {
		if n > 0 {
			e.maxRetries = n
		}
	}
}

// WithRetryDelay sets the base backoff delay. The delay doubles on
// each subsequent attempt.
func WithRetryDelay(d time.Duration) Option {
	return func(e *Embedder) {
		if d > 0 {
			e.retryDelay = d
		}
	}
}

// New creates an Embedder over the given client.
func New(client ai.Client, opts ...Option) *Embedder {
	e := &Embedder{
		client:     client,
		maxRetries: DefaultMaxRetries,
		retryDelay: baseRetryDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dim reports the embedding dimensionality of the underlying client.
func (e *Embedder) Dim() int { return e.client.Dim() }

// Encode embeds texts in order. The result has the same length and
// ordering as the input; every vector is unit length. An empty input
// returns an empty non-nil slice. If any single text exhausts its
// retries the whole call fails with no partial results.
func (e *Embedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for i, text := range texts {
		vec, err := e.embedWithRetry(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		out = append(out, vec)
	}
	return out, nil
}

// EncodeOne embeds a single text, normalized.
func (e *Embedder) EncodeOne(ctx context.Context, text string) ([]float32, error) {
	return e.embedWithRetry(ctx, text)
}

func (e *Embedder) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	delay := e.retryDelay
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		if attempt > 0 {
			log.Debug().Int("attempt", attempt).Dur("delay", delay).Msg("retrying embedding call")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			delay *= 2
		}
		vec, err := e.client.Embed(text)
		if err != nil {
			lastErr = err
			continue
		}
		return Normalize(vec), nil
	}
	return nil, fmt.Errorf("after %d attempts: %w", e.maxRetries, lastErr)
}

// Normalize scales v to unit L2 norm. Zero vectors are returned
// unchanged rather than divided by zero.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
