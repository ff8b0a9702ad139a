// Package store persists chunk embeddings alongside their metadata and
// answers nearest-neighbor queries over the stored vectors.
package store

import (
	"context"
	"errors"

	"github.com/contentscout/contentscout/pkg/models"
)

// ErrDimensionMismatch is returned when a vector's dimensionality
// disagrees with the store. This is a configuration bug and is never
// silently coerced.
var ErrDimensionMismatch = errors.New("store: vector dimension mismatch")

// ErrLengthMismatch is returned when an Add call supplies differing
// numbers of vectors and chunks.
var ErrLengthMismatch = errors.New("store: vectors and chunks length mismatch")

// VectorStore is an ordered collection of (chunk, vector) pairs with
// similarity search. The vector index and the chunk list always have
// the same length and ordering; Add appends to both or neither.
type VectorStore interface {
	// Add appends vectors and their chunks in order.
	Add(ctx context.Context, vecs [][]float32, chunks []models.Chunk) error
	// Save persists the store to durable storage.
	Save(ctx context.Context) error
	// Search returns up to k nearest neighbors by inner product,
	// strictly descending by score, ties broken by insertion order.
	// Searching an empty store returns an empty list.
	Search(ctx context.Context, query []float32, k int) ([]models.SearchResult, error)
	// Len reports the number of stored pairs.
	Len(ctx context.Context) (int, error)
	// Dim reports the vector dimensionality.
	Dim() int
}
