package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/contentscout/contentscout/pkg/models"
)

func mkChunk(id, text string) models.Chunk {
	return models.Chunk{ID: id, Text: text, Meta: models.Meta{SourcePath: "test.txt"}}
}

func TestFileStoreSearchOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(t.TempDir(), 2)

	vecs := [][]float32{
		{1, 0},     // score 1.0 vs query
		{0, 1},     // score 0.0
		{0.6, 0.8}, // score 0.6
	}
	chunks := []models.Chunk{mkChunk("a", "alpha"), mkChunk("b", "beta"), mkChunk("c", "gamma")}
	if err := s.Add(ctx, vecs, chunks); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := s.Search(ctx, []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 results for k>n, got %d", len(got))
	}
	wantIDs := []string{"a", "c", "b"}
	for i, w := range wantIDs {
		if got[i].Chunk.ID != w {
			t.Errorf("result %d: got %s, want %s", i, got[i].Chunk.ID, w)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("scores not descending at %d: %f > %f", i, got[i].Score, got[i-1].Score)
		}
	}

	// A repeated identical query must return the same ranking.
	again, err := s.Search(ctx, []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !reflect.DeepEqual(got, again) {
		t.Error("repeated search returned a different ranking")
	}
}

func TestFileStoreSearchTiesStable(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(t.TempDir(), 2)

	// Identical vectors tie exactly; insertion order must win.
	vecs := [][]float32{{1, 0}, {1, 0}, {1, 0}}
	chunks := []models.Chunk{mkChunk("first", "x"), mkChunk("second", "x"), mkChunk("third", "x")}
	if err := s.Add(ctx, vecs, chunks); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := s.Search(ctx, []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	wantIDs := []string{"first", "second", "third"}
	for i, w := range wantIDs {
		if got[i].Chunk.ID != w {
			t.Errorf("result %d: got %s, want %s", i, got[i].Chunk.ID, w)
		}
	}
}

func TestFileStoreEmpty(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(t.TempDir(), 4)

	got, err := s.Search(ctx, []float32{1, 0, 0, 0}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil result, got %v", got)
	}
}

func TestFileStoreDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(t.TempDir(), 3)

	err := s.Add(ctx, [][]float32{{1, 0}}, []models.Chunk{mkChunk("a", "x")})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Add: expected ErrDimensionMismatch, got %v", err)
	}

	if err := s.Add(ctx, [][]float32{{1, 0, 0}}, []models.Chunk{mkChunk("a", "x")}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	_, err = s.Search(ctx, []float32{1, 0}, 1)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Search: expected ErrDimensionMismatch, got %v", err)
	}
}

func TestFileStoreLengthMismatch(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(t.TempDir(), 2)
	err := s.Add(ctx, [][]float32{{1, 0}, {0, 1}}, []models.Chunk{mkChunk("a", "x")})
	if !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestFileStoreSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := NewFileStore(dir, 2)

	rank := 3
	weeks := 7
	chunks := []models.Chunk{
		{ID: "doc::chunk_0000", Text: "hello world", Meta: models.Meta{SourcePath: "doc.txt", ChunkIndex: 0}},
		{ID: "rank::chunk_0000", Text: "Top Film", Meta: models.Meta{
			SourcePath: "ranking.txt", Country: "kr", Category: "film", Rank: &rank, WeeksInTop: &weeks,
		}},
	}
	vecs := [][]float32{{0.6, 0.8}, {0, 1}}
	if err := s.Add(ctx, vecs, chunks); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := OpenFileStore(dir)
	if err != nil {
		t.Fatalf("OpenFileStore: %v", err)
	}
	if loaded.Dim() != 2 {
		t.Errorf("Dim: got %d, want 2", loaded.Dim())
	}
	n, err := loaded.Len(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Len: got %d, %v", n, err)
	}
	if !reflect.DeepEqual(loaded.Chunks(), chunks) {
		t.Errorf("chunks did not survive round trip:\n got %+v\nwant %+v", loaded.Chunks(), chunks)
	}

	got, err := loaded.Search(ctx, []float32{0, 1}, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].Chunk.ID != "rank::chunk_0000" {
		t.Errorf("search after load: got %+v", got)
	}
}

func TestOpenFileStoreMissing(t *testing.T) {
	if _, err := OpenFileStore(t.TempDir()); err == nil {
		t.Error("expected error opening an empty directory")
	}
}
