package store

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/contentscout/contentscout/pkg/models"
)

const (
	// IndexFileName is the flat vector index file inside an index dir.
	IndexFileName = "vectors.index"
	// DocsFileName holds one JSON chunk per line, positionally aligned
	// with the index file.
	DocsFileName = "docs.jsonl"

	indexMagic   = "CSIX"
	indexVersion = 1
)

// FileStore keeps vectors in memory backed by a flat index file plus a
// docs.jsonl metadata file. Reads are safe for concurrent use;
// re-indexing is a maintenance operation performed without readers.
type FileStore struct {
	dir string
	dim int

	mu     sync.RWMutex
	vecs   [][]float32
	chunks []models.Chunk
}

// NewFileStore creates an empty store that persists under dir.
func NewFileStore(dir string, dim int) *FileStore {
	return &FileStore{dir: dir, dim: dim}
}

// OpenFileStore loads a previously saved index from dir.
func OpenFileStore(dir string) (*FileStore, error) {
	dim, vecs, err := readIndexFile(filepath.Join(dir, IndexFileName))
	if err != nil {
		return nil, err
	}
	chunks, err := readDocsFile(filepath.Join(dir, DocsFileName))
	if err != nil {
		return nil, err
	}
	if len(chunks) != len(vecs) {
		return nil, fmt.Errorf("store: index has %d vectors but docs file has %d records", len(vecs), len(chunks))
	}
	return &FileStore{dir: dir, dim: dim, vecs: vecs, chunks: chunks}, nil
}

// Add appends vectors with their chunks. Either both lists are
// appended or the store is left untouched.
func (s *FileStore) Add(ctx context.Context, vecs [][]float32, chunks []models.Chunk) error {
	if len(vecs) != len(chunks) {
		return ErrLengthMismatch
	}
	for _, v := range vecs {
		if len(v) != s.dim {
			return fmt.Errorf("%w: got %d, store is %d", ErrDimensionMismatch, len(v), s.dim)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vecs = append(s.vecs, vecs...)
	s.chunks = append(s.chunks, chunks...)
	return nil
}

// Save writes the index and docs files. Writes go to temp files first
// so a crash mid-save never leaves a truncated index behind.
func (s *FileStore) Save(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	if err := writeIndexFile(filepath.Join(s.dir, IndexFileName), s.dim, s.vecs); err != nil {
		return err
	}
	return writeDocsFile(filepath.Join(s.dir, DocsFileName), s.chunks)
}

// Search returns up to k nearest neighbors by inner product over the
// stored (normalized) vectors.
func (s *FileStore) Search(ctx context.Context, query []float32, k int) ([]models.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.vecs) == 0 {
		return []models.SearchResult{}, nil
	}
	if len(query) != s.dim {
		return nil, fmt.Errorf("%w: query is %d, store is %d", ErrDimensionMismatch, len(query), s.dim)
	}
	if k <= 0 {
		return []models.SearchResult{}, nil
	}

	type scored struct {
		idx   int
		score float64
	}
	all := make([]scored, len(s.vecs))
	for i, v := range s.vecs {
		all[i] = scored{idx: i, score: dot(query, v)}
	}
	sort.SliceStable(all, func(a, b int) bool { return all[a].score > all[b].score })

	if k > len(all) {
		k = len(all)
	}
	out := make([]models.SearchResult, 0, k)
	for _, sc := range all[:k] {
		out = append(out, models.SearchResult{Chunk: s.chunks[sc.idx], Score: sc.score})
	}
	return out, nil
}

// Len reports the number of stored pairs.
func (s *FileStore) Len(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vecs), nil
}

// Dim reports the vector dimensionality.
func (s *FileStore) Dim() int { return s.dim }

// Chunks returns the stored chunks in insertion order.
func (s *FileStore) Chunks() []models.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// ---------- file formats ----------

// The index file is little-endian: 4-byte magic, uint32 version,
// uint32 dim, uint32 count, then count*dim raw float32 values in
// insertion order.
func writeIndexFile(path string, dim int, vecs [][]float32) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if _, err := w.WriteString(indexMagic); err != nil {
		f.Close()
		return err
	}
	for _, v := range []uint32{indexVersion, uint32(dim), uint32(len(vecs))} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			f.Close()
			return err
		}
	}
	for _, vec := range vecs {
		if err := binary.Write(w, binary.LittleEndian, vec); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readIndexFile(path string) (int, [][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	magic := make([]byte, len(indexMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return 0, nil, fmt.Errorf("store: reading index header: %w", err)
	}
	if string(magic) != indexMagic {
		return 0, nil, fmt.Errorf("store: %s is not a vector index file", path)
	}
	var version, dim, count uint32
	for _, dst := range []*uint32{&version, &dim, &count} {
		if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
			return 0, nil, fmt.Errorf("store: reading index header: %w", err)
		}
	}
	if version != indexVersion {
		return 0, nil, fmt.Errorf("store: unsupported index version %d", version)
	}
	vecs := make([][]float32, 0, count)
	for i := uint32(0); i < count; i++ {
		vec := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, vec); err != nil {
			return 0, nil, fmt.Errorf("store: reading vector %d: %w", i, err)
		}
		vecs = append(vecs, vec)
	}
	return int(dim), vecs, nil
}

func writeDocsFile(path string, chunks []models.Chunk) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, c := range chunks {
		if err := enc.Encode(c); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readDocsFile(path string) ([]models.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var chunks []models.Chunk
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var c models.Chunk
		if err := json.Unmarshal(line, &c); err != nil {
			return nil, fmt.Errorf("store: parsing docs line %d: %w", len(chunks)+1, err)
		}
		chunks = append(chunks, c)
	}
	return chunks, sc.Err()
}
