// Package corpus loads raw documents, cleans their text and splits
// them into overlapping fixed-size chunks ready for embedding.
package corpus

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"github.com/contentscout/contentscout/pkg/models"
)

const (
	// DefaultChunkSize is the chunk window in characters.
	DefaultChunkSize = 1200
	// DefaultChunkOverlap is the overlap between adjacent chunks.
	DefaultChunkOverlap = 200
)

// ErrEmptyCorpus is returned when no documents could be loaded from
// the given sources.
var ErrEmptyCorpus = errors.New("corpus: no documents found")

var (
	carriageRe  = regexp.MustCompile(`\r`)
	horizWSRe   = regexp.MustCompile(`[ \t]+`)
	blankRunsRe = regexp.MustCompile(`\n{3,}`)
	anyWSRe     = regexp.MustCompile(`\s+`)
)

// Document is a loaded source file before chunking.
type Document struct {
	Path string
	Text string
}

// CleanText normalizes newlines, collapses runs of horizontal
// whitespace, squeezes 3+ consecutive blank lines down to one blank
// line and trims the result.
func CleanText(s string) string {
	s = carriageRe.ReplaceAllString(s, "\n")
	s = horizWSRe.ReplaceAllString(s, " ")
	s = blankRunsRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// ChunkText splits text into windows of size chars with the given
// overlap. A document no longer than size is a single chunk. The final
// chunk always ends exactly at the end of the text, so coverage is
// exhaustive with no dropped tail.
func ChunkText(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if len(text) <= size {
		return []string{text}
	}
	step := size - overlap
	if step <= 0 {
		step = size
	}
	var chunks []string
	for start := 0; start < len(text); start += step {
		end := start + size
		if end >= len(text) {
			chunks = append(chunks, text[start:len(text)])
			break
		}
		chunks = append(chunks, text[start:end])
	}
	return chunks
}

// LoadDocuments resolves each source (file or directory) into cleaned
// documents. Directories are walked recursively for .txt, .md and .pdf
// files. Unreadable files are skipped individually.
func LoadDocuments(sources []string) []Document {
	var files []string
	for _, src := range sources {
		fi, err := os.Stat(src)
		if err != nil {
			log.Warn().Err(err).Str("source", src).Msg("skipping unreadable source")
			continue
		}
		if !fi.IsDir() {
			files = append(files, src)
			continue
		}
		err = godirwalk.Walk(src, &godirwalk.Options{
			Unsorted: false,
			Callback: func(path string, de *godirwalk.Dirent) error {
				if de.IsDir() {
					return nil
				}
				switch strings.ToLower(filepath.Ext(path)) {
				case ".txt", ".md", ".pdf":
					files = append(files, path)
				}
				return nil
			},
		})
		if err != nil {
			log.Warn().Err(err).Str("source", src).Msg("walk failed")
		}
	}

	var docs []Document
	for _, fp := range files {
		raw, err := readFile(fp)
		if err != nil {
			log.Warn().Err(err).Str("path", fp).Msg("skipping unreadable file")
			continue
		}
		docs = append(docs, Document{Path: fp, Text: CleanText(raw)})
	}
	return docs
}

func readFile(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return readPDF(path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// readPDF extracts plain text from every page of a PDF.
func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to close pdf")
		}
	}()
	reader, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ChunkID derives a stable chunk identifier from its source path and
// ordinal position.
func ChunkID(path string, index int) string {
	return fmt.Sprintf("%s::chunk_%04d", path, index)
}

// Build loads, cleans and chunks the given sources into an ordered
// corpus. It returns ErrEmptyCorpus when nothing could be loaded.
func Build(sources []string, size, overlap int) ([]models.Chunk, error) {
	docs := LoadDocuments(sources)
	var out []models.Chunk
	for _, d := range docs {
		for i, text := range ChunkText(d.Text, size, overlap) {
			out = append(out, models.Chunk{
				ID:   ChunkID(d.Path, i),
				Text: text,
				Meta: models.Meta{SourcePath: d.Path, ChunkIndex: i},
			})
		}
	}
	if len(out) == 0 {
		return nil, ErrEmptyCorpus
	}
	return out, nil
}
