package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "carriage returns become newlines",
			in:   "a\r\nb",
			want: "a\n\nb",
		},
		{
			name: "horizontal whitespace collapses",
			in:   "a  \t b",
			want: "a b",
		},
		{
			name: "blank line runs squeeze to one",
			in:   "a\n\n\n\n\nb",
			want: "a\n\nb",
		},
		{
			name: "leading and trailing trim",
			in:   "  \n hello \n ",
			want: "hello",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanText(tt.in); got != tt.want {
				t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestChunkText_Counts(t *testing.T) {
	// The windowing formula: documents of 500, 1500 and 3000 chars with
	// a 1200/200 window produce 1, 2 and 3 chunks respectively.
	tests := []struct {
		length int
		want   int
	}{
		{500, 1},
		{1500, 2},
		{3000, 3},
	}
	for _, tt := range tests {
		text := strings.Repeat("x", tt.length)
		got := ChunkText(text, 1200, 200)
		if len(got) != tt.want {
			t.Errorf("length %d: got %d chunks, want %d", tt.length, len(got), tt.want)
		}
	}
}

func TestChunkText_Coverage(t *testing.T) {
	// Reconstructing chunk spans must cover the original text with no
	// gaps and no dropped tail.
	const size, overlap = 100, 20
	text := strings.Repeat("abcdefghij", 57) // 570 chars
	chunks := ChunkText(text, size, overlap)

	var rebuilt strings.Builder
	for i, ch := range chunks {
		if i == 0 {
			rebuilt.WriteString(ch)
			continue
		}
		// Every non-first chunk repeats exactly `overlap` chars of the
		// prior chunk's tail.
		rebuilt.WriteString(ch[overlap:])
	}
	got := rebuilt.String()
	if got != text {
		t.Fatalf("reconstruction mismatch: got %d chars, want %d", len(got), len(text))
	}

	last := chunks[len(chunks)-1]
	if !strings.HasSuffix(text, last) {
		t.Error("final chunk does not end at document end")
	}
}

func TestChunkText_ShortDocSingleChunk(t *testing.T) {
	got := ChunkText("tiny", 1200, 200)
	if len(got) != 1 || got[0] != "tiny" {
		t.Fatalf("got %v, want single chunk", got)
	}
}

func TestBuild_FromFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello world document"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.md"), []byte(strings.Repeat("y", 1500)), 0o644); err != nil {
		t.Fatal(err)
	}
	// Non-document extensions are ignored.
	if err := os.WriteFile(filepath.Join(dir, "c.bin"), []byte{0x00}, 0o644); err != nil {
		t.Fatal(err)
	}

	chunks, err := Build([]string{dir}, 1200, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks (1 + 2), got %d", len(chunks))
	}
	for _, c := range chunks {
		if c.Text == "" {
			t.Error("chunk with empty text")
		}
		if c.Meta.SourcePath == "" {
			t.Error("chunk missing source path")
		}
	}
}

func TestBuild_EmptySourcesError(t *testing.T) {
	_, err := Build([]string{filepath.Join(t.TempDir(), "missing")}, 1200, 200)
	if err != ErrEmptyCorpus {
		t.Fatalf("expected ErrEmptyCorpus, got %v", err)
	}
}

func TestChunkID(t *testing.T) {
	if got := ChunkID("docs/a.txt", 3); got != "docs/a.txt::chunk_0003" {
		t.Errorf("got %q", got)
	}
}
