package utils

import (
	"strings"
	"testing"
)

func TestSplitText(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		chunkSize  int
		overlap    int
		wantChunks int
	}{
		{"short text single chunk", "abc", 10, 2, 1},
		{"exact size single chunk", "abcdefghij", 10, 2, 1},
		{"two chunks with overlap", strings.Repeat("a", 15), 10, 2, 2},
		{"overlap larger than size falls back", strings.Repeat("a", 30), 10, 15, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitText(tt.text, tt.chunkSize, tt.overlap)
			if len(got) != tt.wantChunks {
				t.Errorf("len(chunks) = %d, want %d", len(got), tt.wantChunks)
			}
		})
	}
}

func TestSplitTextOverlapPreservesBoundary(t *testing.T) {
	text := "0123456789ABCDEFGHIJ"
	got := SplitText(text, 10, 3)

	if len(got) != 3 {
		t.Fatalf("len(chunks) = %d, want 3", len(got))
	}
	if got[0] != "0123456789" {
		t.Errorf("chunks[0] = %q", got[0])
	}
	// The second chunk starts 3 characters before the previous end.
	if got[1] != "789ABCDEFG" {
		t.Errorf("chunks[1] = %q, want overlap of 3", got[1])
	}
	if got[2] != "EFGHIJ" {
		t.Errorf("chunks[2] = %q", got[2])
	}
}

func TestSplitTextHandlesMultibyteRunes(t *testing.T) {
	text := strings.Repeat("ä", 12)
	got := SplitText(text, 10, 2)

	if len(got) != 2 {
		t.Fatalf("len(chunks) = %d, want 2", len(got))
	}
	for i, chunk := range got {
		for _, r := range chunk {
			if r != 'ä' {
				t.Fatalf("chunk %d contains a broken rune: %q", i, chunk)
			}
		}
	}
}
