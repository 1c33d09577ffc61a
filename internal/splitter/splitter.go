// Package splitter breaks document text into overlapping line-based chunks.
package splitter

import (
	"fmt"
	"strings"
)

// Chunk is a contiguous range of document lines. Lines are 1-indexed and
// inclusive on both ends; Text is the newline-joined original lines.
type Chunk struct {
	Index     int
	StartLine int
	EndLine   int
	Text      string
}

// Split cuts text into chunks of chunkSize lines, with neighboring chunks
// sharing the last chunkOverlap lines of the prior chunk. Empty or
// whitespace-only text yields a single chunk spanning line 1-1 with the
// original text. The final chunk always ends on the last line; no chunk
// starts beyond it.
func Split(text string, chunkSize, chunkOverlap int) ([]Chunk, error) {
	if chunkSize < 1 {
		return nil, fmt.Errorf("chunk size must be at least 1, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", chunkSize, chunkOverlap)
	}

	if strings.TrimSpace(text) == "" {
		return []Chunk{{Index: 0, StartLine: 1, EndLine: 1, Text: text}}, nil
	}

	lines := strings.Split(text, "\n")
	total := len(lines)

	if total <= chunkSize {
		return []Chunk{{Index: 0, StartLine: 1, EndLine: total, Text: text}}, nil
	}

	step := chunkSize - chunkOverlap
	if step < 1 {
		step = 1
	}

	var chunks []Chunk
	for cur := 0; cur < total; cur += step {
		end := cur + chunkSize
		if end > total {
			end = total
		}
		chunks = append(chunks, Chunk{
			Index:     len(chunks),
			StartLine: cur + 1,
			EndLine:   end,
			Text:      strings.Join(lines[cur:end], "\n"),
		})
		// The last line is covered; trailing chunks would only repeat overlap.
		if end == total {
			break
		}
	}
	return chunks, nil
}
