package pipeline

import (
	"time"

	"docdex/internal/embedder"
)

// DocumentPayload is the wire form of a document-level embedding.
type DocumentPayload struct {
	Text      string    `json:"text,omitempty"`
	Embedding []float32 `json:"embedding"`
	Duration  float64   `json:"duration"`
	CreatedAt string    `json:"created_at"`
}

// ChunkPayload is the wire form of one chunk embedding.
type ChunkPayload struct {
	ChunkID   int       `json:"chunk_id"`
	Text      string    `json:"text,omitempty"`
	StartLine int       `json:"start_line"`
	EndLine   int       `json:"end_line"`
	Embedding []float32 `json:"embedding"`
	Duration  float64   `json:"duration"`
	CreatedAt string    `json:"created_at"`
}

func formatCreatedAt(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func embeddingPayload(e embedder.Embedding) ([]float32, float64, string) {
	return e.Values, e.Duration.Seconds(), formatCreatedAt(e.CreatedAt)
}

// DocumentPayload serializes the document-level embedding. includeText
// bounds payload size only; it never affects what was embedded.
func (d *DocumentEmbedding) DocumentPayload(includeText bool) DocumentPayload {
	values, dur, created := embeddingPayload(d.Document)
	p := DocumentPayload{Embedding: values, Duration: dur, CreatedAt: created}
	if includeText {
		p.Text = d.Text
	}
	return p
}

// ChunkPayloads serializes the chunk embeddings in source order.
func (d *DocumentEmbedding) ChunkPayloads(includeText bool) []ChunkPayload {
	out := make([]ChunkPayload, len(d.Chunks))
	for i, ce := range d.Chunks {
		values, dur, created := embeddingPayload(ce.Embedding)
		out[i] = ChunkPayload{
			ChunkID:   ce.Chunk.Index,
			StartLine: ce.Chunk.StartLine,
			EndLine:   ce.Chunk.EndLine,
			Embedding: values,
			Duration:  dur,
			CreatedAt: created,
		}
		if includeText {
			out[i].Text = ce.Chunk.Text
		}
	}
	return out
}
