package store

// Embedded is a vector plus the timing recorded when it was produced.
// Duration is in seconds, CreatedAt an RFC 3339 timestamp; both end up in
// entry metadata.
type Embedded struct {
	Values    []float32
	Duration  float64
	CreatedAt string
}

// ChunkRecord is one chunk of a document ready for storage.
type ChunkRecord struct {
	Index     int
	StartLine int
	EndLine   int
	Text      string
	Embedding Embedded
}

// DocumentRecord is a fully embedded document handed to UpsertDocument. It
// is created per ingestion and never mutated afterward.
type DocumentRecord struct {
	ID     string
	Source string
	Text   string

	Embedding Embedded
	Chunks    []ChunkRecord
}
