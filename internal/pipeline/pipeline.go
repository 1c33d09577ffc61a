// Package pipeline orchestrates chunking and embedding of whole documents.
package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"docdex/internal/embedder"
	"docdex/internal/logsink"
	"docdex/internal/splitter"
)

const (
	// DefaultMaxWorkers is the worker pool size when none is configured.
	DefaultMaxWorkers = 5
	// MaxWorkersLimit caps the pool regardless of configuration.
	MaxWorkersLimit = 50

	DefaultChunkSize    = 20
	DefaultChunkOverlap = 2
)

// ErrEmptyInput reports a document with no embeddable content. It is
// detected before any network call is issued.
var ErrEmptyInput = errors.New("empty input")

// Embedder is the single-text embedding call the pipeline fans out over.
type Embedder interface {
	Embed(text string) (embedder.Embedding, error)
}

// Config controls chunking and parallelism for one document embedding run.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
	MaxWorkers   int
}

// ChunkEmbedding pairs a chunk with its embedding.
type ChunkEmbedding struct {
	Chunk     splitter.Chunk
	Embedding embedder.Embedding
}

// DocumentEmbedding is the result of embedding one document: one
// document-level vector plus one vector per chunk, in source order.
type DocumentEmbedding struct {
	Text     string
	Document embedder.Embedding
	Chunks   []ChunkEmbedding
}

// EmbedDocument splits text and embeds the full document plus every chunk.
// Chunk calls run across a pool bounded by cfg.MaxWorkers concurrent
// requests; the document-level call runs alongside, outside the pool.
// Results are keyed by chunk index, so output order is always source order
// regardless of completion order.
//
// The failure policy is all-or-nothing: if any single call fails the whole
// operation reports failure and no partial result is returned. In-flight
// calls still run to completion; there is no mid-batch cancellation.
func EmbedDocument(text string, emb Embedder, cfg Config, log logsink.Sink) (*DocumentEmbedding, error) {
	if log == nil {
		log = logsink.Nop{}
	}
	if strings.TrimSpace(text) == "" {
		log.Append("ERROR:Empty input")
		return nil, ErrEmptyInput
	}

	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = DefaultMaxWorkers
	}
	if workers > MaxWorkersLimit {
		workers = MaxWorkersLimit
	}

	chunks, err := splitter.Split(text, cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	log.Append(fmt.Sprintf("INFO:Split document into %d chunks", len(chunks)))

	embeddings := make([]embedder.Embedding, len(chunks))
	chunkErrs := make([]error, len(chunks))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i := range chunks {
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			e, err := emb.Embed(text)
			if err != nil {
				chunkErrs[i] = err
				log.Append(fmt.Sprintf("ERROR:Failed to get embedding for chunk %d", i+1))
				return
			}
			embeddings[i] = e
			log.Append(fmt.Sprintf("INFO:Chunk %d / %d embeddings created", i+1, len(chunks)))
		}(i, chunks[i].Text)
	}

	var docEmb embedder.Embedding
	var docErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		docEmb, docErr = emb.Embed(text)
	}()

	wg.Wait()

	if docErr != nil {
		return nil, fmt.Errorf("embed document: %w", docErr)
	}
	for i, err := range chunkErrs {
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d: %w", i+1, err)
		}
	}

	result := &DocumentEmbedding{Text: text, Document: docEmb, Chunks: make([]ChunkEmbedding, len(chunks))}
	for i := range chunks {
		result.Chunks[i] = ChunkEmbedding{Chunk: chunks[i], Embedding: embeddings[i]}
	}
	return result, nil
}
