// Package retriever ranks semantic query results across the document-level
// and chunk-level indexes of a collection.
package retriever

import (
	"fmt"
	"sort"
	"strings"

	"docdex/internal/embedder"
	"docdex/internal/store"
)

// Mode selects which indexes a query runs against.
type Mode string

const (
	ModeChunks    Mode = "chunks"
	ModeDocuments Mode = "documents"
	ModeBoth      Mode = "both"
)

// ParseMode validates a mode string, defaulting empty to ModeBoth.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeBoth, nil
	case ModeChunks, ModeDocuments, ModeBoth:
		return Mode(s), nil
	}
	return "", fmt.Errorf("invalid mode %q: must be chunks, documents, or both", s)
}

// Defaults mirror the query CLI.
const (
	DefaultMaxResults     = 5
	DefaultThreshold      = 0.75
	DefaultChunkWeight    = 0.6
	DefaultDocumentWeight = 0.4
)

// Embedder produces the query vector.
type Embedder interface {
	Embed(text string) (embedder.Embedding, error)
}

// Index is the nearest-neighbor lookup the retriever reads from. A missing
// collection surfaces as an error, which the retriever degrades to zero
// results from that index.
type Index interface {
	Query(collection string, embedding []float32, k int) ([]store.QueryResult, error)
}

// Options controls one query.
type Options struct {
	Collection     string // logical name; empty means "default"
	Mode           Mode
	MaxResults     int
	Threshold      float64
	ChunkWeight    float64
	DocumentWeight float64
}

// Result is one ranked hit. Similarity is the raw cosine similarity, never
// the weight-adjusted ranking key.
type Result struct {
	Document   string         `json:"document"`
	Metadata   map[string]any `json:"metadata"`
	Similarity float64        `json:"similarity"`
	IsChunk    bool           `json:"is_chunk"`
}

// Response is the full query answer. DocumentNames is the set of distinct
// source basenames across all surviving results, collected before
// truncation.
type Response struct {
	Results       []Result `json:"results"`
	Count         int      `json:"count"`
	DocumentNames []string `json:"document_names"`
}

// Retriever embeds query text and searches the vector store.
type Retriever struct {
	emb Embedder
	idx Index
}

// New creates a retriever over the given embedder and index.
func New(emb Embedder, idx Index) *Retriever {
	return &Retriever{emb: emb, idx: idx}
}

// scored carries the internal ranking key; it is stripped from the response.
type scored struct {
	Result
	adjusted float64
}

// Query embeds queryText and searches the collection's document and/or chunk
// indexes according to opts. Distances convert to similarity = 1 - distance;
// results below the threshold are dropped. In both mode each result's
// similarity is scaled by its kind's weight for cross-index ranking only.
func (r *Retriever) Query(queryText string, opts Options) (*Response, error) {
	if err := validate(&opts); err != nil {
		return nil, err
	}

	queryEmb, err := r.emb.Embed(queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var all []scored
	names := make(map[string]struct{})

	if opts.Mode == ModeDocuments || opts.Mode == ModeBoth {
		all = append(all, r.search(opts.Collection+"_documents", queryEmb.Values, opts, false, opts.DocumentWeight, names)...)
	}
	if opts.Mode == ModeChunks || opts.Mode == ModeBoth {
		all = append(all, r.search(opts.Collection+"_chunks", queryEmb.Values, opts, true, opts.ChunkWeight, names)...)
	}

	// Both mode ranks by the weight-adjusted key; single-mode queries rank
	// by raw similarity. Stable sort keeps the store's return order on ties.
	if opts.Mode == ModeBoth {
		sort.SliceStable(all, func(i, j int) bool { return all[i].adjusted > all[j].adjusted })
	} else {
		sort.SliceStable(all, func(i, j int) bool { return all[i].Similarity > all[j].Similarity })
	}
	if len(all) > opts.MaxResults {
		all = all[:opts.MaxResults]
	}

	resp := &Response{Results: make([]Result, len(all)), Count: len(all), DocumentNames: sortedNames(names)}
	for i, s := range all {
		resp.Results[i] = s.Result
	}
	return resp, nil
}

// search queries one physical collection. Index errors (the collection may
// legitimately not exist yet) degrade to zero results.
func (r *Retriever) search(collection string, queryVec []float32, opts Options, isChunk bool, weight float64, names map[string]struct{}) []scored {
	results, err := r.idx.Query(collection, queryVec, opts.MaxResults)
	if err != nil {
		return nil
	}

	var out []scored
	for _, qr := range results {
		similarity := 1 - qr.Distance
		if similarity < opts.Threshold {
			continue
		}
		if name := sourceBasename(qr.Metadata); name != "" {
			names[name] = struct{}{}
		}

		adjusted := similarity
		if opts.Mode == ModeBoth {
			adjusted = similarity * weight
		}

		meta := qr.Metadata
		if isChunk {
			meta = withLineRange(meta)
		}
		out = append(out, scored{
			Result:   Result{Document: qr.Document, Metadata: meta, Similarity: similarity, IsChunk: isChunk},
			adjusted: adjusted,
		})
	}
	return out
}

func validate(opts *Options) error {
	if opts.Collection == "" {
		opts.Collection = store.DefaultCollection
	}
	if opts.Mode == "" {
		opts.Mode = ModeBoth
	}
	switch opts.Mode {
	case ModeChunks, ModeDocuments, ModeBoth:
	default:
		return fmt.Errorf("invalid mode %q", opts.Mode)
	}
	if opts.MaxResults < 1 {
		return fmt.Errorf("max results must be at least 1, got %d", opts.MaxResults)
	}
	if opts.Threshold < 0 || opts.Threshold > 1 {
		return fmt.Errorf("threshold must be in [0, 1], got %v", opts.Threshold)
	}
	return nil
}

// sourceBasename extracts the file name from a result's source metadata,
// stripping either path separator convention.
func sourceBasename(meta map[string]any) string {
	source, ok := meta["source"].(string)
	if !ok || source == "" {
		return ""
	}
	if i := strings.LastIndexAny(source, `/\`); i >= 0 {
		return source[i+1:]
	}
	return source
}

// withLineRange guarantees chunk metadata carries a displayable line_range,
// deriving it from start_line/end_line when an older entry lacks it.
func withLineRange(meta map[string]any) map[string]any {
	if _, ok := meta["line_range"]; ok {
		return meta
	}
	out := make(map[string]any, len(meta)+1)
	for k, v := range meta {
		out[k] = v
	}
	start, haveStart := meta["start_line"]
	end, haveEnd := meta["end_line"]
	if haveStart && haveEnd {
		out["line_range"] = fmt.Sprintf("%v-%v", start, end)
	} else {
		out["line_range"] = "unknown"
	}
	return out
}

func sortedNames(set map[string]struct{}) []string {
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
