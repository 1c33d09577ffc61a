package retriever

import (
	"errors"
	"testing"
	"time"

	"docdex/internal/embedder"
	"docdex/internal/store"
)

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(text string) (embedder.Embedding, error) {
	if f.err != nil {
		return embedder.Embedding{}, f.err
	}
	return embedder.Embedding{Values: []float32{1, 0}, Duration: time.Millisecond, CreatedAt: time.Now()}, nil
}

// fakeIndex serves canned results per collection name; missing names error
// like a store would.
type fakeIndex struct {
	collections map[string][]store.QueryResult
}

func (f *fakeIndex) Query(collection string, embedding []float32, k int) ([]store.QueryResult, error) {
	results, ok := f.collections[collection]
	if !ok {
		return nil, errors.New("collection does not exist")
	}
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func docHit(id, source string, distance float64) store.QueryResult {
	return store.QueryResult{
		ID: id, Document: "text of " + id,
		Metadata: map[string]any{"source": source},
		Distance: distance,
	}
}

func chunkHit(id, source string, distance float64) store.QueryResult {
	return store.QueryResult{
		ID: id, Document: "chunk " + id,
		Metadata: map[string]any{"source": source, "start_line": float64(1), "end_line": float64(20), "line_range": "1-20"},
		Distance: distance,
	}
}

func opts(mode Mode) Options {
	return Options{
		Mode: mode, MaxResults: 5, Threshold: 0.5,
		ChunkWeight: DefaultChunkWeight, DocumentWeight: DefaultDocumentWeight,
	}
}

func TestThresholdFiltering(t *testing.T) {
	idx := &fakeIndex{collections: map[string][]store.QueryResult{
		"default_documents": {
			docHit("a", "/x/a.md", 0.1), // similarity 0.9
			docHit("b", "/x/b.md", 0.6), // similarity 0.4 — dropped
			docHit("c", "/x/c.md", 0.4), // similarity 0.6
		},
	}}
	r := New(&fakeEmbedder{}, idx)

	resp, err := r.Query("q", opts(ModeDocuments))
	if err != nil {
		t.Fatal(err)
	}
	if resp.Count != 2 {
		t.Fatalf("count = %d", resp.Count)
	}
	if s := resp.Results[0].Similarity; s < 0.89 || s > 0.91 {
		t.Errorf("top similarity = %v", s)
	}
	if s := resp.Results[1].Similarity; s < 0.59 || s > 0.61 {
		t.Errorf("second similarity = %v", s)
	}
	for _, res := range resp.Results {
		if res.IsChunk {
			t.Error("documents mode returned a chunk result")
		}
	}
}

func TestWeightedRankingInBothMode(t *testing.T) {
	// Chunk raw 0.9 * weight 0.6 = 0.54 vs document raw 0.5 * weight 0.9 =
	// 0.45: chunk ranks first. Then flip the weights so the document wins.
	idx := &fakeIndex{collections: map[string][]store.QueryResult{
		"default_documents": {docHit("d", "/x/d.md", 0.5)},
		"default_chunks":    {chunkHit("c", "/x/c.md", 0.1)},
	}}
	r := New(&fakeEmbedder{}, idx)

	o := opts(ModeBoth)
	o.Threshold = 0.3
	o.ChunkWeight = 0.6
	o.DocumentWeight = 0.9

	resp, err := r.Query("q", o)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Count != 2 || !resp.Results[0].IsChunk {
		t.Fatalf("expected chunk first: %+v", resp.Results)
	}
	// Raw similarity stays unweighted in the response.
	if s := resp.Results[0].Similarity; s < 0.89 || s > 0.91 {
		t.Errorf("chunk similarity = %v, want raw 0.9", s)
	}
	if s := resp.Results[1].Similarity; s < 0.49 || s > 0.51 {
		t.Errorf("document similarity = %v, want raw 0.5", s)
	}

	o.ChunkWeight = 0.4
	o.DocumentWeight = 0.95
	resp, err = r.Query("q", o)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Results[0].IsChunk {
		t.Errorf("expected document first with flipped weights: %+v", resp.Results)
	}
}

func TestSingleModeIgnoresWeights(t *testing.T) {
	idx := &fakeIndex{collections: map[string][]store.QueryResult{
		"default_chunks": {chunkHit("c1", "/x/c.md", 0.2), chunkHit("c2", "/x/c.md", 0.1)},
	}}
	r := New(&fakeEmbedder{}, idx)

	o := opts(ModeChunks)
	o.ChunkWeight = 0.01 // must have no effect outside both mode
	resp, err := r.Query("q", o)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Results[0].Similarity < resp.Results[1].Similarity {
		t.Error("chunks not ranked by raw similarity")
	}
}

func TestMissingIndexDegradesToEmpty(t *testing.T) {
	idx := &fakeIndex{collections: map[string][]store.QueryResult{
		"default_chunks": {chunkHit("c", "/x/c.md", 0.1)},
		// default_documents never created
	}}
	r := New(&fakeEmbedder{}, idx)

	resp, err := r.Query("q", opts(ModeBoth))
	if err != nil {
		t.Fatal(err)
	}
	if resp.Count != 1 || !resp.Results[0].IsChunk {
		t.Errorf("resp = %+v", resp)
	}
}

func TestEmbedFailureAborts(t *testing.T) {
	r := New(&fakeEmbedder{err: errors.New("down")}, &fakeIndex{})
	if _, err := r.Query("q", opts(ModeBoth)); err == nil {
		t.Fatal("expected error when query embedding fails")
	}
}

func TestDocumentNamesCollectedBeforeTruncation(t *testing.T) {
	idx := &fakeIndex{collections: map[string][]store.QueryResult{
		"default_documents": {
			docHit("a", "/x/alpha.md", 0.05),
			docHit("b", `C:\docs\beta.md`, 0.1),
			docHit("c", "/x/gamma.md", 0.15),
		},
	}}
	r := New(&fakeEmbedder{}, idx)

	o := opts(ModeDocuments)
	o.MaxResults = 2
	resp, err := r.Query("q", o)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Count != 2 {
		t.Fatalf("count = %d", resp.Count)
	}
	want := []string{"alpha.md", "beta.md", "gamma.md"}
	if len(resp.DocumentNames) != len(want) {
		t.Fatalf("document names = %v", resp.DocumentNames)
	}
	for i, n := range want {
		if resp.DocumentNames[i] != n {
			t.Errorf("document name %d = %s, want %s", i, resp.DocumentNames[i], n)
		}
	}
}

func TestLineRangeBackfill(t *testing.T) {
	hit := store.QueryResult{
		ID: "c", Document: "chunk",
		Metadata: map[string]any{"source": "/x/a.md", "start_line": float64(3), "end_line": float64(7)},
		Distance: 0.1,
	}
	idx := &fakeIndex{collections: map[string][]store.QueryResult{"default_chunks": {hit}}}
	r := New(&fakeEmbedder{}, idx)

	resp, err := r.Query("q", opts(ModeChunks))
	if err != nil {
		t.Fatal(err)
	}
	if lr := resp.Results[0].Metadata["line_range"]; lr != "3-7" {
		t.Errorf("line_range = %v", lr)
	}
}

func TestValidation(t *testing.T) {
	r := New(&fakeEmbedder{}, &fakeIndex{collections: map[string][]store.QueryResult{}})

	if _, err := r.Query("q", Options{Mode: "sideways", MaxResults: 5, Threshold: 0.5}); err == nil {
		t.Error("invalid mode accepted")
	}
	if _, err := r.Query("q", Options{Mode: ModeBoth, MaxResults: 0, Threshold: 0.5}); err == nil {
		t.Error("zero max results accepted")
	}
	if _, err := r.Query("q", Options{Mode: ModeBoth, MaxResults: 5, Threshold: 1.5}); err == nil {
		t.Error("out-of-range threshold accepted")
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(""); err != nil || m != ModeBoth {
		t.Errorf("empty mode = (%v, %v)", m, err)
	}
	if _, err := ParseMode("nope"); err == nil {
		t.Error("bad mode accepted")
	}
}
