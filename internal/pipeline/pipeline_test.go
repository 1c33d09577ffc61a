package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"docdex/internal/embedder"
)

// fakeEmbedder returns a vector derived from the input text and can be told
// to fail for specific texts. It tracks peak concurrency.
type fakeEmbedder struct {
	mu       sync.Mutex
	calls    int
	inflight int32
	peak     int32
	failOn   func(text string) bool
	delay    time.Duration
}

func (f *fakeEmbedder) Embed(text string) (embedder.Embedding, error) {
	cur := atomic.AddInt32(&f.inflight, 1)
	defer atomic.AddInt32(&f.inflight, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if cur <= p || atomic.CompareAndSwapInt32(&f.peak, p, cur) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.failOn != nil && f.failOn(text) {
		return embedder.Embedding{Duration: time.Millisecond}, errors.New("embed failed")
	}
	return embedder.Embedding{
		Values:    []float32{float32(len(text))},
		Duration:  time.Millisecond,
		CreatedAt: time.Now(),
	}, nil
}

func docText(lines int) string {
	out := make([]string, lines)
	for i := range out {
		out[i] = fmt.Sprintf("line %d", i+1)
	}
	return strings.Join(out, "\n")
}

func TestEmbedDocumentOrdering(t *testing.T) {
	f := &fakeEmbedder{delay: 2 * time.Millisecond}
	cfg := Config{ChunkSize: 5, ChunkOverlap: 1, MaxWorkers: 3}

	doc, err := EmbedDocument(docText(30), f, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(doc.Chunks))
	}
	for i, ce := range doc.Chunks {
		if ce.Chunk.Index != i {
			t.Errorf("chunk at position %d has index %d", i, ce.Chunk.Index)
		}
		// Vector encodes the text length, so slot i must hold chunk i's result.
		if want := float32(len(ce.Chunk.Text)); ce.Embedding.Values[0] != want {
			t.Errorf("chunk %d embedding = %v, want %v", i, ce.Embedding.Values[0], want)
		}
	}
	if doc.Document.Values == nil {
		t.Error("document embedding missing")
	}
}

func TestEmbedDocumentBoundedConcurrency(t *testing.T) {
	f := &fakeEmbedder{delay: 5 * time.Millisecond}
	cfg := Config{ChunkSize: 2, ChunkOverlap: 0, MaxWorkers: 3}

	if _, err := EmbedDocument(docText(40), f, cfg, nil); err != nil {
		t.Fatal(err)
	}
	// The document-level call runs outside the pool, so peak is at most
	// MaxWorkers+1.
	if f.peak > 4 {
		t.Errorf("peak concurrency %d exceeds pool bound", f.peak)
	}
}

func TestEmbedDocumentAllOrNothing(t *testing.T) {
	// 5 chunks of 4 lines; fail the 4th chunk (lines 13-16).
	f := &fakeEmbedder{failOn: func(text string) bool {
		return strings.HasPrefix(text, "line 13")
	}}
	cfg := Config{ChunkSize: 4, ChunkOverlap: 0, MaxWorkers: 3}

	doc, err := EmbedDocument(docText(20), f, cfg, nil)
	if err == nil {
		t.Fatal("expected failure when one chunk fails")
	}
	if doc != nil {
		t.Error("no partial result may be exposed")
	}
	if !strings.Contains(err.Error(), "chunk 4") {
		t.Errorf("err = %v", err)
	}
}

func TestEmbedDocumentEmptyInput(t *testing.T) {
	f := &fakeEmbedder{}
	for _, text := range []string{"", "  \n\t "} {
		_, err := EmbedDocument(text, f, Config{ChunkSize: 20, ChunkOverlap: 2}, nil)
		if !errors.Is(err, ErrEmptyInput) {
			t.Errorf("text %q: err = %v", text, err)
		}
	}
	if f.calls != 0 {
		t.Errorf("no network calls may be issued for empty input, got %d", f.calls)
	}
}

func TestEmbedDocumentFailedDocumentCall(t *testing.T) {
	text := docText(10)
	f := &fakeEmbedder{failOn: func(s string) bool { return s == text }}
	_, err := EmbedDocument(text, f, Config{ChunkSize: 4, ChunkOverlap: 0, MaxWorkers: 2}, nil)
	if err == nil || !strings.Contains(err.Error(), "embed document") {
		t.Errorf("err = %v", err)
	}
}

func TestPayloadTextKnob(t *testing.T) {
	f := &fakeEmbedder{}
	doc, err := EmbedDocument(docText(10), f, Config{ChunkSize: 4, ChunkOverlap: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}

	with := doc.ChunkPayloads(true)
	without := doc.ChunkPayloads(false)
	if len(with) != len(without) {
		t.Fatal("knob must not change chunk count")
	}
	for i := range with {
		if with[i].Text == "" {
			t.Errorf("chunk %d text missing with includeText", i)
		}
		if without[i].Text != "" {
			t.Errorf("chunk %d text present without includeText", i)
		}
		if with[i].ChunkID != without[i].ChunkID ||
			with[i].StartLine != without[i].StartLine ||
			len(with[i].Embedding) != len(without[i].Embedding) {
			t.Errorf("chunk %d payloads diverge beyond text", i)
		}
		if with[i].Duration <= 0 || with[i].CreatedAt == "" {
			t.Errorf("chunk %d missing timing fields", i)
		}
	}

	dp := doc.DocumentPayload(false)
	if dp.Text != "" {
		t.Error("document text present without includeText")
	}
}
