package embedder

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrUnrecognizedShape reports a response that parsed as JSON but matched
// none of the known embedding layouts. This is a data-contract error, not a
// transient one.
var ErrUnrecognizedShape = errors.New("unrecognized embedding response shape")

// The service is not guaranteed to return a single canonical shape. Each
// matcher recognizes exactly one layout; the first match wins.
type shapeMatcher func(payload []byte) ([]float32, bool)

var shapeMatchers = []shapeMatcher{
	matchObjectEmbedding,
	matchObjectEmbeddings,
	matchObjectList,
	matchBareVector,
}

// parseEmbedding resolves payload against the known response shapes in
// order. A payload matching no shape yields ErrUnrecognizedShape.
func parseEmbedding(payload []byte) ([]float32, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, ErrUnrecognizedShape
	}
	for _, match := range shapeMatchers {
		if values, ok := match(trimmed); ok {
			return values, nil
		}
	}
	return nil, ErrUnrecognizedShape
}

// {"embedding": [0.1, ...]}
func matchObjectEmbedding(payload []byte) ([]float32, bool) {
	var resp struct {
		Embedding []float32 `json:"embedding"`
	}
	if payload[0] != '{' || json.Unmarshal(payload, &resp) != nil {
		return nil, false
	}
	return resp.Embedding, resp.Embedding != nil
}

// {"embeddings": [[0.1, ...], ...]} or {"embeddings": [0.1, ...]}
func matchObjectEmbeddings(payload []byte) ([]float32, bool) {
	if payload[0] != '{' {
		return nil, false
	}
	var nested struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if json.Unmarshal(payload, &nested) == nil && len(nested.Embeddings) > 0 {
		return nested.Embeddings[0], true
	}
	var flat struct {
		Embeddings []float32 `json:"embeddings"`
	}
	if json.Unmarshal(payload, &flat) == nil && flat.Embeddings != nil {
		return flat.Embeddings, true
	}
	return nil, false
}

// [{"embedding": [...]}, ...] or [{"embeddings": [...]}, ...] — first item wins.
func matchObjectList(payload []byte) ([]float32, bool) {
	var items []struct {
		Embedding  []float32 `json:"embedding"`
		Embeddings []float32 `json:"embeddings"`
	}
	if payload[0] != '[' || json.Unmarshal(payload, &items) != nil || len(items) == 0 {
		return nil, false
	}
	if items[0].Embedding != nil {
		return items[0].Embedding, true
	}
	if items[0].Embeddings != nil {
		return items[0].Embeddings, true
	}
	return nil, false
}

// [0.1, 0.2, ...]
func matchBareVector(payload []byte) ([]float32, bool) {
	var values []float32
	if payload[0] != '[' || json.Unmarshal(payload, &values) != nil || len(values) == 0 {
		return nil, false
	}
	return values, true
}
