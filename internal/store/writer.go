package store

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"docdex/internal/logsink"
)

// ResolveNames returns the set of collection names a write or delete targets:
// always "default", plus the caller's collection when it names another one.
func ResolveNames(collection string) []string {
	names := []string{DefaultCollection}
	if collection != "" && !strings.EqualFold(collection, DefaultCollection) {
		names = append(names, collection)
	}
	return names
}

// documentsCollection and chunksCollection derive the physical collection
// names for one logical name.
func documentsCollection(name string) string { return name + "_documents" }
func chunksCollection(name string) string    { return name + "_chunks" }

// normalizeText applies Unicode NFKD so lookups are robust to representation
// variance in source documents.
func normalizeText(text string) string {
	return norm.NFKD.String(text)
}

// UpsertDocument writes doc into `{name}_documents` and `{name}_chunks` for
// every resolved collection name, replacing any prior entry with the same id
// or source. The prior-entry deletes are independently best-effort; a
// failure writing one resolved name aborts before later names are attempted,
// and names already written are not rolled back — re-running the ingestion
// is safe because of the replace semantics. Returns the resolved names.
func (s *Store) UpsertDocument(doc DocumentRecord, collection string, log logsink.Sink) ([]string, error) {
	if log == nil {
		log = logsink.Nop{}
	}
	names := ResolveNames(collection)

	for _, name := range names {
		docs, err := s.Collection(documentsCollection(name))
		if err != nil {
			return nil, err
		}
		chunks, err := s.Collection(chunksCollection(name))
		if err != nil {
			return nil, err
		}

		// Best-effort replacement. A prior entry may exist under the same id,
		// or under the same source if the id scheme changed between
		// ingestions; not finding one is not an error.
		if deleted, err := docs.DeleteID(doc.ID); err == nil && deleted {
			log.Append(fmt.Sprintf("INFO:Removed existing document with ID: %s from %s", doc.ID, name))
		}
		if deleted, err := docs.DeleteWhereSource(doc.Source); err == nil && deleted {
			log.Append(fmt.Sprintf("INFO:Removed existing document with source: %s from %s", doc.Source, name))
		}
		if deleted, err := chunks.DeleteWhereSource(doc.Source); err == nil && deleted {
			log.Append(fmt.Sprintf("INFO:Removed existing chunks for source: %s from %s", doc.Source, name))
		}

		docMeta := map[string]any{
			"source":     doc.Source,
			"collection": name,
			"created_at": doc.Embedding.CreatedAt,
			"duration":   doc.Embedding.Duration,
		}
		err = docs.Add(
			[]string{doc.ID},
			[]string{normalizeText(doc.Text)},
			[]map[string]any{docMeta},
			[][]float32{doc.Embedding.Values},
		)
		if err != nil {
			return nil, fmt.Errorf("add document to %s: %w", name, err)
		}
		log.Append(fmt.Sprintf("INFO:Added document to %s collection with ID: %s", name, doc.ID))

		if len(doc.Chunks) == 0 {
			log.Append(fmt.Sprintf("INFO:No chunks to add for document ID: %s in %s", doc.ID, name))
			continue
		}

		ids := make([]string, len(doc.Chunks))
		texts := make([]string, len(doc.Chunks))
		metas := make([]map[string]any, len(doc.Chunks))
		vecs := make([][]float32, len(doc.Chunks))
		for i, ch := range doc.Chunks {
			ids[i] = ChunkID(doc.ID, ch.Index)
			texts[i] = normalizeText(ch.Text)
			metas[i] = map[string]any{
				"source":       doc.Source,
				"collection":   name,
				"source_id":    doc.ID,
				"chunk_id":     ch.Index,
				"total_chunks": len(doc.Chunks),
				"start_line":   ch.StartLine,
				"end_line":     ch.EndLine,
				"line_range":   fmt.Sprintf("%d-%d", ch.StartLine, ch.EndLine),
				"created_at":   ch.Embedding.CreatedAt,
				"duration":     ch.Embedding.Duration,
			}
			vecs[i] = ch.Embedding.Values
		}
		if err := chunks.Add(ids, texts, metas, vecs); err != nil {
			return nil, fmt.Errorf("add chunks to %s: %w", name, err)
		}
		log.Append(fmt.Sprintf("INFO:Added %d chunks to %s collection", len(doc.Chunks), name))
	}
	return names, nil
}

// ChunkID derives the storage id of one chunk from its parent document id.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, index)
}

// DeleteBySource removes every document and chunk entry whose source matches
// sourcePath, across all resolved collection names. Collections that were
// never created are skipped. Reports whether any entry was removed.
func (s *Store) DeleteBySource(sourcePath, collection string) (bool, error) {
	removed := false
	for _, name := range ResolveNames(collection) {
		for _, physical := range []string{documentsCollection(name), chunksCollection(name)} {
			c, err := s.GetCollection(physical)
			if err != nil {
				continue
			}
			ok, err := c.DeleteWhereSource(sourcePath)
			if err != nil {
				return removed, fmt.Errorf("delete by source from %s: %w", physical, err)
			}
			removed = removed || ok
		}
	}
	return removed, nil
}
