package store

// CollectionStats describes one collection for status reporting.
type CollectionStats struct {
	Name           string         `json:"name"`
	Count          int            `json:"count"`
	SampleMetadata map[string]any `json:"sample_metadata"`
}

// Stats summarizes every collection in the store.
type Stats struct {
	TotalCollections int               `json:"total_collections"`
	Collections      []CollectionStats `json:"collections"`
	TotalItems       int               `json:"total_items"`
}

// Stats walks all collections and reports entry counts plus a sample
// metadata entry per non-empty collection.
func (s *Store) Stats() (*Stats, error) {
	names, err := s.ListCollections()
	if err != nil {
		return nil, err
	}

	stats := &Stats{TotalCollections: len(names), Collections: make([]CollectionStats, 0, len(names))}
	for _, name := range names {
		c, err := s.GetCollection(name)
		if err != nil {
			return nil, err
		}
		count, err := c.Count()
		if err != nil {
			return nil, err
		}
		sample, err := c.SampleMetadata()
		if err != nil {
			return nil, err
		}
		stats.Collections = append(stats.Collections, CollectionStats{Name: name, Count: count, SampleMetadata: sample})
		stats.TotalItems += count
	}
	return stats, nil
}
