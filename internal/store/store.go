// Package store persists document and chunk vectors in a path-addressed
// SQLite database with sqlite-vec indexes, one logical collection per name.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// DefaultCollection is the collection every write is mirrored into.
const DefaultCollection = "default"

const dbFileName = "docdex.db"

var collectionNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Store is a persistent vector store. A Store owns one SQLite database under
// its directory path and any number of named collections inside it.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the store rooted at dir, creating the directory and
// schema as needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	dbPath := filepath.Join(dir, dbFileName)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db, path: dir}, nil
}

// Path returns the store's root directory.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Collection returns the named collection, creating it if absent.
func (s *Store) Collection(name string) (*Collection, error) {
	if !collectionNameRe.MatchString(name) {
		return nil, fmt.Errorf("invalid collection name %q", name)
	}
	_, err := s.db.Exec("INSERT INTO collections (name) VALUES (?) ON CONFLICT(name) DO NOTHING", name)
	if err != nil {
		return nil, fmt.Errorf("create collection %s: %w", name, err)
	}
	return &Collection{store: s, name: name}, nil
}

// GetCollection returns the named collection or an error if it has never
// been created.
func (s *Store) GetCollection(name string) (*Collection, error) {
	if !collectionNameRe.MatchString(name) {
		return nil, fmt.Errorf("invalid collection name %q", name)
	}
	var n string
	err := s.db.QueryRow("SELECT name FROM collections WHERE name = ?", name).Scan(&n)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("collection %s does not exist", name)
	}
	if err != nil {
		return nil, err
	}
	return &Collection{store: s, name: name}, nil
}

// ListCollections returns all collection names in creation order.
func (s *Store) ListCollections() ([]string, error) {
	rows, err := s.db.Query("SELECT name FROM collections ORDER BY rowid")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// Query runs a nearest-neighbor search against the named collection. The
// collection must already exist.
func (s *Store) Query(collection string, embedding []float32, k int) ([]QueryResult, error) {
	c, err := s.GetCollection(collection)
	if err != nil {
		return nil, err
	}
	return c.Query(embedding, k)
}

// Collection is one logical grouping of entries with its own vector index.
type Collection struct {
	store *Store
	name  string
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

func (c *Collection) vecTable() string {
	return `"vec_` + c.name + `"`
}

// dim returns the vector dimension recorded for this collection, 0 when no
// vector has been added yet.
func (c *Collection) dim() (int, error) {
	var d int
	err := c.store.db.QueryRow("SELECT dim FROM collections WHERE name = ?", c.name).Scan(&d)
	if err != nil {
		return 0, err
	}
	return d, nil
}

// ensureVecTable creates the collection's vec0 table for the given dimension
// on first use. The cosine metric makes query distances cosine distances.
func (c *Collection) ensureVecTable(tx *sql.Tx, dim int) error {
	recorded, err := c.dim()
	if err != nil {
		return err
	}
	if recorded != 0 {
		if recorded != dim {
			return fmt.Errorf("collection %s expects %d-dimensional vectors, got %d", c.name, recorded, dim)
		}
		return nil
	}
	ddl := fmt.Sprintf(
		"CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(entry INTEGER PRIMARY KEY, embedding float[%d] distance_metric=cosine)",
		c.vecTable(), dim,
	)
	if _, err := tx.Exec(ddl); err != nil {
		return fmt.Errorf("create vector table for %s: %w", c.name, err)
	}
	if _, err := tx.Exec("UPDATE collections SET dim = ? WHERE name = ?", dim, c.name); err != nil {
		return err
	}
	return nil
}

// Add inserts entries with their embeddings. All four slices must be
// parallel. Existing entry ids are not replaced; delete first.
func (c *Collection) Add(ids, documents []string, metadatas []map[string]any, embeddings [][]float32) error {
	if len(ids) != len(documents) || len(ids) != len(metadatas) || len(ids) != len(embeddings) {
		return fmt.Errorf("mismatched lengths: %d ids, %d documents, %d metadatas, %d embeddings",
			len(ids), len(documents), len(metadatas), len(embeddings))
	}
	if len(ids) == 0 {
		return nil
	}

	tx, err := c.store.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := c.ensureVecTable(tx, len(embeddings[0])); err != nil {
		return err
	}

	entryStmt, err := tx.Prepare("INSERT INTO entries (collection, entry_id, document, metadata) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer entryStmt.Close()

	vecStmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s (entry, embedding) VALUES (?, ?)", c.vecTable()))
	if err != nil {
		return err
	}
	defer vecStmt.Close()

	for i, id := range ids {
		meta, err := json.Marshal(metadatas[i])
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", id, err)
		}
		res, err := entryStmt.Exec(c.name, id, documents[i], string(meta))
		if err != nil {
			return fmt.Errorf("insert entry %s: %w", id, err)
		}
		rowid, err := res.LastInsertId()
		if err != nil {
			return err
		}
		blob, err := sqlite_vec.SerializeFloat32(embeddings[i])
		if err != nil {
			return fmt.Errorf("serialize embedding for %s: %w", id, err)
		}
		if _, err := vecStmt.Exec(rowid, blob); err != nil {
			return fmt.Errorf("insert embedding for %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// DeleteID removes one entry by id. The boolean reports whether an entry
// existed; callers running best-effort replacement ignore both false and
// true, but not errors.
func (c *Collection) DeleteID(id string) (bool, error) {
	return c.deleteWhere("entry_id = ?", id)
}

// DeleteWhereSource removes every entry whose metadata source field matches
// sourcePath. The boolean reports whether anything was deleted.
func (c *Collection) DeleteWhereSource(sourcePath string) (bool, error) {
	return c.deleteWhere("json_extract(metadata, '$.source') = ?", sourcePath)
}

func (c *Collection) deleteWhere(cond string, arg any) (bool, error) {
	tx, err := c.store.db.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	rows, err := tx.Query("SELECT id FROM entries WHERE collection = ? AND "+cond, c.name, arg)
	if err != nil {
		return false, err
	}
	var rowids []int64
	for rows.Next() {
		var rid int64
		if err := rows.Scan(&rid); err != nil {
			rows.Close()
			return false, err
		}
		rowids = append(rowids, rid)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, err
	}
	if len(rowids) == 0 {
		return false, nil
	}

	dim, err := c.dim()
	if err != nil {
		return false, err
	}
	for _, rid := range rowids {
		if dim != 0 {
			if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE entry = ?", c.vecTable()), rid); err != nil {
				return false, err
			}
		}
		if _, err := tx.Exec("DELETE FROM entries WHERE id = ?", rid); err != nil {
			return false, err
		}
	}
	return true, tx.Commit()
}

// QueryResult is one nearest-neighbor hit. Distance is cosine distance.
type QueryResult struct {
	ID       string
	Document string
	Metadata map[string]any
	Distance float64
}

// Query returns up to k nearest neighbors by cosine distance, closest
// first. An empty collection yields no results.
func (c *Collection) Query(embedding []float32, k int) ([]QueryResult, error) {
	dim, err := c.dim()
	if err != nil {
		return nil, err
	}
	if dim == 0 || k <= 0 {
		return nil, nil
	}

	blob, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return nil, fmt.Errorf("serialize query embedding: %w", err)
	}
	rows, err := c.store.db.Query(fmt.Sprintf(`
		SELECT e.entry_id, e.document, e.metadata, v.distance
		FROM %s v
		JOIN entries e ON e.id = v.entry
		WHERE v.embedding MATCH ? AND v.k = ?
		ORDER BY v.distance
		LIMIT ?
	`, c.vecTable()), blob, k, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		var r QueryResult
		var meta string
		if err := rows.Scan(&r.ID, &r.Document, &meta, &r.Distance); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(meta), &r.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for %s: %w", r.ID, err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Count returns the number of entries in the collection.
func (c *Collection) Count() (int, error) {
	var n int
	err := c.store.db.QueryRow("SELECT COUNT(*) FROM entries WHERE collection = ?", c.name).Scan(&n)
	return n, err
}

// SampleMetadata returns the metadata of the oldest entry, or nil when the
// collection is empty.
func (c *Collection) SampleMetadata() (map[string]any, error) {
	var meta string
	err := c.store.db.QueryRow(
		"SELECT metadata FROM entries WHERE collection = ? ORDER BY id LIMIT 1", c.name,
	).Scan(&meta)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(meta), &m); err != nil {
		return nil, err
	}
	return m, nil
}
