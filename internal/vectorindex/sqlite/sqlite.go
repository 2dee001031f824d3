// Package sqlite persists the vector index in a single SQLite database under
// a data directory. Queries are brute-force cosine scans, which is adequate
// for the corpus sizes this system targets.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"ragchat/internal/vectorindex"
	"ragchat/internal/vectorindex/sqlite/migrations"
)

// Index implements vectorindex.Index on a SQLite database.
type Index struct {
	db   *sql.DB
	path string
}

var _ vectorindex.Index = (*Index)(nil)

// NewIndex opens (or creates) the index database under dataDir.
func NewIndex(dataDir string) (*Index, error) {
	if dataDir == "" {
		dataDir = "vector_db"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "index.db")

	// WAL keeps concurrent readers from blocking on writers.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}

	ix := &Index{db: db, path: dbPath}
	if err := ix.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return ix, nil
}

// Close closes the database connection.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Path returns the database file path.
func (ix *Index) Path() string {
	return ix.path
}

// Upsert writes all entries in a single transaction so a multi-chunk batch
// either commits whole or not at all. An existing ID is overwritten in place.
func (ix *Index) Upsert(ctx context.Context, entries []vectorindex.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, filename, ordinal, content, embedding)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			ordinal = excluded.ordinal,
			content = excluded.content,
			embedding = excluded.embedding
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		blob := float32SliceToBytes(e.Vector)
		if _, err := stmt.ExecContext(ctx, e.ID, e.Filename, e.Ordinal, e.Text, blob); err != nil {
			return fmt.Errorf("upserting chunk %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Delete removes the given chunk IDs. Unknown IDs are ignored.
func (ix *Index) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := ix.db.ExecContext(ctx, "DELETE FROM chunks WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

// IDsForFilename resolves a filename to the IDs of its indexed chunks.
func (ix *Index) IDsForFilename(ctx context.Context, filename string) ([]string, error) {
	rows, err := ix.db.QueryContext(ctx, "SELECT id FROM chunks WHERE filename = ?", filename)
	if err != nil {
		return nil, fmt.Errorf("querying chunk ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning chunk id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunk ids: %w", err)
	}
	return ids, nil
}

// Query returns the k entries nearest to vector by cosine distance.
func (ix *Index) Query(ctx context.Context, vector []float32, k int) ([]vectorindex.Hit, error) {
	if k <= 0 {
		k = 5
	}
	rows, err := ix.db.QueryContext(ctx, "SELECT id, filename, ordinal, content, embedding FROM chunks")
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var hits []vectorindex.Hit
	for rows.Next() {
		var e vectorindex.Entry
		var blob []byte
		if err := rows.Scan(&e.ID, &e.Filename, &e.Ordinal, &e.Text, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		e.Vector = bytesToFloat32Slice(blob)
		// vectors are unit length, so cosine distance is 1 - dot
		hits = append(hits, vectorindex.Hit{Entry: e, Distance: 1 - dot(e.Vector, vector)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// migrate applies all pending migrations from the embedded filesystem.
// Migration files are named NNN_description.sql and applied in order.
func (ix *Index) migrate(fsys embed.FS) error {
	_, err := ix.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := ix.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		version, err := strconv.Atoi(strings.SplitN(name, "_", 2)[0])
		if err != nil {
			return fmt.Errorf("parsing migration version from %s: %w", name, err)
		}
		if version <= currentVersion {
			continue
		}
		script, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := ix.db.Exec(string(script)); err != nil {
			return fmt.Errorf("applying migration %s: %w", name, err)
		}
		if _, err := ix.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
