// Package sqlite implements the document-store artifact on SQLite.
// Ingestion writes it offline; query serving opens it read-only.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/corpora-labs/corpora-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.FragmentStore = (*Store)(nil)

// Store is the SQLite-backed fragment store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the document-store artifact at path and
// applies pending migrations.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	// WAL keeps concurrent readers cheap during query serving.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Open opens an existing document-store artifact for query serving.
// A missing artifact is a configuration error, not an empty store.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: document store artifact %s: %v", domain.ErrConfiguration, path, err)
	}
	return NewStore(path)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}
		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// GetFragment retrieves a fragment by id.
func (s *Store) GetFragment(ctx context.Context, id string) (*domain.Fragment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, text, source_name, location, parent_ref, metadata
		FROM fragments WHERE id = ?
	`, id)

	fragment, err := scanFragment(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrFragmentNotFound, id)
		}
		return nil, fmt.Errorf("scanning fragment: %w", err)
	}
	return fragment, nil
}

// GetReference retrieves a document reference by id.
func (s *Store) GetReference(ctx context.Context, refID string) (*domain.DocumentRef, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT ref_id, metadata, fragment_ids FROM refs WHERE ref_id = ?
	`, refID)

	ref, err := scanReference(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrReferenceNotFound, refID)
		}
		return nil, fmt.Errorf("scanning reference: %w", err)
	}
	return ref, nil
}

// AllReferences iterates every document reference. Each call issues a
// fresh query, so the sequence is restartable.
func (s *Store) AllReferences(ctx context.Context) (driven.ReferenceIterator, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ref_id, metadata, fragment_ids FROM refs ORDER BY ref_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying references: %w", err)
	}
	return &referenceIterator{rows: rows}, nil
}

// FragmentCount returns the number of stored fragments.
func (s *Store) FragmentCount(ctx context.Context) (int, error) {
	var count int
	row := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fragments")
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("counting fragments: %w", err)
	}
	return count, nil
}

// SaveFragments stores fragments in one transaction. Used by the
// offline ingestion/rebuild path, never during query serving.
func (s *Store) SaveFragments(ctx context.Context, fragments []domain.Fragment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fragments (id, text, source_name, location, parent_ref, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			source_name = excluded.source_name,
			location = excluded.location,
			parent_ref = excluded.parent_ref,
			metadata = excluded.metadata
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, fragment := range fragments {
		metadataJSON, err := json.Marshal(orEmptyMap(fragment.Metadata))
		if err != nil {
			return fmt.Errorf("marshalling fragment metadata: %w", err)
		}
		location := fragment.Location
		if location == "" {
			location = domain.LocationUnknown
		}
		if _, err := stmt.ExecContext(ctx, fragment.ID, fragment.Text, fragment.SourceName,
			location, nullString(fragment.ParentRef), string(metadataJSON)); err != nil {
			return fmt.Errorf("saving fragment %s: %w", fragment.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// SaveReference stores or updates a document reference.
func (s *Store) SaveReference(ctx context.Context, ref domain.DocumentRef) error {
	metadataJSON, err := json.Marshal(orEmptyMap(ref.Metadata))
	if err != nil {
		return fmt.Errorf("marshalling reference metadata: %w", err)
	}
	idsJSON, err := json.Marshal(orEmptySlice(ref.FragmentIDs))
	if err != nil {
		return fmt.Errorf("marshalling fragment ids: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO refs (ref_id, metadata, fragment_ids)
		VALUES (?, ?, ?)
		ON CONFLICT(ref_id) DO UPDATE SET
			metadata = excluded.metadata,
			fragment_ids = excluded.fragment_ids
	`, ref.RefID, string(metadataJSON), string(idsJSON))
	if err != nil {
		return fmt.Errorf("saving reference: %w", err)
	}
	return nil
}

// referenceIterator implements driven.ReferenceIterator over sql rows.
type referenceIterator struct {
	rows *sql.Rows
}

// Next returns the next reference, or (nil, nil) when exhausted.
func (it *referenceIterator) Next() (*domain.DocumentRef, error) {
	if !it.rows.Next() {
		if err := it.rows.Err(); err != nil {
			return nil, fmt.Errorf("iterating references: %w", err)
		}
		return nil, nil
	}
	ref, err := scanReference(it.rows.Scan)
	if err != nil {
		return nil, fmt.Errorf("scanning reference: %w", err)
	}
	return ref, nil
}

// Close releases the iterator.
func (it *referenceIterator) Close() error {
	return it.rows.Close()
}

func scanFragment(scan func(...any) error) (*domain.Fragment, error) {
	var fragment domain.Fragment
	var parentRef sql.NullString
	var metadataJSON string
	if err := scan(&fragment.ID, &fragment.Text, &fragment.SourceName,
		&fragment.Location, &parentRef, &metadataJSON); err != nil {
		return nil, err
	}
	fragment.ParentRef = parentRef.String
	if err := json.Unmarshal([]byte(metadataJSON), &fragment.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshaling metadata: %w", err)
	}
	return &fragment, nil
}

func scanReference(scan func(...any) error) (*domain.DocumentRef, error) {
	var ref domain.DocumentRef
	var metadataJSON, idsJSON string
	if err := scan(&ref.RefID, &metadataJSON, &idsJSON); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(metadataJSON), &ref.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshaling metadata: %w", err)
	}
	if err := json.Unmarshal([]byte(idsJSON), &ref.FragmentIDs); err != nil {
		return nil, fmt.Errorf("unmarshaling fragment ids: %w", err)
	}
	return &ref, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func orEmptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
