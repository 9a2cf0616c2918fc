package dataset

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// shardSchemaVersion is the current shard schema version. Bump this when the
// schema changes; shards written under another version are refused rather
// than misread.
const shardSchemaVersion = 1

// ErrSchemaMismatch indicates a shard was written under a different schema
// version than this build understands.
var ErrSchemaMismatch = errors.New("shard schema version mismatch")

func shardFileName(index int) string {
	return fmt.Sprintf("shard-%05d.db", index)
}

// listShards returns the published shard files of a corpus directory in
// index order. Unpublished *.tmp leftovers are ignored.
func listShards(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "shard-*.db"))
	if err != nil {
		return nil, fmt.Errorf("list shards: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}

func openShardDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	return db, nil
}

func createShardSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", shardSchemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func checkShardSchema(ctx context.Context, db *sql.DB, path string) error {
	var version int
	err := db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version of %s: %w", path, err)
	}
	if version != shardSchemaVersion {
		return fmt.Errorf("%w: %s has version %d, expected %d", ErrSchemaMismatch, path, version, shardSchemaVersion)
	}
	return nil
}

// shard is one open, not-yet-published corpus container. While open it lives
// at tmpPath; publishing renames it onto path, the per-shard commit point.
type shard struct {
	db       *sql.DB
	path     string
	tmpPath  string
	episodes int
}

func createShard(ctx context.Context, dir string, index int) (*shard, error) {
	path := filepath.Join(dir, shardFileName(index))
	tmpPath := path + ".tmp"
	// A tmp file at this path is a leftover from an aborted run.
	if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove stale shard tmp: %w", err)
	}
	db, err := openShardDB(tmpPath)
	if err != nil {
		return nil, err
	}
	if err := createShardSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &shard{db: db, path: path, tmpPath: tmpPath}, nil
}

// seal closes the database handle, leaving the tmp file in place for a later
// publish.
func (s *shard) seal() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return fmt.Errorf("close shard %s: %w", s.tmpPath, err)
	}
	return nil
}

// publish seals the shard and renames it into place.
func (s *shard) publish() error {
	if err := s.seal(); err != nil {
		return err
	}
	if err := os.Rename(s.tmpPath, s.path); err != nil {
		return fmt.Errorf("publish shard %s: %w", s.path, err)
	}
	return nil
}
