/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "gostoryboard/internal/log"
	"gostoryboard/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// schemaVersion tracks the cache schema. Bump it and add a migration step for breaking changes.
const schemaVersion = 2

// Index is an open decode cache.
type Index struct {
	db   *sql.DB
	path string
}

// Entry describes one cached decode.
type Entry struct {
	Key       string
	Name      string
	Objects   int
	Commands  int
	CreatedAt time.Time
}

// Key derives the cache key for a pair of source documents.
func Key(base, overlay string) string {
	h := sha256.New()
	h.Write([]byte(base))
	h.Write([]byte{0})
	h.Write([]byte(overlay))
	return hex.EncodeToString(h.Sum(nil))
}

// OpenIndex opens or creates the cache at path, enables WAL mode and brings the
// schema up to date. A file that fails to open or passes no integrity check is
// backed up next to itself and replaced by a fresh cache.
func OpenIndex(path string) (*Index, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_open").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("index path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		l.Error("create index dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	db, err := openDB(path)
	if err == nil && !healthy(db) {
		_ = db.Close()
		err = errors.New("integrity check failed")
	}
	if err != nil {
		l.Warn("index unusable, recreating", slog.Any("err", err))
		backupIndexFile(path)
		for _, suffix := range []string{"", "-wal", "-shm"} {
			_ = os.Remove(path + suffix)
		}
		if db, err = openDB(path); err != nil {
			l.Error("recreate index failed", slog.Any("err", err))
			return nil, err
		}
	}
	l.Debug("index ready")
	return &Index{db: db, path: path}, nil
}

func openDB(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	for _, step := range []func(context.Context, *sql.DB) error{ensureMetaAndVersion, ensureSchema, runMigrations} {
		if err := step(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

func healthy(db *sql.DB) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var chk string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(chk), "ok")
}

// Path returns the database file location.
func (ix *Index) Path() string { return ix.path }

// Close releases the database handle.
func (ix *Index) Close() error { return ix.db.Close() }

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// keep the stored schema so migrations can run
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// ensureSchema creates the version 1 tables.
func ensureSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS decodes (
			key        TEXT PRIMARY KEY,
			name       TEXT    NOT NULL,
			objects    INTEGER NOT NULL,
			commands   INTEGER NOT NULL,
			payload    TEXT    NOT NULL,
			created_at TEXT    NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS command_counts (
			key   TEXT    NOT NULL,
			layer TEXT    NOT NULL,
			type  TEXT    NOT NULL,
			n     INTEGER NOT NULL,
			PRIMARY KEY(key, layer, type),
			FOREIGN KEY(key) REFERENCES decodes(key) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS objects (
			id    INTEGER PRIMARY KEY,
			key   TEXT NOT NULL,
			layer TEXT NOT NULL,
			path  TEXT NOT NULL,
			FOREIGN KEY(key) REFERENCES decodes(key) ON DELETE CASCADE
		);`,
		// Contentless FTS5 index over asset paths, fed from objects via triggers.
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_objects USING fts5(
			path,
			content='',
			tokenize = 'unicode61'
		);`,
		`CREATE TRIGGER IF NOT EXISTS objects_ai AFTER INSERT ON objects BEGIN
			INSERT INTO fts_objects(rowid, path) VALUES (new.id, new.path);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS objects_ad AFTER DELETE ON objects BEGIN
			INSERT INTO fts_objects(fts_objects, rowid, path) VALUES ('delete', old.id, old.path);
		END;`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{
				`CREATE INDEX IF NOT EXISTS idx_objects_key ON objects(key);`,
				`CREATE INDEX IF NOT EXISTS idx_command_counts_type ON command_counts(type);`,
			}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

// backupIndexFile copies the index file into a timestamped backup in a sibling "backups" dir.
func backupIndexFile(indexPath string) {
	data, err := os.ReadFile(indexPath)
	if err != nil {
		return
	}
	bdir := filepath.Join(filepath.Dir(indexPath), "backups")
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	_ = os.WriteFile(filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), stamp)), data, 0o644)
}
