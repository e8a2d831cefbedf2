/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package catalog publishes decoded storyboards to a shared PostgreSQL database.
package catalog

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"gostoryboard/internal/export"
	applog "gostoryboard/internal/log"
	"gostoryboard/internal/storyboard"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Options locate and authenticate against the catalog database.
// User and Password override whatever the DSN carries.
type Options struct {
	DSN      string
	User     string
	Password string
	Timeout  time.Duration
}

// Catalog is an open connection pool to the catalog database.
type Catalog struct {
	db *sql.DB
}

// Open connects to the catalog and verifies the connection.
func Open(ctx context.Context, opt Options) (*Catalog, error) {
	if strings.TrimSpace(opt.DSN) == "" {
		return nil, errors.New("catalog dsn is required")
	}
	cfg, err := pgx.ParseConfig(opt.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if opt.User != "" {
		cfg.User = opt.User
	}
	if opt.Password != "" {
		cfg.Password = opt.Password
	}
	if opt.Timeout > 0 {
		cfg.ConnectTimeout = opt.Timeout
	}
	db := stdlib.OpenDB(*cfg)
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping catalog: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Close releases the pool.
func (c *Catalog) Close() error { return c.db.Close() }

// Migrate applies embedded SQL migrations in filename order and records each
// one in schema_migrations.
func (c *Catalog) Migrate(ctx context.Context) error {
	l := applog.WithOperation(applog.WithComponent("catalog"), "migrate")
	files, err := migrationFiles()
	if err != nil {
		return err
	}
	// dialect=PostgreSQL
	if _, err := c.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	applied, err := c.appliedVersions(ctx)
	if err != nil {
		return err
	}
	for _, fname := range files {
		version, err := parseVersion(fname)
		if err != nil {
			return err
		}
		if applied[version] {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join("migrations", fname))
		if err != nil {
			return err
		}
		if len(bytes.TrimSpace(b)) == 0 {
			continue
		}
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin %s: %w", fname, err)
		}
		if _, err := tx.ExecContext(ctx, string(b)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", fname, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, name) VALUES($1, $2)`, version, fname); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", fname, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", fname, err)
		}
		l.Info("migration applied", slog.String("file", fname))
	}
	return nil
}

func (c *Catalog) appliedVersions(ctx context.Context) (map[int64]bool, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("select schema_migrations: %w", err)
	}
	defer rows.Close()
	applied := map[int64]bool{}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func migrationFiles() ([]string, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// parseVersion reads the numeric prefix of a migration file such as 0002_counts.sql.
func parseVersion(name string) (int64, error) {
	prefix, _, ok := strings.Cut(path.Base(name), "_")
	if !ok || prefix == "" {
		return 0, errors.New("invalid migration filename: " + name)
	}
	v, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse version from %s: %w", name, err)
	}
	return v, nil
}

// Publish stores sb under its source key and returns the row id. Publishing
// the same key again replaces the document and bumps its version.
func (c *Catalog) Publish(ctx context.Context, name, key string, sb *storyboard.Storyboard) (int64, error) {
	if sb == nil {
		return 0, storyboard.ErrNoStoryboard
	}
	var doc bytes.Buffer
	if err := export.WriteJSON(&doc, export.NewDocument(name, sb)); err != nil {
		return 0, err
	}
	st := sb.Stats()
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin publish: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO storyboards (source_key, name, objects, commands, document)
		VALUES ($1, $2, $3, $4, $5::jsonb)
		ON CONFLICT (source_key) DO UPDATE SET
			name = EXCLUDED.name,
			objects = EXCLUDED.objects,
			commands = EXCLUDED.commands,
			document = EXCLUDED.document,
			published_at = now(),
			version = storyboards.version + 1
		RETURNING id`, key, name, st.Objects, st.Commands, doc.String()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert storyboard: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM command_counts WHERE storyboard_id = $1`, id); err != nil {
		return 0, fmt.Errorf("clear counts: %w", err)
	}
	for _, cc := range sb.CommandCounts() {
		if _, err := tx.ExecContext(ctx, `INSERT INTO command_counts (storyboard_id, layer, type, n) VALUES ($1, $2, $3, $4)`,
			id, cc.Layer.String(), string(cc.Type), cc.N); err != nil {
			return 0, fmt.Errorf("insert count: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit publish: %w", err)
	}
	applog.WithOperation(applog.WithComponent("catalog"), "publish").Info("published",
		slog.Int64("id", id), slog.String("name", name), slog.Int("objects", st.Objects))
	return id, nil
}

// Counts returns the command counts recorded for a published storyboard.
func (c *Catalog) Counts(ctx context.Context, id int64) ([]storyboard.CommandCount, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT layer, type, n FROM command_counts WHERE storyboard_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()
	var out []storyboard.CommandCount
	for rows.Next() {
		var layer, typ string
		var n int
		if err := rows.Scan(&layer, &typ, &n); err != nil {
			return nil, err
		}
		lv, ok := storyboard.ParseLayer(layer)
		if !ok {
			return nil, fmt.Errorf("unknown layer %q in catalog", layer)
		}
		out = append(out, storyboard.CommandCount{Layer: lv, Type: storyboard.CommandType(typ), N: n})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Layer != out[j].Layer {
			return out[i].Layer < out[j].Layer
		}
		return out[i].Type < out[j].Type
	})
	return out, nil
}

// Document loads the exported document of a published storyboard.
func (c *Catalog) Document(ctx context.Context, id int64) (export.Document, error) {
	var raw string
	if err := c.db.QueryRowContext(ctx, `SELECT document::text FROM storyboards WHERE id = $1`, id).Scan(&raw); err != nil {
		return export.Document{}, fmt.Errorf("read document %d: %w", id, err)
	}
	return export.ReadJSON(strings.NewReader(raw))
}
