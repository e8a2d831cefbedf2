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
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	applog "gostoryboard/internal/log"
	"gostoryboard/internal/storyboard"
)

// Put stores sb under key, replacing any earlier entry. A nil sb records that
// the sources hold no storyboard, so the negative result is cached too.
func (ix *Index) Put(ctx context.Context, key, name string, sb *storyboard.Storyboard) error {
	l := applog.WithOperation(applog.WithComponent("storage"), "put").With(slog.String("key", short(key)))
	payload, err := json.Marshal(sb)
	if err != nil {
		return fmt.Errorf("encode storyboard: %w", err)
	}
	st := sb.Stats()
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{`DELETE FROM objects WHERE key=?`, `DELETE FROM command_counts WHERE key=?`, `DELETE FROM decodes WHERE key=?`} {
		if _, err := tx.ExecContext(ctx, q, key); err != nil {
			return fmt.Errorf("clear entry: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO decodes(key, name, objects, commands, payload, created_at) VALUES(?, ?, ?, ?, ?, ?)`,
		key, name, st.Objects, st.Commands, string(payload), time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("insert decode: %w", err)
	}
	for _, layer := range storyboard.Layers() {
		for _, o := range sb.Layer(layer) {
			if _, err := tx.ExecContext(ctx, `INSERT INTO objects(key, layer, path) VALUES(?, ?, ?)`, key, layer.String(), o.Path); err != nil {
				return fmt.Errorf("insert object: %w", err)
			}
		}
	}
	for _, c := range sb.CommandCounts() {
		if _, err := tx.ExecContext(ctx, `INSERT INTO command_counts(key, layer, type, n) VALUES(?, ?, ?, ?)`, key, c.Layer.String(), string(c.Type), c.N); err != nil {
			return fmt.Errorf("insert command count: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put: %w", err)
	}
	l.Debug("cached", slog.Int("objects", st.Objects), slog.Int("commands", st.Commands))
	return nil
}

// Get returns the entry stored under key. The bool reports whether the key was
// present; a present key may still carry a nil storyboard.
func (ix *Index) Get(ctx context.Context, key string) (*storyboard.Storyboard, bool, error) {
	var payload string
	err := ix.db.QueryRowContext(ctx, `SELECT payload FROM decodes WHERE key=?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read decode: %w", err)
	}
	var sb *storyboard.Storyboard
	if err := json.Unmarshal([]byte(payload), &sb); err != nil {
		return nil, false, fmt.Errorf("decode payload: %w", err)
	}
	return sb, true, nil
}

// Delete removes the entry stored under key. Missing keys are not an error.
func (ix *Index) Delete(ctx context.Context, key string) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, q := range []string{`DELETE FROM objects WHERE key=?`, `DELETE FROM command_counts WHERE key=?`, `DELETE FROM decodes WHERE key=?`} {
		if _, err := tx.ExecContext(ctx, q, key); err != nil {
			return fmt.Errorf("delete entry: %w", err)
		}
	}
	return tx.Commit()
}

// Stats returns the per layer command counts of an entry, ordered by layer then type.
func (ix *Index) Stats(ctx context.Context, key string) ([]storyboard.CommandCount, error) {
	rows, err := ix.db.QueryContext(ctx, `SELECT layer, type, n FROM command_counts WHERE key=?`, key)
	if err != nil {
		return nil, fmt.Errorf("query command counts: %w", err)
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
			return nil, fmt.Errorf("unknown layer %q in cache", layer)
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

// List returns all cached entries, newest first.
func (ix *Index) List(ctx context.Context) ([]Entry, error) {
	rows, err := ix.db.QueryContext(ctx, `SELECT key, name, objects, commands, created_at FROM decodes ORDER BY created_at DESC, key`)
	if err != nil {
		return nil, fmt.Errorf("query decodes: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.Key, &e.Name, &e.Objects, &e.Commands, &created); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Hit is one object whose asset path matched a search.
type Hit struct {
	Key   string
	Name  string
	Layer storyboard.Layer
	Path  string
}

// Search finds cached objects whose asset path contains the given words.
// The query is matched as a phrase, so punctuation in paths is harmless.
func (ix *Index) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	phrase := `"` + strings.ReplaceAll(query, `"`, `""`) + `"`
	rows, err := ix.db.QueryContext(ctx, `
		SELECT o.key, d.name, o.layer, o.path
		FROM fts_objects f
		JOIN objects o ON o.id = f.rowid
		JOIN decodes d ON d.key = o.key
		WHERE fts_objects MATCH ?
		ORDER BY o.key, o.id
		LIMIT ?`, phrase, limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()
	var out []Hit
	for rows.Next() {
		var h Hit
		var layer string
		if err := rows.Scan(&h.Key, &h.Name, &layer, &h.Path); err != nil {
			return nil, err
		}
		h.Layer, _ = storyboard.ParseLayer(layer)
		out = append(out, h)
	}
	return out, rows.Err()
}

func short(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
