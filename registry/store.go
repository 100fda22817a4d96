/*
 * FolderSync - Copyright (C) 2022 Zane van Iperen.
 *    Contact: zane@zanevaniperen.com
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 2, and only
 * version 2 as published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program; if not, write to the Free Software
 * Foundation, Inc., 59 Temple Place, Suite 330, Boston, MA  02111-1307  USA
 */

package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sources (
	uid    TEXT PRIMARY KEY,
	parent TEXT NOT NULL DEFAULT '',
	data   BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sources_parent ON sources(parent);
`

// OpenStore opens (or creates) the sqlite database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Load(ctx context.Context) ([]*Source, error) {
	var rows []sourceRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT uid, parent, data FROM sources ORDER BY uid"); err != nil {
		return nil, fmt.Errorf("loading sources: %w", err)
	}

	sources := make([]*Source, 0, len(rows))
	for _, row := range rows {
		src := &Source{}
		if err := json.Unmarshal(row.Data, src); err != nil {
			return nil, fmt.Errorf("decoding source %q: %w", row.UID, err)
		}
		sources = append(sources, src)
	}

	return sources, nil
}

func (s *Store) Put(ctx context.Context, src *Source) error {
	data, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("encoding source %q: %w", src.UID, err)
	}

	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO sources (uid, parent, data) VALUES (:uid, :parent, :data)
		ON CONFLICT(uid) DO UPDATE SET parent = excluded.parent, data = excluded.data`,
		sourceRow{UID: src.UID, Parent: src.Parent, Data: data},
	)
	if err != nil {
		return fmt.Errorf("storing source %q: %w", src.UID, err)
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, uid string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sources WHERE uid = ?", uid); err != nil {
		return fmt.Errorf("deleting source %q: %w", uid, err)
	}

	return nil
}
