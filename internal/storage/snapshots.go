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
	"time"

	"shinobiwriter/internal/domain"
)

// Snapshot is one autosaved state of a project document.
type Snapshot struct {
	ID      int64
	Project string // absolute project file path, or "" for unsaved sessions
	Session string
	TS      time.Time
	Doc     domain.Document
}

// language=SQL
// dialect=SQLite
const insertSnapshotSQL = `INSERT INTO snapshots(project, session, ts, title, body, summary, image, handouts) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectSnapshotsSQL = `SELECT id, project, session, ts, title, body, summary, image, handouts FROM snapshots WHERE project = ? ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneOldSnapshotsSQL = `DELETE FROM snapshots WHERE project = ? AND id NOT IN (
	SELECT id FROM snapshots WHERE project = ? ORDER BY ts DESC, id DESC LIMIT ?
)`

// SaveSnapshot records doc for project and returns the new row id.
func (ix *Index) SaveSnapshot(ctx context.Context, project, session string, doc domain.Document, ts time.Time) (int64, error) {
	handouts := ""
	if len(doc.Handouts) > 0 {
		b, err := json.Marshal(doc.Handouts)
		if err != nil {
			return 0, domain.Wrap(domain.KindIOFailure, "save snapshot", ix.path, err)
		}
		handouts = string(b)
	}
	res, err := ix.db.ExecContext(ctx, insertSnapshotSQL, project, session, ts.UTC().Format(time.RFC3339Nano),
		doc.Title, doc.Body, doc.Summary, doc.HeaderImage, handouts)
	if err != nil {
		return 0, domain.Wrap(domain.KindIOFailure, "save snapshot", ix.path, err)
	}
	return res.LastInsertId()
}

// LatestSnapshot returns the newest snapshot of project; ok is false when
// there is none.
func (ix *Index) LatestSnapshot(ctx context.Context, project string) (Snapshot, bool, error) {
	list, err := ix.ListSnapshots(ctx, project, 1)
	if err != nil || len(list) == 0 {
		return Snapshot{}, false, err
	}
	return list[0], true, nil
}

// ListSnapshots returns up to limit most recent snapshots of project.
func (ix *Index) ListSnapshots(ctx context.Context, project string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := ix.db.QueryContext(ctx, selectSnapshotsSQL, project, limit)
	if err != nil {
		return nil, domain.Wrap(domain.KindIOFailure, "list snapshots", ix.path, err)
	}
	defer func() { _ = rows.Close() }()
	var out []Snapshot
	for rows.Next() {
		var (
			s        Snapshot
			tsStr    string
			handouts string
		)
		if err := rows.Scan(&s.ID, &s.Project, &s.Session, &tsStr, &s.Doc.Title, &s.Doc.Body, &s.Doc.Summary, &s.Doc.HeaderImage, &handouts); err != nil {
			return nil, err
		}
		s.TS, _ = time.Parse(time.RFC3339Nano, tsStr)
		if err := decodeHandouts(handouts, &s.Doc); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Snapshot returns a single snapshot by id.
func (ix *Index) Snapshot(ctx context.Context, id int64) (Snapshot, error) {
	var (
		s        Snapshot
		tsStr    string
		handouts string
	)
	err := ix.db.QueryRowContext(ctx, `SELECT id, project, session, ts, title, body, summary, image, handouts FROM snapshots WHERE id = ?`, id).
		Scan(&s.ID, &s.Project, &s.Session, &tsStr, &s.Doc.Title, &s.Doc.Body, &s.Doc.Summary, &s.Doc.HeaderImage, &handouts)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, domain.Errorf(domain.KindIOFailure, "snapshot", ix.path, "no snapshot %d", id)
	}
	if err != nil {
		return Snapshot{}, err
	}
	s.TS, _ = time.Parse(time.RFC3339Nano, tsStr)
	if err := decodeHandouts(handouts, &s.Doc); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

func decodeHandouts(raw string, doc *domain.Document) error {
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), &doc.Handouts)
}

// PruneSnapshots keeps at most keepLast snapshots of project and deletes older ones.
func (ix *Index) PruneSnapshots(ctx context.Context, project string, keepLast int) (int64, error) {
	if keepLast <= 0 {
		return 0, nil
	}
	res, err := ix.db.ExecContext(ctx, pruneOldSnapshotsSQL, project, project, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
