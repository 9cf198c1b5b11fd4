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
	"strings"
	"time"

	"github.com/google/uuid"

	"shinobiwriter/internal/domain"
)

// Snippet is a named markup fragment the editor can insert.
type Snippet struct {
	ID        string
	Name      string
	Content   string
	CreatedAt time.Time
}

// AddSnippet stores a new snippet under a fresh id.
func (ix *Index) AddSnippet(ctx context.Context, name, content string) (Snippet, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Snippet{}, domain.Errorf(domain.KindIOFailure, "add snippet", ix.path, "snippet name is required")
	}
	s := Snippet{ID: uuid.NewString(), Name: name, Content: content, CreatedAt: time.Now().UTC()}
	_, err := ix.db.ExecContext(ctx, `INSERT INTO snippets(id, name, content, created_at) VALUES (?, ?, ?, ?)`,
		s.ID, s.Name, s.Content, s.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Snippet{}, domain.Wrap(domain.KindIOFailure, "add snippet", ix.path, err)
	}
	return s, nil
}

// ListSnippets returns all snippets ordered by name.
func (ix *Index) ListSnippets(ctx context.Context) ([]Snippet, error) {
	rows, err := ix.db.QueryContext(ctx, `SELECT id, name, content, created_at FROM snippets ORDER BY name, created_at`)
	if err != nil {
		return nil, domain.Wrap(domain.KindIOFailure, "list snippets", ix.path, err)
	}
	defer func() { _ = rows.Close() }()
	var out []Snippet
	for rows.Next() {
		var (
			s  Snippet
			ts string
		)
		if err := rows.Scan(&s.ID, &s.Name, &s.Content, &ts); err != nil {
			return nil, err
		}
		s.CreatedAt, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteSnippet removes a snippet by id or by a unique id prefix.
func (ix *Index) DeleteSnippet(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Errorf(domain.KindIOFailure, "delete snippet", ix.path, "snippet id is required")
	}
	var n int
	if err := ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snippets WHERE id LIKE ? || '%'`, id).Scan(&n); err != nil {
		return domain.Wrap(domain.KindIOFailure, "delete snippet", ix.path, err)
	}
	switch {
	case n == 0:
		return domain.Errorf(domain.KindIOFailure, "delete snippet", ix.path, "no snippet %q", id)
	case n > 1:
		return domain.Errorf(domain.KindIOFailure, "delete snippet", ix.path, "snippet id %q is ambiguous", id)
	}
	if _, err := ix.db.ExecContext(ctx, `DELETE FROM snippets WHERE id LIKE ? || '%'`, id); err != nil {
		return domain.Wrap(domain.KindIOFailure, "delete snippet", ix.path, err)
	}
	return nil
}

// SearchSnippets returns snippets whose name or content contains text.
func (ix *Index) SearchSnippets(ctx context.Context, text string) ([]Snippet, error) {
	all, err := ix.ListSnippets(ctx)
	if err != nil || strings.TrimSpace(text) == "" {
		return all, err
	}
	needle := strings.ToLower(text)
	var out []Snippet
	for _, s := range all {
		if strings.Contains(strings.ToLower(s.Name), needle) || strings.Contains(strings.ToLower(s.Content), needle) {
			out = append(out, s)
		}
	}
	return out, nil
}
