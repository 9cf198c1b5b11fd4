/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session owns the document being edited. It records undo steps for
// every edit, persists the project file and autosave history, and hands value
// copies of the document to the export pipeline.
package session

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"shinobiwriter/internal/domain"
	"shinobiwriter/internal/export"
	applog "shinobiwriter/internal/log"
	"shinobiwriter/internal/markup"
	"shinobiwriter/internal/preview"
	"shinobiwriter/internal/storage"
	"shinobiwriter/internal/undo"

	"github.com/google/uuid"
)

// Field names an undoable document field.
type Field string

const (
	FieldTitle   Field = "title"
	FieldBody    Field = "body"
	FieldSummary Field = "summary"
	FieldImage   Field = "header_image"
)

// DefaultHandout is the text of the sample scenario's HO1.
const DefaultHandout = "使命: ここに使命\n秘密: ここに秘密"

// DefaultBody is the sample scenario a fresh session starts with.
const DefaultBody = `# 導入
> 霧深い夜、忍びは静かに集う。

{{HO1}}

## 情報収集
:::secret 本当の黒幕は別にいる :::

{忍}(しの)びの掟を胸に進め。

{{SceneTable}}

---

# クライマックス
> 月下、最後の影が交錯する。`

// Options configures a session.
type Options struct {
	Export export.Options
	// Index stores autosave history; nil disables it.
	Index *storage.Index
	// AutosaveKeep caps the history kept per project.
	AutosaveKeep int
	Undo         undo.Config
	// Empty starts with an empty body instead of DefaultBody.
	Empty bool
}

// Session is safe for concurrent use; exports work on a copy taken when they
// start, so edits made meanwhile do not reach an in-flight export.
type Session struct {
	mu    sync.Mutex
	doc   domain.Document
	path  string
	dirty bool
	id    string
	opts  Options
	undo  *undo.Manager
	now   func() time.Time
	log   *slog.Logger
}

// New returns a session holding an untitled document.
func New(opts Options) *Session {
	if opts.AutosaveKeep <= 0 {
		opts.AutosaveKeep = 50
	}
	s := &Session{
		id:   uuid.NewString(),
		opts: opts,
		undo: undo.NewManager(opts.Undo),
		now:  time.Now,
		log:  applog.WithComponent("session"),
	}
	if !opts.Empty {
		s.doc.Body = DefaultBody
		s.doc.Handouts = map[string]string{"HO1": DefaultHandout}
	}
	if opts.Export.Logger == nil {
		s.opts.Export.Logger = s.log
	}
	return s
}

// ID identifies the session in the autosave history.
func (s *Session) ID() string { return s.id }

// Snapshot returns a copy of the current document.
func (s *Session) Snapshot() domain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// Path returns the project file path, or "" before the first save or load.
func (s *Session) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Dirty reports whether there are edits since the last save or load.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

func (s *Session) fieldLocked(f Field) *string {
	switch f {
	case FieldTitle:
		return &s.doc.Title
	case FieldBody:
		return &s.doc.Body
	case FieldSummary:
		return &s.doc.Summary
	case FieldImage:
		return &s.doc.HeaderImage
	}
	return nil
}

func (s *Session) set(f Field, v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.fieldLocked(f)
	if *p == v {
		return
	}
	s.undo.Record(undo.Snapshot{Field: string(f), Text: *p, TS: s.now()})
	*p = v
	s.dirty = true
}

func (s *Session) SetTitle(v string)       { s.set(FieldTitle, v) }
func (s *Session) SetBody(v string)        { s.set(FieldBody, v) }
func (s *Session) SetSummary(v string)     { s.set(FieldSummary, v) }
func (s *Session) SetHeaderImage(v string) { s.set(FieldImage, strings.TrimSpace(v)) }

// SetHandout defines the text printed for handout key; empty text removes the
// key. Handout edits are not recorded for undo. The dictionary is replaced on
// every change so snapshots already handed out keep their contents.
func (s *Session) SetHandout(key, text string) error {
	if !markup.IsHandoutKey(key) {
		return fmt.Errorf("invalid handout key %q", key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.doc.Handouts[key]
	if (ok && cur == text) || (!ok && text == "") {
		return nil
	}
	next := maps.Clone(s.doc.Handouts)
	if next == nil {
		next = make(map[string]string)
	}
	if text == "" {
		delete(next, key)
	} else {
		next[key] = text
	}
	if len(next) == 0 {
		next = nil
	}
	s.doc.Handouts = next
	s.dirty = true
	return nil
}

// HandoutKeys returns the defined handout keys in sorted order.
func (s *Session) HandoutKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.doc.Handouts))
}

// Insert puts text into the body at the rune offset at (clamped to the body)
// and returns the offset just after the inserted text.
func (s *Session) Insert(at int, text string) int {
	s.mu.Lock()
	body := s.doc.Body
	s.mu.Unlock()
	n := utf8.RuneCountInString(body)
	if at < 0 || at > n {
		at = n
	}
	r := []rune(body)
	s.SetBody(string(r[:at]) + text + string(r[at:]))
	return at + utf8.RuneCountInString(text)
}

// Undo reverts the newest edit of f.
func (s *Session) Undo(f Field) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.fieldLocked(f)
	if p == nil {
		return Result{Kind: domain.KindIOFailure, Message: fmt.Sprintf("unknown field %q", f)}
	}
	snap, ok := s.undo.Undo(string(f), *p)
	if !ok {
		return Result{OK: true, Message: "nothing to undo"}
	}
	*p = snap.Text
	s.dirty = true
	return Result{OK: true, Message: fmt.Sprintf("undid %s edit", f)}
}

// Redo re-applies the newest undone edit of f.
func (s *Session) Redo(f Field) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.fieldLocked(f)
	if p == nil {
		return Result{Kind: domain.KindIOFailure, Message: fmt.Sprintf("unknown field %q", f)}
	}
	snap, ok := s.undo.Redo(string(f), *p)
	if !ok {
		return Result{OK: true, Message: "nothing to redo"}
	}
	*p = snap.Text
	s.dirty = true
	return Result{OK: true, Message: fmt.Sprintf("redid %s edit", f)}
}

// Blocks classifies the current body and resolves its handout keys.
func (s *Session) Blocks() []markup.Block { return blocksOf(s.Snapshot()) }

func blocksOf(doc domain.Document) []markup.Block {
	return markup.ResolveHandouts(markup.Parse(doc.Body), doc.Handouts)
}

// Preview projects the current body into preview lines.
func (s *Session) Preview() []preview.Line { return preview.Project(s.Blocks()) }

// Outline lists the headings of the current body.
func (s *Session) Outline() []preview.Entry { return preview.Outline(s.Blocks()) }

// PreviewHTML renders the current document as an HTML fragment.
func (s *Session) PreviewHTML() string {
	doc := s.Snapshot()
	return preview.HTML(doc, blocksOf(doc))
}

// Job builds an export job from a copy of the current document.
func (s *Session) Job() export.Job {
	return export.NewJob(s.Snapshot(), s.opts.Export)
}

// Index returns the history index, or nil when history is disabled.
func (s *Session) Index() *storage.Index { return s.opts.Index }
