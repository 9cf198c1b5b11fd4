/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"strings"

	"shinobiwriter/internal/domain"
	"shinobiwriter/internal/export"
	applog "shinobiwriter/internal/log"
	"shinobiwriter/internal/storage"
)

// Result is the outcome of a user-facing operation together with the status
// line shown for it.
type Result struct {
	OK       bool
	Kind     domain.ErrorKind
	Message  string
	Path     string
	Warnings []string
}

// Cancelled reports a dismissed operation; callers treat it as a no-op.
func (r Result) Cancelled() bool { return r.Kind == domain.KindCancelledByUser }

// Failed reports a real failure, not a cancellation.
func (r Result) Failed() bool { return !r.OK && !r.Cancelled() }

// Err returns the result as an error, or nil for successes and cancellations.
func (r Result) Err() error {
	if !r.Failed() {
		return nil
	}
	return errors.New(r.Message)
}

func failure(err error, path string) Result {
	kind := domain.KindOf(err)
	if kind == domain.KindCancelledByUser {
		return Result{Kind: kind, Message: "cancelled; nothing was written", Path: path}
	}
	return Result{Kind: kind, Message: err.Error(), Path: path}
}

// Save writes the document to path, or to the current project path when path
// is empty, and records it in the autosave history.
func (s *Session) Save(ctx context.Context, path string) Result {
	s.mu.Lock()
	if strings.TrimSpace(path) == "" {
		path = s.path
	}
	doc := s.doc
	s.mu.Unlock()
	if strings.TrimSpace(path) == "" {
		return Result{Kind: domain.KindIOFailure, Message: "no project path; choose where to save"}
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	l := s.log.With(slog.String("op", "save"), slog.String("doc", path))
	if err := storage.SaveProject(path, doc); err != nil {
		l.Error("save failed", slog.Any("err", err))
		return failure(err, path)
	}
	s.mu.Lock()
	s.path = path
	// edits made while saving keep the session dirty
	s.dirty = !s.doc.Equal(doc)
	s.mu.Unlock()
	s.record(ctx, path, doc)
	l.Info("project saved")
	return Result{OK: true, Message: fmt.Sprintf("saved %s", filepath.Base(path)), Path: path}
}

// Load replaces the document with the project at path. On failure the current
// document is left untouched.
func (s *Session) Load(path string) Result {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	doc, err := storage.LoadProject(path)
	if err != nil {
		s.log.Error("load failed", slog.String("doc", path), slog.Any("err", err))
		return failure(err, path)
	}
	s.mu.Lock()
	s.doc = doc
	s.path = path
	s.dirty = false
	s.mu.Unlock()
	s.undo.Clear()
	return Result{OK: true, Message: fmt.Sprintf("opened %s", filepath.Base(path)), Path: path}
}

// Autosave records the current document in the history without touching the
// project file.
func (s *Session) Autosave(ctx context.Context) Result {
	if s.opts.Index == nil {
		return Result{OK: true, Message: "history disabled"}
	}
	s.mu.Lock()
	path, doc := s.path, s.doc
	s.mu.Unlock()
	if err := s.record(ctx, path, doc); err != nil {
		return failure(err, path)
	}
	return Result{OK: true, Message: "autosaved", Path: path}
}

func (s *Session) record(ctx context.Context, path string, doc domain.Document) error {
	ix := s.opts.Index
	if ix == nil {
		return nil
	}
	if _, err := ix.SaveSnapshot(ctx, path, s.id, doc, s.now()); err != nil {
		s.log.Warn("history snapshot failed", slog.Any("err", err))
		return err
	}
	if _, err := ix.PruneSnapshots(ctx, path, s.opts.AutosaveKeep); err != nil {
		s.log.Warn("history prune failed", slog.Any("err", err))
	}
	return nil
}

// Restore replaces the document with history snapshot id. Each text field
// change is undoable; the handout dictionary is replaced as a whole.
func (s *Session) Restore(ctx context.Context, id int64) Result {
	if s.opts.Index == nil {
		return Result{Kind: domain.KindIOFailure, Message: "history disabled"}
	}
	snap, err := s.opts.Index.Snapshot(ctx, id)
	if err != nil {
		return failure(err, "")
	}
	s.SetTitle(snap.Doc.Title)
	s.SetBody(snap.Doc.Body)
	s.SetSummary(snap.Doc.Summary)
	s.SetHeaderImage(snap.Doc.HeaderImage)
	s.mu.Lock()
	if !maps.Equal(s.doc.Handouts, snap.Doc.Handouts) {
		s.doc.Handouts = snap.Doc.Handouts
		s.dirty = true
	}
	s.mu.Unlock()
	return Result{OK: true, Message: fmt.Sprintf("restored snapshot from %s", snap.TS.Local().Format("2006-01-02 15:04:05"))}
}

// Export renders a copy of the current document to outPath. An empty format
// is derived from the file extension.
func (s *Session) Export(ctx context.Context, format, outPath string) Result {
	if strings.TrimSpace(outPath) == "" {
		return Result{Kind: domain.KindIOFailure, Message: "choose an output path"}
	}
	if format == "" {
		format = export.FormatForPath(outPath)
	}
	rep, err := export.Export(applog.ContextWithSession(ctx, s.id), s.Job(), format, outPath)
	if err != nil {
		return failure(err, outPath)
	}
	msg := fmt.Sprintf("exported %s", filepath.Base(rep.Path))
	if rep.Pages > 0 {
		msg = fmt.Sprintf("%s (%d pages)", msg, rep.Pages)
	}
	return Result{OK: true, Message: msg, Path: rep.Path, Warnings: rep.Warnings}
}

// Batch renders the formats of a preset into dir; a non-empty formats list
// replaces the preset's.
func (s *Session) Batch(ctx context.Context, preset export.PresetName, formats []string, dir string) Result {
	reps, err := export.Batch(applog.ContextWithSession(ctx, s.id), s.Job(), export.BatchOptions{Preset: preset, Formats: formats, OutDir: dir})
	var warnings []string
	for _, r := range reps {
		warnings = append(warnings, r.Warnings...)
	}
	if err != nil {
		res := failure(err, dir)
		res.Warnings = warnings
		return res
	}
	return Result{OK: true, Message: fmt.Sprintf("exported %d files", len(reps)), Path: dir, Warnings: warnings}
}
