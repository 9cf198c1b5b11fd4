/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package undo keeps per-field undo and redo stacks of text states.
package undo

import (
	"sync"
	"time"
)

// Snapshot is the text of one field at a point in time. Its size is
// estimated as len(Text).
type Snapshot struct {
	Field string
	Text  string
	TS    time.Time
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; older entries are pruned when exceeded.
	MaxBytes int
	// MaxPerField limits the undo depth of a single field (0 means unlimited).
	MaxPerField int
	// MinInterval coalesces edits of the same field that arrive within the
	// interval: the state from before the burst is kept, the later ones dropped.
	MinInterval time.Duration
}

// Manager provides in-memory undo/redo stacks per field with memory safeguards.
// It is safe for concurrent use.
type Manager struct {
	cfg Config
	mu  sync.Mutex
	// per-field stacks
	undo map[string][]Snapshot
	redo map[string][]Snapshot
	// accounting over both stacks
	totalBytes int
	// time of the last recorded edit per field, for coalescing
	lastEdit map[string]time.Time
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 8 * 1024 * 1024 // 8 MiB
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 500 * time.Millisecond
	}
	return &Manager{
		cfg:      cfg,
		undo:     make(map[string][]Snapshot),
		redo:     make(map[string][]Snapshot),
		lastEdit: make(map[string]time.Time),
	}
}

// Record stores prev, the state of a field before an edit at s.TS. Edits
// within MinInterval of the previous one on the same field are folded into it.
// Any record clears the field's redo stack.
func (m *Manager) Record(prev Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropRedoLocked(prev.Field)
	last, seen := m.lastEdit[prev.Field]
	m.lastEdit[prev.Field] = prev.TS
	if seen && len(m.undo[prev.Field]) > 0 && prev.TS.Sub(last) < m.cfg.MinInterval {
		return
	}
	m.undo[prev.Field] = append(m.undo[prev.Field], prev)
	m.totalBytes += len(prev.Text)
	m.enforceCapsLocked(prev.Field)
}

// Undo pops the newest state of field and saves current for Redo.
func (m *Manager) Undo(field, current string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[field]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	s := stack[len(stack)-1]
	m.undo[field] = stack[:len(stack)-1]
	m.totalBytes -= len(s.Text)
	m.redo[field] = append(m.redo[field], Snapshot{Field: field, Text: current, TS: time.Now()})
	m.totalBytes += len(current)
	// the next edit starts a new step
	delete(m.lastEdit, field)
	return s, true
}

// Redo pops the newest undone state of field and saves current for Undo.
func (m *Manager) Redo(field, current string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[field]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	m.redo[field] = r[:len(r)-1]
	m.totalBytes -= len(s.Text)
	m.undo[field] = append(m.undo[field], Snapshot{Field: field, Text: current, TS: time.Now()})
	m.totalBytes += len(current)
	delete(m.lastEdit, field)
	m.enforceCapsLocked(field)
	return s, true
}

// CanUndo reports whether field has an undo step.
func (m *Manager) CanUndo(field string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo[field]) > 0
}

// CanRedo reports whether field has a redo step.
func (m *Manager) CanRedo(field string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo[field]) > 0
}

// Clear drops both stacks of every field, e.g. after loading another project.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undo = make(map[string][]Snapshot)
	m.redo = make(map[string][]Snapshot)
	m.lastEdit = make(map[string]time.Time)
	m.totalBytes = 0
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, fields int, totalSnapshots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fields = len(m.undo)
	for _, v := range m.undo {
		totalSnapshots += len(v)
	}
	return m.totalBytes, fields, totalSnapshots
}

func (m *Manager) dropRedoLocked(field string) {
	for _, s := range m.redo[field] {
		m.totalBytes -= len(s.Text)
	}
	delete(m.redo, field)
}

func (m *Manager) enforceCapsLocked(field string) {
	if m.cfg.MaxPerField > 0 {
		stack := m.undo[field]
		if len(stack) > m.cfg.MaxPerField {
			toDrop := len(stack) - m.cfg.MaxPerField
			for i := 0; i < toDrop; i++ {
				m.totalBytes -= len(stack[i].Text)
			}
			m.undo[field] = append([]Snapshot{}, stack[toDrop:]...)
		}
	}
	// Global memory cap: prune the oldest undo step across all fields, but
	// never the one just recorded.
	for m.totalBytes > m.cfg.MaxBytes {
		oldestField := ""
		var oldestTS time.Time
		for f, stack := range m.undo {
			if len(stack) == 0 || (f == field && len(stack) == 1) {
				continue
			}
			if oldestField == "" || stack[0].TS.Before(oldestTS) {
				oldestField = f
				oldestTS = stack[0].TS
			}
		}
		if oldestField == "" {
			break
		}
		stack := m.undo[oldestField]
		m.totalBytes -= len(stack[0].Text)
		m.undo[oldestField] = stack[1:]
		if len(m.undo[oldestField]) == 0 {
			delete(m.undo, oldestField)
		}
	}
}
