/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"testing"
	"time"
)

func TestClearAndStats(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1024, MaxPerField: 10, MinInterval: time.Millisecond})
	m.Record(Snapshot{Field: "body", Text: "abcdef", TS: time.Now()})
	m.Undo("body", "abcdefg")
	tb, _, _ := m.Stats()
	if tb != len("abcdefg") {
		t.Fatalf("redo bytes not accounted: %d", tb)
	}
	m.Clear()
	tb2, fields, total := m.Stats()
	if tb2 != 0 || fields != 0 || total != 0 || m.CanRedo("body") {
		t.Fatalf("expected cleared stats to be zero, got tb=%d fields=%d total=%d", tb2, fields, total)
	}
}

func TestRecordClearsRedo(t *testing.T) {
	m := NewManager(Config{MinInterval: time.Millisecond})
	t0 := time.Now()
	m.Record(Snapshot{Field: "body", Text: "a", TS: t0})
	m.Undo("body", "b")
	if !m.CanRedo("body") {
		t.Fatalf("expected redo after undo")
	}
	m.Record(Snapshot{Field: "body", Text: "a", TS: t0.Add(time.Second)})
	if m.CanRedo("body") {
		t.Fatalf("a new edit must drop redo")
	}
}

func TestGlobalPruneAcrossFields(t *testing.T) {
	m := NewManager(Config{MaxBytes: 8, MinInterval: time.Millisecond})
	t0 := time.Now()
	m.Record(Snapshot{Field: "title", Text: "xxxx", TS: t0})
	m.Record(Snapshot{Field: "body", Text: "yyyy", TS: t0.Add(time.Second)})
	m.Record(Snapshot{Field: "body", Text: "zzzz", TS: t0.Add(2 * time.Second)})

	if _, ok := m.Undo("title", "x"); ok {
		t.Fatalf("expected the oldest title step to have been pruned")
	}
	if _, ok := m.Undo("body", "w"); !ok {
		t.Fatalf("expected body to keep its steps")
	}
}
