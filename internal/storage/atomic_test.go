/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteAtomicReplaces(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "sub", "out.txt")
	if err := WriteFileAtomic(p, []byte("one")); err != nil {
		t.Fatalf("write: %v", err)
	}
	n, err := WriteAtomic(p, func(w io.Writer) error {
		_, err := io.WriteString(w, "second")
		return err
	})
	if err != nil || n != 6 {
		t.Fatalf("write: n=%d err=%v", n, err)
	}
	b, _ := os.ReadFile(p)
	if string(b) != "second" {
		t.Fatalf("content = %q", b)
	}
	assertNoTemps(t, filepath.Dir(p))
}

func TestWriteAtomicFailureKeepsDestination(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "out.pdf")
	if err := os.WriteFile(p, []byte("original"), 0o644); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("backend exploded")
	_, err := WriteAtomic(p, func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected backend error, got %v", err)
	}
	b, _ := os.ReadFile(p)
	if string(b) != "original" {
		t.Fatalf("destination modified: %q", b)
	}
	assertNoTemps(t, dir)

	fresh := filepath.Join(dir, "never.pdf")
	_, _ = WriteAtomic(fresh, func(io.Writer) error { return boom })
	if _, err := os.Stat(fresh); !os.IsNotExist(err) {
		t.Fatalf("failed write must not create the destination")
	}
}

func assertNoTemps(t *testing.T, dir string) {
	t.Helper()
	ents, _ := os.ReadDir(dir)
	for _, e := range ents {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}
