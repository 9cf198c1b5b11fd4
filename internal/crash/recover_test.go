/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shinobiwriter/internal/session"
	"shinobiwriter/internal/storage"
)

// TestRecover_PanickingCall ensures Recover handles a panic, writes a report,
// autosaves the unsaved document and does not terminate the test process due
// to the injected exitFn.
func TestRecover_PanickingCall(t *testing.T) {
	// Capture stderr temporarily to avoid noisy test logs
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	defer func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(io.Discard, r) // drain pipe
	}()

	called := 0
	oldExit := exitFn
	exitFn = func(code int) { called = code }
	defer func() { exitFn = oldExit }()

	root := t.TempDir()
	project := filepath.Join(root, "night.json")
	s := session.New(session.Options{})
	s.SetTitle("saved")
	if res := s.Save(context.Background(), project); !res.OK {
		t.Fatalf("save: %+v", res)
	}
	s.SetTitle("unsaved edit")

	func() {
		defer Recover(s)
		panic("boom")
	}()

	var report string
	files, _ := os.ReadDir(storage.BackupDir(project))
	for _, f := range files {
		if strings.HasPrefix(f.Name(), "crash-") && strings.HasSuffix(f.Name(), ".log") {
			report = filepath.Join(storage.BackupDir(project), f.Name())
			break
		}
	}
	if report == "" {
		t.Fatalf("expected crash report file under backups dir")
	}
	b, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !bytes.Contains(b, []byte("Panic: boom")) {
		t.Fatalf("report does not contain panic: %s", string(b))
	}

	autosaves, _ := filepath.Glob(filepath.Join(root, "night.crash-*.json"))
	if len(autosaves) != 1 {
		t.Fatalf("expected one crash autosave, got %v", autosaves)
	}
	doc, err := storage.LoadProject(autosaves[0])
	if err != nil || doc.Title != "unsaved edit" {
		t.Fatalf("autosave = %+v, %v", doc, err)
	}
	if onDisk, _ := storage.LoadProject(project); onDisk.Title != "saved" {
		t.Fatalf("project file was overwritten: %q", onDisk.Title)
	}

	if called != 2 {
		t.Fatalf("expected exit code 2, got %d", called)
	}
}

func TestRecoverCurrent_NilSession(t *testing.T) {
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	defer func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(io.Discard, r)
	}()
	called := 0
	oldExit := exitFn
	exitFn = func(code int) { called = code }
	defer func() { exitFn = oldExit }()

	func() {
		defer RecoverCurrent(func() *session.Session { return nil })
		panic("no session yet")
	}()
	if called != 2 {
		t.Fatalf("expected exit code 2, got %d", called)
	}
}
