/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// lastJSON returns the last JSON record in the rotated log file at path.
func lastJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log file: %v", err)
	}
	defer f.Close()
	var last string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			last = s
		}
	}
	if last == "" {
		t.Fatalf("no records in %s", path)
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	return m
}

func TestInitWritesExportRecordToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shinobiwriter.log")
	Init(Options{Level: "debug", Format: "json", File: path})
	t.Cleanup(func() { Init(Options{Level: "error"}) })

	l := WithDocument(WithOperation(WithComponent("export"), "export"), "/scenarios/night.pdf")
	ctx := ContextWithSession(context.Background(), "9c1e")
	l.InfoContext(ctx, "export done", slog.String("format", "pdf"), slog.Int("pages", 4))

	m := lastJSON(t, path)
	want := map[string]any{
		"app": "shinobiwriter", "component": "export", "op": "export", "doc": "/scenarios/night.pdf",
		"session": "9c1e", "format": "pdf", "pages": float64(4), "msg": "export done",
	}
	for k, v := range want {
		if m[k] != v {
			t.Errorf("%s = %v, want %v", k, m[k], v)
		}
	}
	if _, ok := m["ver"].(string); !ok {
		t.Errorf("ver missing: %v", m)
	}
}

func TestPrettyHandlerPrintsSource(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(&prettyTextHandler{opts: prettyOpts{Level: slog.LevelInfo, AddSource: true}, w: &buf})
	l.Info("saved", slog.String("doc", "night.json"))
	line := buf.String()
	if !strings.Contains(line, " src=logger_test.go:") {
		t.Fatalf("source missing: %q", line)
	}
	buf.Reset()
	slog.New(&prettyTextHandler{opts: prettyOpts{Level: slog.LevelInfo}, w: &buf}).Info("saved")
	if strings.Contains(buf.String(), "src=") {
		t.Fatalf("source printed without AddSource: %q", buf.String())
	}
}

func TestPrettyHandlerQuotesTitles(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(&prettyTextHandler{opts: prettyOpts{Level: slog.LevelDebug}, w: &buf})
	l.WithGroup("job").Debug("export", slog.String("title", "Night of Shadows"), slog.String("doc", "影の夜.json"),
		slog.String("summary", ""), slog.Int("pages", 3))
	line := buf.String()
	for _, want := range []string{`DBG export`, `job.title="Night of Shadows"`, `job.doc=影の夜.json`, `job.summary=""`, `job.pages=3`} {
		if !strings.Contains(line, want) {
			t.Errorf("line lacks %s: %q", want, line)
		}
	}
}

func TestPrettyHandlerLevel(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(&prettyTextHandler{opts: prettyOpts{Level: parseLevel("warning")}, w: &buf})
	l.Info("autosaved")
	l.Warn("history snapshot failed")
	if got := buf.String(); strings.Contains(got, "autosaved") || !strings.Contains(got, "WRN history snapshot failed") {
		t.Fatalf("output = %q", got)
	}
}

func TestWithDocument(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	WithDocument(base, "  ").Info("untitled")
	WithDocument(base, "/scenarios/night.json").Info("saved")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	var first, second map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatal(err)
	}
	if _, ok := first["doc"]; ok {
		t.Fatalf("blank path should not add doc: %v", first)
	}
	if WithDocument(base, "") != base {
		t.Fatalf("blank path should return the logger itself")
	}
	if second["doc"] != "/scenarios/night.json" {
		t.Fatalf("doc = %v", second["doc"])
	}
}

func TestSessionFromContext(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(withEnricher(slog.NewJSONHandler(&buf, nil)))
	ctx := ContextWithSession(context.Background(), "3f2a")
	if SessionFrom(ctx) != "3f2a" || SessionFrom(context.Background()) != "" {
		t.Fatalf("SessionFrom mismatch")
	}
	if ContextWithSession(context.Background(), "") != context.Background() {
		t.Fatalf("empty id should leave ctx alone")
	}
	l.InfoContext(ctx, "export done", slog.String("format", "pdf"))
	l.Info("no session")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &m); err != nil {
		t.Fatal(err)
	}
	if m["session"] != "3f2a" || m["format"] != "pdf" {
		t.Fatalf("record = %v", m)
	}
	if strings.Contains(lines[1], "session") {
		t.Fatalf("session leaked into %q", lines[1])
	}
}
