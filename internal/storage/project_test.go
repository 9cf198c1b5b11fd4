/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shinobiwriter/internal/domain"
)

func sampleDoc() domain.Document {
	return domain.Document{
		Title:       `影の夜 "Night" <1>`,
		Body:        "# 導入\n> 静かな夜。\n\n{{HO1}}\n:::secret 執事が犯人 :::\n{影}(かげ) & {{emph}}\r\n  trailing  ",
		HeaderImage: "/tmp/header.png",
		Summary:     "short",
		Handouts:    map[string]string{"HO1": "あなたは忍者だ。\n使命: 巻物を守れ"},
	}
}

func TestSaveLoadProject_RoundTripIsLossless(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.json")
	doc := sampleDoc()
	if err := SaveProject(path, doc); err != nil {
		t.Fatalf("SaveProject: %v", err)
	}
	got, err := LoadProject(path)
	if err != nil {
		t.Fatalf("LoadProject: %v", err)
	}
	if !got.Equal(doc) {
		t.Fatalf("round trip changed document:\n got %#v\nwant %#v", got, doc)
	}
}

func TestSaveProject_HumanReadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.json")
	if err := SaveProject(path, sampleDoc()); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	s := string(data)
	for _, want := range []string{`"title": `, `"text_content": `, `"header_image_path": `, "影の夜", "<1>", "\n  "} {
		if !strings.Contains(s, want) {
			t.Errorf("file missing %q:\n%s", want, s)
		}
	}
}

func TestSaveProject_BacksUpPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.json")
	first := domain.Document{Title: "one"}
	if err := SaveProject(path, first); err != nil {
		t.Fatal(err)
	}
	if list, _ := Backups(path); len(list) != 0 {
		t.Fatalf("first save must not back up: %v", list)
	}
	if err := SaveProject(path, domain.Document{Title: "two"}); err != nil {
		t.Fatal(err)
	}
	list, err := Backups(path)
	if err != nil || len(list) != 1 {
		t.Fatalf("backups = %v, %v", list, err)
	}
	doc, from, err := LatestBackup(path)
	if err != nil || doc.Title != "one" || from != list[0] {
		t.Fatalf("LatestBackup = %+v %q %v", doc, from, err)
	}
}

func TestLoadProject_Errors(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"garbage.json":   "not json at all",
		"truncated.json": `{"title": "x", "text_content": "`,
		"wrongtype.json": `{"title": 3, "text_content": "x"}`,
		"array.json":     `["title"]`,
		"hovalue.json":   `{"handouts": {"HO1": 3}}`,
		"hokey.json":     `{"handouts": {"ho1": "x"}}`,
	}
	for name, content := range cases {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := LoadProject(p)
		if domain.KindOf(err) != domain.KindPersistenceFormatError {
			t.Errorf("%s: kind = %v (%v)", name, domain.KindOf(err), err)
		}
	}
	_, err := LoadProject(filepath.Join(dir, "missing.json"))
	if domain.KindOf(err) != domain.KindIOFailure {
		t.Errorf("missing: kind = %v", domain.KindOf(err))
	}
}

func TestDecodeProject_DefaultsAndNull(t *testing.T) {
	doc, err := DecodeProject([]byte(`{"title": "t", "header_image_path": null, "extra": 1}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Title != "t" || doc.Body != "" || doc.HeaderImage != "" {
		t.Fatalf("doc = %+v", doc)
	}
}

func TestDecodeProject_Handouts(t *testing.T) {
	doc, err := DecodeProject([]byte(`{"title": "t", "handouts": {"HO1": "a", "PC12": "b"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Handouts) != 2 || doc.Handouts["HO1"] != "a" || doc.Handouts["PC12"] != "b" {
		t.Fatalf("handouts = %v", doc.Handouts)
	}
	doc, err = DecodeProject([]byte(`{"title": "t", "handouts": {}}`))
	if err != nil || doc.Handouts != nil {
		t.Fatalf("empty handouts = %v, %v", doc.Handouts, err)
	}
}

func TestPruneBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.json")
	bdir := BackupDir(path)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, stamp := range []string{"20240101-000000.000", "20240102-000000.000", "20240103-000000.000"} {
		if err := os.WriteFile(filepath.Join(bdir, "p.json."+stamp+".bak"), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	pruneBackups(path, 2)
	list, _ := Backups(path)
	if len(list) != 2 || !strings.Contains(list[0], "20240103") {
		t.Fatalf("after prune: %v", list)
	}
}

func TestAutosaveCrash(t *testing.T) {
	dir := t.TempDir()
	project := filepath.Join(dir, "scenario.json")
	if err := os.WriteFile(project, []byte(`{"title":"on disk"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := AutosaveCrash(project, domain.Document{Title: "unsaved"})
	if err != nil {
		t.Fatalf("AutosaveCrash: %v", err)
	}
	if filepath.Dir(out) != dir || !strings.HasPrefix(filepath.Base(out), "scenario.crash-") {
		t.Fatalf("crash path = %s", out)
	}
	doc, err := LoadProject(out)
	if err != nil || doc.Title != "unsaved" {
		t.Fatalf("crash file = %+v, %v", doc, err)
	}
	onDisk, _ := os.ReadFile(project)
	if string(onDisk) != `{"title":"on disk"}` {
		t.Fatalf("project file touched")
	}
}
