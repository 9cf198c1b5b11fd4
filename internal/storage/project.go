/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"shinobiwriter/internal/domain"
)

const (
	// DataDirName holds backups and the index next to a project file.
	DataDirName    = ".shinobiwriter"
	BackupsDirName = "backups"

	// KeepBackups bounds the number of backups kept per project file.
	KeepBackups = 20
)

//go:embed schema/project.schema.json
var projectSchema []byte

var projectSchemaLoader = gojsonschema.NewBytesLoader(projectSchema)

// BackupDir returns the backup directory for the project at path.
func BackupDir(path string) string {
	return filepath.Join(filepath.Dir(path), DataDirName, BackupsDirName)
}

// MarshalProject encodes doc as pretty-printed UTF-8 JSON. Non-ASCII text and
// HTML-significant characters are written as is.
func MarshalProject(doc domain.Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveProject writes doc to path with transactional semantics and a
// timestamped backup of the previous file, if present.
func SaveProject(path string, doc domain.Document) error {
	if strings.TrimSpace(path) == "" {
		return domain.Errorf(domain.KindIOFailure, "save project", path, "no path")
	}
	data, err := MarshalProject(doc)
	if err != nil {
		return domain.Wrap(domain.KindIOFailure, "save project", path, fmt.Errorf("marshal: %w", err))
	}

	if _, statErr := os.Stat(path); statErr == nil {
		bdir := BackupDir(path)
		stamp := time.Now().Format("20060102-150405.000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(path), stamp))
		if cerr := copyFile(path, bpath); cerr != nil {
			return domain.Wrap(domain.KindIOFailure, "save project", path, fmt.Errorf("backup current file: %w", cerr))
		}
		pruneBackups(path, KeepBackups)
	}

	if err := WriteFileAtomic(path, data); err != nil {
		return domain.Wrap(domain.KindIOFailure, "save project", path, err)
	}
	return nil
}

// LoadProject reads and validates the project file at path. Unreadable files
// are KindIOFailure, malformed ones KindPersistenceFormatError.
func LoadProject(path string) (domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, domain.Wrap(domain.KindIOFailure, "load project", path, err)
	}
	doc, err := DecodeProject(data)
	if err != nil {
		return domain.Document{}, domain.Wrap(domain.KindPersistenceFormatError, "load project", path, err)
	}
	return doc, nil
}

// DecodeProject validates data against the project schema and decodes it.
// Missing fields are left empty.
func DecodeProject(data []byte) (domain.Document, error) {
	if !json.Valid(data) {
		return domain.Document{}, errors.New("not valid JSON")
	}
	res, err := gojsonschema.Validate(projectSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return domain.Document{}, fmt.Errorf("validate: %w", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return domain.Document{}, fmt.Errorf("schema: %s", strings.Join(msgs, "; "))
	}
	var raw struct {
		Title       string            `json:"title"`
		Body        string            `json:"text_content"`
		HeaderImage *string           `json:"header_image_path"`
		Summary     string            `json:"summary"`
		Handouts    map[string]string `json:"handouts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.Document{}, err
	}
	doc := domain.Document{Title: raw.Title, Body: raw.Body, Summary: raw.Summary}
	if len(raw.Handouts) > 0 {
		doc.Handouts = raw.Handouts
	}
	if raw.HeaderImage != nil {
		doc.HeaderImage = *raw.HeaderImage
	}
	return doc, nil
}

// Backups lists the backups of the project at path, newest first.
func Backups(path string) ([]string, error) {
	ents, err := os.ReadDir(BackupDir(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	prefix := filepath.Base(path) + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(BackupDir(path), name))
		}
	}
	// timestamp in name yields lexicographic order
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out, nil
}

// LatestBackup loads the newest readable backup of the project at path.
func LatestBackup(path string) (domain.Document, string, error) {
	list, err := Backups(path)
	if err != nil {
		return domain.Document{}, "", err
	}
	for _, b := range list {
		doc, err := LoadProject(b)
		if err == nil {
			return doc, b, nil
		}
	}
	return domain.Document{}, "", domain.Errorf(domain.KindIOFailure, "restore backup", path, "no usable backup")
}

func pruneBackups(path string, keep int) {
	list, err := Backups(path)
	if err != nil || len(list) <= keep {
		return
	}
	for _, old := range list[keep:] {
		_ = os.Remove(old)
	}
}

// AutosaveCrash writes doc next to path as <name>.crash-<stamp>.json without
// touching the project file itself. An empty path saves into the temp dir.
func AutosaveCrash(path string, doc domain.Document) (string, error) {
	dir, name := os.TempDir(), "untitled"
	if strings.TrimSpace(path) != "" {
		dir = filepath.Dir(path)
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	out := filepath.Join(dir, fmt.Sprintf("%s.crash-%s.json", name, time.Now().Format("20060102-150405")))
	data, err := MarshalProject(doc)
	if err != nil {
		return "", err
	}
	if err := WriteFileAtomic(out, data); err != nil {
		return "", domain.Wrap(domain.KindIOFailure, "autosave", out, err)
	}
	return out, nil
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = WriteAtomic(dst, func(w io.Writer) error {
		_, err := io.Copy(w, sf)
		return err
	})
	return err
}
