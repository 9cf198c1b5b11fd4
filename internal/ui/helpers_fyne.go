//go:build fyne

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"

	"shinobiwriter/internal/markup"
	"shinobiwriter/internal/preview"
	"shinobiwriter/internal/session"
)

const recentPrefsKey = "recent.projects"
const recentMax = 10

func loadRecentProjects(p fyne.Preferences) []string {
	raw := p.StringWithFallback(recentPrefsKey, "")
	var items []string
	if strings.TrimSpace(raw) != "" {
		var tmp []string
		if err := json.Unmarshal([]byte(raw), &tmp); err == nil {
			items = tmp
		}
	}
	// Project files that disappeared are dropped silently.
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if fi, err := os.Stat(s); err == nil && !fi.IsDir() {
			out = append(out, s)
		}
	}
	return out
}

func saveRecentProjects(p fyne.Preferences, items []string) {
	if len(items) > recentMax {
		items = items[:recentMax]
	}
	b, _ := json.Marshal(items)
	p.SetString(recentPrefsKey, string(b))
}

func addRecentProject(p fyne.Preferences, path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	abs, _ := filepath.Abs(path)
	rec := loadRecentProjects(p)
	out := make([]string, 0, 1+len(rec))
	out = append(out, abs)
	for _, s := range rec {
		if strings.EqualFold(s, abs) {
			continue
		}
		out = append(out, s)
	}
	saveRecentProjects(p, out)
}

// windowTitle shows the document title, or the file name for untitled
// documents, with a marker for unsaved edits.
func windowTitle(title, path string, dirty bool) string {
	name := strings.TrimSpace(title)
	if name == "" && path != "" {
		name = filepath.Base(path)
	}
	if name == "" {
		name = "Untitled"
	}
	if dirty {
		name = "* " + name
	}
	return name + " - Shinobi Writer"
}

// statusText renders a session result for the status bar. Cancellations are
// quiet: the previous state was kept.
func statusText(r session.Result) string {
	switch {
	case r.Cancelled():
		return "Cancelled"
	case r.Failed():
		return fmt.Sprintf("Error (%s): %s", r.Kind, r.Message)
	}
	msg := r.Message
	if msg == "" {
		msg = "Done"
	}
	if n := len(r.Warnings); n == 1 {
		msg += " (1 warning)"
	} else if n > 1 {
		msg += fmt.Sprintf(" (%d warnings)", n)
	}
	return msg
}

// cursorOffset converts an entry cursor position into a rune offset into text.
// Positions past the end of a line or of the text are clamped.
func cursorOffset(text string, row, col int) int {
	if row < 0 {
		row = 0
	}
	if col < 0 {
		col = 0
	}
	lines := strings.Split(text, "\n")
	if row >= len(lines) {
		return utf8.RuneCountInString(text)
	}
	off := 0
	for _, ln := range lines[:row] {
		off += utf8.RuneCountInString(ln) + 1
	}
	if n := utf8.RuneCountInString(lines[row]); col > n {
		col = n
	}
	return off + col
}

// rowCol is the inverse of cursorOffset.
func rowCol(text string, offset int) (row, col int) {
	i := 0
	for _, r := range text {
		if i >= offset {
			break
		}
		if r == '\n' {
			row++
			col = 0
		} else {
			col++
		}
		i++
	}
	return row, col
}

// previewSegments lays out preview lines as rich text. Handouts and secrets
// carry their label so they read as framed blocks.
func previewSegments(lines []preview.Line) []widget.RichTextSegment {
	segs := make([]widget.RichTextSegment, 0, len(lines))
	for _, ln := range lines {
		switch ln.Kind {
		case markup.KindBlank:
			continue
		case markup.KindHeading:
			segs = append(segs, &widget.TextSegment{Text: ln.Text, Style: widget.RichTextStyleHeading})
		case markup.KindQuote:
			segs = append(segs, &widget.TextSegment{Text: ln.Text, Style: widget.RichTextStyleBlockquote})
		case markup.KindHandout, markup.KindSecret:
			segs = append(segs,
				&widget.TextSegment{Text: "[" + ln.Label + "] ", Style: widget.RichTextStyleStrong},
				&widget.TextSegment{Text: ln.Text, Style: widget.RichTextStyleParagraph},
			)
		default:
			segs = append(segs, &widget.TextSegment{Text: ln.Text, Style: widget.RichTextStyleParagraph})
		}
	}
	return segs
}

// outlineLabels formats outline entries for the side list.
func outlineLabels(entries []preview.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = fmt.Sprintf("%d. %s  (line %d)", i+1, e.Title, e.Line)
	}
	return out
}
