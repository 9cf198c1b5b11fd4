/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package preview projects classified blocks onto lightweight on-screen forms:
// plain styled lines for the editor pane, an outline of headings and an HTML
// fragment with real ruby markup.
package preview

import (
	"html"
	"strconv"
	"strings"

	"shinobiwriter/internal/domain"
	"shinobiwriter/internal/markup"
)

// Line is one low-fidelity preview line.
type Line struct {
	Kind  markup.Kind
	Label string // "HO" or "SECRET" for framed blocks
	Text  string
}

// screenTarget drops the asterisks of the plain target; the preview styles
// emphasis itself.
var screenTarget = markup.Target{
	Ruby:     func(base, reading string) string { return base + "(" + reading + ")" },
	Emphasis: func(label string) string { return "【" + label + "】" },
	Text:     func(s string) string { return s },
}

// Project maps blocks to preview lines, one per block.
func Project(blocks []markup.Block) []Line {
	out := make([]Line, 0, len(blocks))
	for _, b := range blocks {
		ln := Line{Kind: b.Kind}
		switch b.Kind {
		case markup.KindBlank:
		case markup.KindHandout:
			ln.Label = "HO"
			ln.Text = b.Render(screenTarget)
		case markup.KindSecret:
			ln.Label = "SECRET"
			ln.Text = b.Render(screenTarget)
		default:
			ln.Text = b.Render(screenTarget)
		}
		out = append(out, ln)
	}
	return out
}

// Entry is one outline entry.
type Entry struct {
	Index int    // position among headings, 0-based
	Title string // heading text with inline markup rendered plainly
	Line  int    // 1-based source line
}

// Anchor is the HTML id of the heading.
func (e Entry) Anchor() string { return "heading-" + strconv.Itoa(e.Index) }

// Outline lists the headings of blocks in order.
func Outline(blocks []markup.Block) []Entry {
	var out []Entry
	for _, b := range markup.Headings(blocks) {
		out = append(out, Entry{Index: len(out), Title: b.Render(screenTarget), Line: b.Line})
	}
	return out
}

// HTMLTarget renders inline markup as escaped HTML with ruby elements.
var HTMLTarget = markup.Target{
	Ruby:     func(base, reading string) string { return "<ruby>" + base + "<rt>" + reading + "</rt></ruby>" },
	Emphasis: func(label string) string { return "<strong class=\"emphasis\">【" + label + "】</strong>" },
	Text:     html.EscapeString,
}

// HTML renders the header section and every block as an HTML fragment.
// Secret blocks fold in a details element; printed outputs always show them.
func HTML(doc domain.Document, blocks []markup.Block) string {
	var b strings.Builder
	b.WriteString("<section class=\"trailer\">\n")
	if img := strings.TrimSpace(doc.HeaderImage); img != "" {
		b.WriteString("  <img src=\"" + html.EscapeString(img) + "\" alt=\"trailer\" />\n")
	}
	b.WriteString("  <h1>" + html.EscapeString(doc.DisplayTitle("Untitled scenario")) + "</h1>\n")
	if s := strings.TrimSpace(doc.Summary); s != "" {
		b.WriteString("  <p class=\"summary\">" + markup.Transform(s, HTMLTarget) + "</p>\n")
	}
	b.WriteString("</section>\n")

	heading := 0
	for _, blk := range blocks {
		text := strings.ReplaceAll(blk.Render(HTMLTarget), "\n", "<br />")
		switch blk.Kind {
		case markup.KindBlank:
			b.WriteString("<br />\n")
		case markup.KindHeading:
			b.WriteString("<h2 class=\"scene-title\" id=\"heading-" + strconv.Itoa(heading) + "\">" + text + "</h2>\n")
			heading++
		case markup.KindQuote:
			b.WriteString("<blockquote class=\"description-box\">" + text + "</blockquote>\n")
		case markup.KindHandout:
			b.WriteString("<div class=\"handout\"><span class=\"label\">HO</span> " + text + "</div>\n")
		case markup.KindSecret:
			b.WriteString("<details class=\"secret-box\"><summary>SECRET</summary>" + text + "</details>\n")
		default:
			b.WriteString("<p>" + text + "</p>\n")
		}
	}
	return b.String()
}
