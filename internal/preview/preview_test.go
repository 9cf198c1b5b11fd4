/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package preview

import (
	"strings"
	"testing"

	"shinobiwriter/internal/domain"
	"shinobiwriter/internal/markup"
)

const sample = "# 導入\n> 霧深い夜\n\n{{HO1}}\n:::secret 本当の黒幕 :::\n{忍}(しの)びの{{掟}}"

func TestProject(t *testing.T) {
	lines := Project(markup.Parse(sample))
	if len(lines) != 6 {
		t.Fatalf("expected 6 lines, got %d", len(lines))
	}
	if lines[0].Kind != markup.KindHeading || lines[0].Text != "導入" {
		t.Fatalf("heading = %+v", lines[0])
	}
	if lines[2].Kind != markup.KindBlank || lines[2].Text != "" {
		t.Fatalf("blank = %+v", lines[2])
	}
	if lines[3].Label != "HO" || lines[4].Label != "SECRET" {
		t.Fatalf("labels = %q %q", lines[3].Label, lines[4].Label)
	}
	if lines[5].Text != "忍(しの)びの【掟】" {
		t.Fatalf("inline = %q", lines[5].Text)
	}
}

func TestOutline(t *testing.T) {
	entries := Outline(markup.Parse("# A\ntext\n\n# {B}(b)\n"))
	if len(entries) != 2 {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].Line != 1 || entries[1].Line != 4 || entries[1].Title != "{B}(b)" {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[1].Anchor() != "heading-1" {
		t.Fatalf("anchor = %q", entries[1].Anchor())
	}
}

func TestHeadingsStayLiteral(t *testing.T) {
	blocks := markup.Parse("# {a}(b) {{x}}\n{a}(b) {{x}}")
	lines := Project(blocks)
	if lines[0].Text != "{a}(b) {{x}}" {
		t.Fatalf("heading preview = %q", lines[0].Text)
	}
	if lines[1].Text != "a(b) 【x】" {
		t.Fatalf("paragraph preview = %q", lines[1].Text)
	}
	out := HTML(domain.Document{}, blocks)
	if !strings.Contains(out, `id="heading-0">{a}(b) {{x}}</h2>`) || strings.Contains(out, "<h2 class=\"scene-title\" id=\"heading-0\"><ruby>") {
		t.Fatalf("heading html not literal:\n%s", out)
	}
}

func TestHTMLEscapesAndRuby(t *testing.T) {
	doc := domain.Document{Title: `Say "hi" <now>`, Summary: "{影}(かげ)"}
	out := HTML(doc, markup.Parse("# Say \"hi\"\n> a < b\n"+sample))
	for _, want := range []string{
		"<h1>Say &#34;hi&#34; &lt;now&gt;</h1>",
		"<h2 class=\"scene-title\" id=\"heading-0\">Say &#34;hi&#34;</h2>",
		"<blockquote class=\"description-box\">a &lt; b</blockquote>",
		"<ruby>忍<rt>しの</rt></ruby>",
		"<strong class=\"emphasis\">【掟】</strong>",
		"<details class=\"secret-box\"><summary>SECRET</summary>本当の黒幕</details>",
		"<p class=\"summary\"><ruby>影<rt>かげ</rt></ruby></p>",
		"id=\"heading-1\"",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in\n%s", want, out)
		}
	}
	if strings.Contains(out, "<img") {
		t.Fatalf("no image expected")
	}
}
