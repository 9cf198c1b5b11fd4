/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package markup

import (
	"strings"
	"testing"
)

func TestClassifyPrecedence(t *testing.T) {
	cases := []struct {
		line string
		kind Kind
		text string
	}{
		{"", KindBlank, ""},
		{"   \t", KindBlank, ""},
		{"# Intro", KindHeading, "Intro"},
		{"#   Spaced  ", KindHeading, "Spaced"},
		{"#NoSpace", KindParagraph, "#NoSpace"},
		{"# ", KindParagraph, "#"},
		{"> A dark night.", KindQuote, "A dark night."},
		{">", KindQuote, ""},
		{"  > indented", KindParagraph, "> indented"},
		{"{{HO1}}", KindHandout, "HO1"},
		{"  {{ HO 2 }}  ", KindHandout, "HO 2"},
		{"{{}}", KindHandout, ""},
		{"{{}", KindParagraph, "{{}"},
		{"{{open", KindParagraph, "{{open"},
		{":::secret The butler did it. :::", KindSecret, "The butler did it."},
		{":::secret:::", KindSecret, SecretPlaceholder},
		{":::secret   :::", KindSecret, SecretPlaceholder},
		{":::secret", KindParagraph, ":::secret"},
		{":::secret no close", KindParagraph, ":::secret no close"},
		{"  He walked in.  ", KindParagraph, "He walked in."},
		// Heading wins over an embedded handout marker.
		{"# {{x}}", KindHeading, "{{x}}"},
	}
	for _, c := range cases {
		got := Classify(c.line)
		if got.Kind != c.kind || got.Text != c.text {
			t.Errorf("Classify(%q) = %v %q, want %v %q", c.line, got.Kind, got.Text, c.kind, c.text)
		}
		// deterministic
		if again := Classify(c.line); again != got {
			t.Errorf("Classify(%q) not deterministic: %+v vs %+v", c.line, got, again)
		}
	}
}

func TestParseEndToEndScenario(t *testing.T) {
	body := "# Intro\n\n> A dark night.\n\n{{HO1}}\n\n:::secret The butler did it. :::\n\nHe walked in."
	blocks := Parse(body)
	want := []Block{
		{KindHeading, "Intro", 1},
		{KindBlank, "", 2},
		{KindQuote, "A dark night.", 3},
		{KindBlank, "", 4},
		{KindHandout, "HO1", 5},
		{KindBlank, "", 6},
		{KindSecret, "The butler did it.", 7},
		{KindBlank, "", 8},
		{KindParagraph, "He walked in.", 9},
	}
	if len(blocks) != len(want) {
		t.Fatalf("expected %d blocks, got %d: %+v", len(want), len(blocks), blocks)
	}
	for i := range want {
		if blocks[i] != want[i] {
			t.Errorf("block %d = %+v, want %+v", i, blocks[i], want[i])
		}
	}
}

func TestParseKeepsBlankLines(t *testing.T) {
	for n := 1; n <= 5; n++ {
		body := "a" + strings.Repeat("\n", n+1) + "b"
		c := Count(Parse(body))
		if c[KindBlank] != n {
			t.Fatalf("n=%d: expected %d blanks, got %d", n, n, c[KindBlank])
		}
		if c[KindParagraph] != 2 {
			t.Fatalf("n=%d: expected 2 paragraphs, got %d", n, c[KindParagraph])
		}
	}
}

func TestSplitLinesTerminators(t *testing.T) {
	cases := map[string][]string{
		"":            nil,
		"a":           {"a"},
		"a\n":         {"a"},
		"a\n\n":       {"a", ""},
		"a\r\nb\rc\n": {"a", "b", "c"},
		"\n":          {""},
	}
	for in, want := range cases {
		got := SplitLines(in)
		if strings.Join(got, "|") != strings.Join(want, "|") || len(got) != len(want) {
			t.Errorf("SplitLines(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseNormalizesNFC(t *testing.T) {
	// "か" + combining dakuten composes to "が".
	blocks := Parse("# が")
	if len(blocks) != 1 || blocks[0].Text != "\u304c" {
		t.Fatalf("expected NFC heading, got %+v", blocks)
	}
}

func TestHeadings(t *testing.T) {
	hs := Headings(Parse("# A\ntext\n# B"))
	if len(hs) != 2 || hs[0].Text != "A" || hs[1].Line != 3 {
		t.Fatalf("unexpected headings %+v", hs)
	}
}

func TestBlockSpansKeepHeadingsLiteral(t *testing.T) {
	h := Parse("# {a}(b) {{x}}")[0]
	if h.HasInline() {
		t.Fatalf("heading reports inline markup")
	}
	sp := h.Spans()
	if len(sp) != 1 || sp[0].Kind != SpanText || sp[0].Text != "{a}(b) {{x}}" {
		t.Fatalf("heading spans = %+v", sp)
	}
	if got := h.Render(PlainTarget); got != "{a}(b) {{x}}" {
		t.Fatalf("heading render = %q", got)
	}
	p := Parse("{a}(b) {{x}}")[0]
	if got := p.Render(PlainTarget); got != "a(b) *【x】*" {
		t.Fatalf("paragraph render = %q", got)
	}
	if (Block{Kind: KindBlank}).Spans() != nil {
		t.Fatalf("blank block has spans")
	}
}
