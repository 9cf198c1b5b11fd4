/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shinobiwriter/internal/domain"
	"shinobiwriter/internal/markup"
)

func TestTypstEscape_HeadingQuotes(t *testing.T) {
	body := TypstBody(markup.Parse(`# Say "hi"`))
	if body != `= Say \"hi\"` {
		t.Fatalf("body = %q", body)
	}
}

func TestTypstBody_Blocks(t *testing.T) {
	got := TypstBody(markup.Parse(sampleBody))
	want := []string{
		"= Opening",
		"#quote(block: true)[A quiet night in the castle town.]",
		"*【The Lord】* summons the party.",
		"#handout[You owe the Lord a debt]",
		"#secret[The Lord is a ninja]",
		"",
		"Plain text with 影(かげ) ruby.",
	}
	if got != strings.Join(want, "\n") {
		t.Fatalf("body:\n%s", got)
	}
}

func TestTypstBody_HeadingStaysLiteral(t *testing.T) {
	got := TypstBody(markup.Parse("# {影}(かげ) {{x}}\n{影}(かげ) {{x}}"))
	want := "= {影}(かげ) {{x}}\n影(かげ) *【x】*"
	if got != want {
		t.Fatalf("body = %q, want %q", got, want)
	}
}

func TestTypstBody_ResolvedHandoutBreaksLines(t *testing.T) {
	blocks := markup.ResolveHandouts(markup.Parse("{{HO1}}\n{{HO2}}"), map[string]string{"HO1": "使命: 巻物を守れ\n秘密: #裏切り"})
	want := "#handout[HO1 \\ 使命: 巻物を守れ \\ 秘密: \\#裏切り]\n#handout[HO2 が未定義です]"
	if got := TypstBody(blocks); got != want {
		t.Fatalf("body = %q, want %q", got, want)
	}
}

func TestTypst_MissingImageIsOmitted(t *testing.T) {
	doc := sampleDoc()
	doc.HeaderImage = filepath.Join(t.TempDir(), "missing.png")
	out := filepath.Join(t.TempDir(), "s.typ")
	rep, err := Export(context.Background(), testJob(doc), "typst", out)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "#image(") {
		t.Fatalf("source references the missing image:\n%s", b)
	}
	if len(rep.Warnings) == 0 || !strings.Contains(rep.Warnings[0], "header image") {
		t.Fatalf("warnings = %v", rep.Warnings)
	}
}

func TestTypstBody_NeutralisesMarkup(t *testing.T) {
	cases := map[string]string{
		"- not a list":         `\- not a list`,
		"see http://x.y":       `see http:\/\/x.y`,
		"#let x = 1":           `\#let x = 1`,
		"> [bracket] $math$":   `#quote(block: true)[\[bracket\] \$math\$]`,
		"price * 2 = _bad_ @a": `price \* 2 = \_bad\_ \@a`,
	}
	for in, want := range cases {
		if got := TypstBody(markup.Parse(in)); got != want {
			t.Errorf("%q -> %q, want %q", in, got, want)
		}
	}
}

func TestTypstSource_Template(t *testing.T) {
	job := testJob(domain.Document{Title: `Say "hi"`, Body: "# A\ntext"})
	src := TypstSource(job, "")
	for _, want := range []string{
		`fill: rgb("#111111")`,
		`#text(weight: "bold", size: 18pt, fill: rgb("#dd0000"))[Say \"hi\"]`,
		"#columns(2, gutter: 17.01pt)[",
		"  = A\n  text\n]",
		`#show heading: it => block(fill: rgb("#dd0000"), stroke: 0.50pt + rgb("#f0f0f0")`,
	} {
		if !strings.Contains(src, want) {
			t.Errorf("source missing %q:\n%s", want, src)
		}
	}
	if strings.Contains(src, "#image(") {
		t.Errorf("no image expected")
	}
	if !strings.Contains(TypstSource(job, "header.png"), `#image("header.png"`) {
		t.Errorf("image reference missing")
	}
}

func TestTypstPDF_MissingBinary(t *testing.T) {
	job := testJob(sampleDoc())
	job.TypstBin = filepath.Join(t.TempDir(), "typst-missing")
	out := filepath.Join(t.TempDir(), "x.pdf")
	_, err := Export(context.Background(), job, "typst-pdf", out)
	if domain.KindOf(err) != domain.KindRenderBackendFailure {
		t.Fatalf("kind = %v (%v)", domain.KindOf(err), err)
	}
	if _, statErr := os.Stat(out); statErr == nil {
		t.Fatalf("failed export must not create the output")
	}
}

func TestTypstPDF_NonZeroExitCarriesStderr(t *testing.T) {
	dir := t.TempDir()
	fake := filepath.Join(dir, "typst")
	script := "#!/bin/sh\necho 'error: unknown font' >&2\nexit 3\n"
	if err := os.WriteFile(fake, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	job := testJob(sampleDoc())
	job.TypstBin = fake
	_, err := Export(context.Background(), job, "typst-pdf", filepath.Join(dir, "x.pdf"))
	if domain.KindOf(err) != domain.KindRenderBackendFailure || !strings.Contains(err.Error(), "unknown font") {
		t.Fatalf("err = %v", err)
	}
}

func TestTypstPDF_FakeCompilerOutput(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	dir := t.TempDir()
	fake := filepath.Join(dir, "typst")
	// compile <src> <out>: copy a marker into out.
	script := "#!/bin/sh\nprintf '%%PDF-1.7 fake' > \"$3\"\n"
	if err := os.WriteFile(fake, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	job := testJob(sampleDoc())
	job.TypstBin = fake
	out := filepath.Join(dir, "x.pdf")
	if _, err := Export(context.Background(), job, "typst-pdf", out); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, _ := os.ReadFile(out)
	if string(data) != "%PDF-1.7 fake" {
		t.Fatalf("output = %q", data)
	}
}
