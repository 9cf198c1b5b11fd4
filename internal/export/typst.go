/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"shinobiwriter/internal/domain"
	"shinobiwriter/internal/markup"
)

// typstBackend writes Typst source. The page is dark, the title is centered
// in the accent colour and the body flows in two columns.
type typstBackend struct{}

func (typstBackend) Name() string { return "typst" }
func (typstBackend) Ext() string  { return "typ" }

// The header image is referenced by its path only when it loaded; a broken
// reference would fail the later typst compile.
func (typstBackend) Render(ctx context.Context, job Job, w io.Writer) error {
	image := ""
	if job.Model.Header.Image != nil {
		image = job.Model.Header.ImagePath
	}
	src := TypstSource(job, image)
	_, err := io.WriteString(w, src)
	return err
}

// typstPDFBackend compiles the Typst source with an external typst binary.
type typstPDFBackend struct{}

func (typstPDFBackend) Name() string { return "typst-pdf" }
func (typstPDFBackend) Ext() string  { return "pdf" }

func (typstPDFBackend) Render(ctx context.Context, job Job, w io.Writer) error {
	bin, err := exec.LookPath(job.TypstBin)
	if err != nil {
		return domain.Errorf(domain.KindRenderBackendFailure, "typst-pdf", job.TypstBin, "typst binary not found: %v", err)
	}
	dir, err := os.MkdirTemp("", "shinobiwriter-typst-*")
	if err != nil {
		return fmt.Errorf("typst workdir: %w", err)
	}
	defer os.RemoveAll(dir)

	image := ""
	if im := job.Model.Header.Image; im != nil {
		image = "header.png"
		if im.Format == "jpeg" {
			image = "header.jpg"
		}
		if err := os.WriteFile(filepath.Join(dir, image), im.Data, 0o644); err != nil {
			return fmt.Errorf("typst image: %w", err)
		}
	}
	src := filepath.Join(dir, "scenario.typ")
	out := filepath.Join(dir, "scenario.pdf")
	if err := os.WriteFile(src, []byte(TypstSource(job, image)), 0o644); err != nil {
		return fmt.Errorf("typst source: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, job.Timeout)
	defer cancel()
	cmd := exec.CommandContext(runCtx, bin, "compile", src, out)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return domain.Wrap(domain.KindCancelledByUser, "typst-pdf", "", ctx.Err())
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return domain.Errorf(domain.KindRenderBackendFailure, "typst-pdf", "", "typst timed out after %s", job.Timeout)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return domain.Errorf(domain.KindRenderBackendFailure, "typst-pdf", "", "typst compile: %s", msg)
	}
	f, err := os.Open(out)
	if err != nil {
		return domain.Wrap(domain.KindRenderBackendFailure, "typst-pdf", out, err)
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

var typstEscaper = strings.NewReplacer(
	`\`, `\\`, `#`, `\#`, `*`, `\*`, `_`, `\_`, "`", "\\`", `$`, `\$`,
	`<`, `\<`, `>`, `\>`, `@`, `\@`, `[`, `\[`, `]`, `\]`, `"`, `\"`,
	`~`, `\~`, `/`, `\/`,
)

// TypstEscape neutralises characters with a meaning in Typst markup.
func TypstEscape(s string) string { return typstEscaper.Replace(s) }

var typstTarget = markup.Target{
	Text:     TypstEscape,
	Emphasis: func(label string) string { return "*【" + label + "】*" },
}

// typstLine renders a block payload as Typst markup and neutralises list and
// heading markers at the start of the line. Newlines in resolved handouts
// become Typst line breaks so the block stays on one source line.
func typstLine(b markup.Block) string {
	s := b.Render(typstTarget)
	if s != "" && strings.ContainsRune("=-+", rune(s[0])) {
		s = `\` + s
	}
	return strings.ReplaceAll(s, "\n", ` \ `)
}

// TypstBody converts blocks into Typst markup, one output line per block.
func TypstBody(blocks []markup.Block) string {
	lines := make([]string, 0, len(blocks))
	for _, b := range blocks {
		switch b.Kind {
		case markup.KindBlank:
			lines = append(lines, "")
		case markup.KindHeading:
			lines = append(lines, "= "+typstLine(b))
		case markup.KindQuote:
			lines = append(lines, "#quote(block: true)["+typstLine(b)+"]")
		case markup.KindHandout:
			lines = append(lines, "#handout["+typstLine(b)+"]")
		case markup.KindSecret:
			lines = append(lines, "#secret["+typstLine(b)+"]")
		default:
			lines = append(lines, typstLine(b))
		}
	}
	return strings.Join(lines, "\n")
}

// TypstSource builds the complete Typst document. image is the path the
// header image is referenced by, empty for none.
func TypstSource(job Job, image string) string {
	th := job.Theme
	g := job.Geometry
	var b strings.Builder
	fmt.Fprintf(&b, "#set page(width: %spt, height: %spt, margin: %spt, fill: rgb(%q))\n", fmtPt(g.PageW), fmtPt(g.PageH), fmtPt(g.Margin), th.Background.Hex())
	fmt.Fprintf(&b, "#set text(fill: rgb(%q), size: 10pt)\n", th.Text.Hex())
	fmt.Fprintf(&b, "#show heading: it => block(fill: rgb(%q), stroke: %spt + rgb(%q), inset: 4pt, width: 100%%, it.body)\n", th.Accent.Hex(), fmtPt(BannerStroke), th.Text.Hex())
	fmt.Fprintf(&b, "#let handout(body) = block(fill: rgb(%q), stroke: 1pt + rgb(%q), inset: 6pt, width: 100%%)[#text(size: 7pt, weight: \"bold\", fill: rgb(%q))[HO] \\ #body]\n",
		th.HandoutFill.Hex(), th.Accent.Hex(), th.Accent.Hex())
	fmt.Fprintf(&b, "#let secret(body) = block(fill: rgb(%q), stroke: 0.75pt + rgb(%q), inset: 6pt, width: 100%%)[#text(size: 7pt, weight: \"bold\", fill: rgb(%q))[SECRET] \\ #body]\n",
		th.SecretFill.Hex(), th.Muted.Hex(), th.Accent.Hex())
	b.WriteString("\n")
	if image != "" {
		fmt.Fprintf(&b, "#align(center)[#image(%q, height: %spt, fit: \"contain\")]\n", filepath.ToSlash(image), fmtPt(g.ImageHeight))
	}
	b.WriteString("#align(center)[\n")
	fmt.Fprintf(&b, "  #text(weight: \"bold\", size: 18pt, fill: rgb(%q))[%s]\n", th.Accent.Hex(), TypstEscape(job.Model.Header.Title))
	if len(job.Model.Header.Summary) > 0 {
		fmt.Fprintf(&b, "\n  #text(fill: rgb(%q))[%s]\n", th.Muted.Hex(), markup.Render(job.Model.Header.Summary, typstTarget))
	}
	b.WriteString("]\n\n#v(8pt)\n")
	fmt.Fprintf(&b, "#columns(2, gutter: %spt)[\n", fmtPt(g.Gutter))
	b.WriteString(indentLines(TypstBody(job.Blocks), 2))
	b.WriteString("\n]\n")
	return b.String()
}

func indentLines(text string, spaces int) string {
	pad := strings.Repeat(" ", spaces)
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = pad + l
		}
	}
	return strings.Join(lines, "\n")
}
