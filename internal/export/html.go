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
	_ "embed"
	"encoding/base64"
	"html"
	"io"
	"strings"

	"shinobiwriter/internal/preview"
)

//go:embed assets/scenario.css
var scenarioCSS string

// htmlBackend writes a standalone page around the preview markup. The header
// image is embedded so the file can be moved on its own.
type htmlBackend struct{}

func (htmlBackend) Name() string { return "html" }
func (htmlBackend) Ext() string  { return "html" }

func (htmlBackend) Render(ctx context.Context, job Job, w io.Writer) error {
	doc := job.Doc
	doc.HeaderImage = ""
	if im := job.Model.Header.Image; im != nil {
		doc.HeaderImage = "data:" + im.MIME() + ";base64," + base64.StdEncoding.EncodeToString(im.Data)
	}
	var b strings.Builder
	b.WriteString("<!doctype html>\n<html lang=\"ja\">\n<head>\n<meta charset=\"UTF-8\">\n")
	b.WriteString("<title>" + html.EscapeString(job.Model.Header.Title) + "</title>\n")
	b.WriteString("<style>\n" + themeCSS(job.Theme) + "</style>\n</head>\n<body>\n")
	b.WriteString(preview.HTML(doc, job.Blocks))
	b.WriteString("</body>\n</html>\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func themeCSS(t Theme) string {
	return strings.NewReplacer(
		"{{ACCENT}}", t.Accent.Hex(),
		"{{BG}}", t.Background.Hex(),
		"{{TEXT}}", t.Text.Hex(),
		"{{MUTED}}", t.Muted.Hex(),
		"{{QUOTE}}", t.QuoteFill.Hex(),
		"{{HANDOUT}}", t.HandoutFill.Hex(),
		"{{SECRET}}", t.SecretFill.Hex(),
	).Replace(scenarioCSS)
}

// textBackend writes the raw body; the markup is already plain text.
type textBackend struct{ name string }

func (b textBackend) Name() string { return b.name }
func (b textBackend) Ext() string  { return b.name }

func (textBackend) Render(ctx context.Context, job Job, w io.Writer) error {
	_, err := io.WriteString(w, job.Doc.Body)
	return err
}

func init() {
	Register(pdfBackend{})
	Register(pngBackend{})
	Register(svgBackend{})
	Register(typstBackend{})
	Register(typstPDFBackend{})
	Register(htmlBackend{})
	Register(textBackend{name: "md"})
	Register(textBackend{name: "txt"})
}
