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
	"fmt"
	"io"
	"os"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/encoding/charmap"

	"shinobiwriter/internal/domain"
	"shinobiwriter/internal/imagesrc"
	"shinobiwriter/internal/layout"
	"shinobiwriter/internal/markup"
	"shinobiwriter/internal/textlayout"
)

// pdfBackend draws the paginated document with vector text. Without
// configured fonts it uses the builtin Helvetica, which covers cp1252 only.
type pdfBackend struct{}

func (pdfBackend) Name() string { return "pdf" }
func (pdfBackend) Ext() string  { return "pdf" }

const pdfFamily = "shw"

func (pdfBackend) Render(ctx context.Context, job Job, w io.Writer) error {
	g := job.Geometry
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: g.PageW, Ht: g.PageH},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetTitle(job.Model.Header.Title, true)
	pdf.SetSubject(markup.PlainText(job.Model.Header.Summary), true)
	pdf.SetCreator("Shinobi Writer", true)

	fonts, err := newPDFFonts(pdf, job)
	if err != nil {
		return err
	}
	m := &pdfMeasurer{pdf: pdf, fonts: fonts}
	res := job.Paginate(m)

	pp := &pdfPainter{pdf: pdf, m: m}
	if err := paint(ctx, job, res, pp); err != nil {
		return err
	}
	if fonts.lossy {
		job.warn("text outside cp1252 was replaced; configure fonts for full Unicode output")
	}
	if pdf.Err() {
		return backendError("pdf", pdf.Error())
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

type pdfFonts struct {
	utf8  bool
	tr    func(string) string
	lossy bool
}

func newPDFFonts(pdf *gofpdf.Fpdf, job Job) (*pdfFonts, error) {
	lib, err := job.Fonts.Library()
	if err != nil {
		return nil, err
	}
	if lib == nil {
		return &pdfFonts{tr: pdf.UnicodeTranslatorFromDescriptor("")}, nil
	}
	fam := job.Fonts.family()
	regular, _ := lib.Path(fam, false)
	bold, ok := lib.Path(fam, true)
	if !ok {
		bold = regular
	}
	for style, path := range map[string]string{"": regular, "B": bold} {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, domain.Wrap(domain.KindResourceUnavailable, "load font", path, err)
		}
		pdf.AddUTF8FontFromBytes(pdfFamily, style, data)
	}
	if pdf.Err() {
		return nil, domain.Wrap(domain.KindResourceUnavailable, "load font", regular, pdf.Error())
	}
	return &pdfFonts{utf8: true, tr: func(s string) string { return s }}, nil
}

func (pf *pdfFonts) set(pdf *gofpdf.Fpdf, st textlayout.TextStyle) {
	if pf.utf8 {
		style := ""
		if st.Font.Bold() {
			style = "B"
		}
		pdf.SetFont(pdfFamily, style, float64(st.Font.SizePt))
		return
	}
	style := ""
	if st.Font.Bold() {
		style += "B"
	}
	if st.Font.Italic {
		style += "I"
	}
	pdf.SetFont("Helvetica", style, float64(st.Font.SizePt))
}

var cp1252 = charmap.Windows1252.NewEncoder()

func (pf *pdfFonts) text(s string) string {
	if pf.utf8 {
		return s
	}
	if _, err := cp1252.String(s); err != nil {
		pf.lossy = true
	}
	return pf.tr(s)
}

// pdfMeasurer measures with the same fonts the page is drawn with.
type pdfMeasurer struct {
	pdf   *gofpdf.Fpdf
	fonts *pdfFonts
}

func (m *pdfMeasurer) Width(text string, st textlayout.TextStyle) float64 {
	if text == "" {
		return 0
	}
	m.fonts.set(m.pdf, st)
	w := m.pdf.GetStringWidth(m.fonts.text(text))
	if n := len([]rune(text)); n > 1 {
		w += float64(st.Tracking) * float64(n-1)
	}
	return w
}

func (m *pdfMeasurer) LineHeight(st textlayout.TextStyle) float64 {
	return float64(st.Font.SizePt)*1.35 + float64(st.Leading)
}

func (m *pdfMeasurer) Ascent(st textlayout.TextStyle) float64 {
	m.fonts.set(m.pdf, st)
	size := float64(st.Font.SizePt)
	if d := m.pdf.GetFontDesc("", ""); d.Ascent > 0 {
		return float64(d.Ascent) / 1000 * size
	}
	return size * 0.8
}

type pdfPainter struct {
	pdf *gofpdf.Fpdf
	m   *pdfMeasurer

	// imageName is the registered gofpdf name of the header image.
	imageName string
}

func (p *pdfPainter) page(pg layout.Page, bg domain.Color) error {
	p.pdf.AddPage()
	setFillColor(p.pdf, bg)
	w, h := p.pdf.GetPageSize()
	p.pdf.Rect(0, 0, w, h, "F")
	return nil
}

func (p *pdfPainter) box(r layout.Rect, fill *domain.Color, frame *domain.Stroke) {
	style := ""
	if fill != nil {
		setFillColor(p.pdf, *fill)
		style += "F"
	}
	if frame != nil {
		setDrawColor(p.pdf, frame.Color)
		p.pdf.SetLineWidth(frame.Width)
		style += "D"
	}
	if style != "" {
		p.pdf.Rect(r.X, r.Y, r.W, r.H, style)
	}
}

func (p *pdfPainter) text(e layout.Element, ink domain.Color) {
	p.pdf.SetTextColor(int(ink.R), int(ink.G), int(ink.B))
	x := e.Rect.X
	for _, r := range e.Runs {
		st := runStyle(e, r)
		p.m.fonts.set(p.pdf, st)
		p.pdf.Text(x, e.Baseline, p.m.fonts.text(r.Text))
		x += p.m.Width(r.Text, st)
	}
}

func (p *pdfPainter) image(r layout.Rect, im *imagesrc.Image) {
	if im == nil {
		return
	}
	opt := gofpdf.ImageOptions{ImageType: "PNG"}
	if im.Format == "jpeg" {
		opt.ImageType = "JPG"
	}
	if p.imageName == "" {
		p.imageName = "header"
		p.pdf.RegisterImageOptionsReader(p.imageName, opt, bytes.NewReader(im.Data))
	}
	p.pdf.ImageOptions(p.imageName, r.X, r.Y, r.W, r.H, false, opt, 0, "")
}

func setDrawColor(pdf *gofpdf.Fpdf, c domain.Color) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setFillColor(pdf *gofpdf.Fpdf, c domain.Color) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}
