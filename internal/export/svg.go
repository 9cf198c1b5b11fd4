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
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"

	"shinobiwriter/internal/domain"
	"shinobiwriter/internal/imagesrc"
	"shinobiwriter/internal/layout"
	"shinobiwriter/internal/textlayout"
)

// svgBackend writes one SVG document per page, zipped when there are several.
// Coordinates are points; the header image is embedded as a data URI.
type svgBackend struct{}

func (svgBackend) Name() string { return "svg" }
func (svgBackend) Ext() string  { return "svg" }

func (svgBackend) Render(ctx context.Context, job Job, w io.Writer) error {
	pages, err := svgPages(ctx, job)
	if err != nil {
		return err
	}
	return writePages(w, pages, "svg")
}

// svgPages builds one serialised SVG document per page. Documents are not
// indented; mixed text and tspan content must not gain whitespace.
func svgPages(ctx context.Context, job Job) ([][]byte, error) {
	var measure layout.Measurer = textlayout.EstimateMeasurer{}
	family := "sans-serif"
	lib, err := job.Fonts.Library()
	if err != nil {
		return nil, err
	}
	if lib != nil {
		measure = textlayout.FaceMeasurer{Provider: newFaceCache(textlayout.OTProvider{Lib: lib, DPI: 72})}
		family = fmt.Sprintf("'%s', sans-serif", job.Fonts.family())
	}
	res := job.Paginate(measure)

	sp := &svgPainter{geom: res.Geometry, family: family}
	if err := paint(ctx, job, res, sp); err != nil {
		return nil, err
	}
	pages := make([][]byte, 0, len(sp.docs))
	for _, doc := range sp.docs {
		data, err := doc.WriteToBytes()
		if err != nil {
			return nil, backendError("svg", err)
		}
		pages = append(pages, data)
	}
	return pages, nil
}

type svgPainter struct {
	geom   layout.Geometry
	family string
	docs   []*etree.Document
	root   *etree.Element
	imgURI string
}

func (p *svgPainter) page(pg layout.Page, bg domain.Color) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	svg := doc.CreateElement("svg")
	svg.CreateAttr("xmlns", "http://www.w3.org/2000/svg")
	svg.CreateAttr("version", "1.1")
	svg.CreateAttr("width", fmtPt(p.geom.PageW)+"pt")
	svg.CreateAttr("height", fmtPt(p.geom.PageH)+"pt")
	svg.CreateAttr("viewBox", fmt.Sprintf("0 0 %s %s", fmtPt(p.geom.PageW), fmtPt(p.geom.PageH)))
	svg.CreateAttr("data-page", fmt.Sprint(pg.Number))
	p.docs = append(p.docs, doc)
	p.root = svg
	p.rect(layout.Rect{W: p.geom.PageW, H: p.geom.PageH}, bg.Hex(), "", 0)
	return nil
}

func (p *svgPainter) rect(r layout.Rect, fill, stroke string, width float64) *etree.Element {
	e := p.root.CreateElement("rect")
	e.CreateAttr("x", fmtPt(r.X))
	e.CreateAttr("y", fmtPt(r.Y))
	e.CreateAttr("width", fmtPt(r.W))
	e.CreateAttr("height", fmtPt(r.H))
	if fill == "" {
		fill = "none"
	}
	e.CreateAttr("fill", fill)
	if stroke != "" {
		e.CreateAttr("stroke", stroke)
		e.CreateAttr("stroke-width", fmtPt(width))
	}
	return e
}

func (p *svgPainter) box(r layout.Rect, fill *domain.Color, frame *domain.Stroke) {
	f, s, w := "", "", 0.0
	if fill != nil {
		f = fill.Hex()
	}
	if frame != nil {
		s, w = frame.Color.Hex(), frame.Width
	}
	p.rect(r, f, s, w)
}

func (p *svgPainter) text(e layout.Element, ink domain.Color) {
	t := p.root.CreateElement("text")
	t.CreateAttr("x", fmtPt(e.Rect.X))
	t.CreateAttr("y", fmtPt(e.Baseline))
	t.CreateAttr("font-family", p.family)
	t.CreateAttr("font-size", fmt.Sprint(e.Style.Font.SizePt))
	t.CreateAttr("fill", ink.Hex())
	t.CreateAttr("xml:space", "preserve")
	if e.Style.Font.Bold() {
		t.CreateAttr("font-weight", "bold")
	}
	if e.Style.Font.Italic {
		t.CreateAttr("font-style", "italic")
	}
	if e.Role != "" {
		t.CreateAttr("class", strings.ToLower(e.Role))
	}
	for _, r := range e.Runs {
		if r.Strong && !e.Style.Font.Bold() {
			ts := t.CreateElement("tspan")
			ts.CreateAttr("font-weight", "bold")
			ts.SetText(r.Text)
			continue
		}
		t.CreateText(r.Text)
	}
}

func (p *svgPainter) image(r layout.Rect, im *imagesrc.Image) {
	if im == nil {
		return
	}
	if p.imgURI == "" {
		p.imgURI = "data:" + im.MIME() + ";base64," + base64.StdEncoding.EncodeToString(im.Data)
	}
	e := p.root.CreateElement("image")
	e.CreateAttr("x", fmtPt(r.X))
	e.CreateAttr("y", fmtPt(r.Y))
	e.CreateAttr("width", fmtPt(r.W))
	e.CreateAttr("height", fmtPt(r.H))
	e.CreateAttr("href", p.imgURI)
}
