/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"shinobiwriter/internal/docmodel"
	"shinobiwriter/internal/textlayout"
)

// Measurer supplies text metrics in points. Each backend provides one that
// matches how it draws text.
type Measurer interface {
	Width(text string, st textlayout.TextStyle) float64
	LineHeight(st textlayout.TextStyle) float64
	Ascent(st textlayout.TextStyle) float64
}

// ElementKind distinguishes positioned page content.
type ElementKind int

const (
	ElemBox ElementKind = iota
	ElemText
	ElemImage
)

// Element is positioned page content. Role is the style name of the content
// it belongs to (textlayout.StyleHeading for a banner box and its lines).
// Boxes are emitted before the lines they contain.
type Element struct {
	Kind      ElementKind
	Role      string
	Rect      Rect
	Label     string // framed box label, first fragment only
	Continued bool   // box fragment continued from a previous region
	Style     textlayout.TextStyle
	Runs      []textlayout.Run
	Baseline  float64 // text only, absolute y
}

// Text returns the concatenated run text of a text element.
func (e Element) Text() string { return textlayout.Line{Runs: e.Runs}.Text() }

// Page is one laid out page.
type Page struct {
	Number   int
	Template Template
	Regions  []Rect
	Elements []Element
}

// Result is the paginated document.
type Result struct {
	Geometry Geometry
	Pages    []Page
	HasImage bool
}

// Box padding and spacing in points.
const (
	boxPad      = 4.0
	insetIndent = 8.0
	labelGap    = 2.0
	headerGap   = 8.0
)

type flow struct {
	geom   Geometry
	pl     PageLayout
	m      Measurer
	sheet  *textlayout.StyleSheet
	pages  []Page
	region int
	y      float64
}

func (f *flow) page() *Page { return &f.pages[len(f.pages)-1] }

func (f *flow) rect() Rect { return f.page().Regions[f.region] }

func (f *flow) atTop() bool { return f.y == f.rect().Y }

func (f *flow) remaining() float64 { return f.rect().Bottom() - f.y }

func (f *flow) newPage(t Template) {
	f.pages = append(f.pages, Page{Number: len(f.pages) + 1, Template: t, Regions: f.pl.Regions(t)})
	f.region = 0
	f.y = f.rect().Y
}

// next moves to the next region, starting a TemplateLater page after the last one.
func (f *flow) next() {
	if f.region+1 < len(f.page().Regions) {
		f.region++
		f.y = f.rect().Y
		return
	}
	f.newPage(TemplateLater)
}

func (f *flow) emit(e Element) int {
	p := f.page()
	p.Elements = append(p.Elements, e)
	return len(p.Elements) - 1
}

// Paginate lays doc out on pages. It is deterministic for a given measurer.
func Paginate(doc docmodel.Document, geom Geometry, m Measurer, sheet *textlayout.StyleSheet) Result {
	geom = geom.WithDefaults()
	if sheet == nil {
		sheet = textlayout.NewStyleSheet()
	}
	f := &flow{geom: geom, pl: geom.PageLayout(), m: m, sheet: sheet}
	f.newPage(TemplateFirst)

	res := Result{Geometry: geom}
	f.header(doc.Header, &res)
	for _, it := range doc.Flow {
		f.item(it)
	}
	res.Pages = f.pages
	return res
}

func (f *flow) header(h docmodel.Header, res *Result) {
	r := f.rect()
	if h.Image != nil {
		w, ih := h.Image.Fit(r.W, f.geom.ImageHeight)
		if w > 0 && ih > 0 {
			f.emit(Element{Kind: ElemImage, Role: "Image", Rect: Rect{X: r.X + (r.W-w)/2, Y: f.y + (f.geom.ImageHeight-ih)/2, W: w, H: ih}})
			f.y += f.geom.ImageHeight + headerGap
			res.HasImage = true
		}
	}
	title := f.sheet.MustResolve(textlayout.StyleTitle)
	f.lines(textlayout.StyleTitle, title, []textlayout.Run{{Text: h.Title}}, true)
	if len(h.Summary) > 0 {
		f.y += labelGap
		st := f.sheet.MustResolve(textlayout.StyleSummary)
		f.lines(textlayout.StyleSummary, st, docmodel.Runs(h.Summary), true)
	}
	f.y += headerGap
}

// lines places text without a surrounding box, breaking each line for the
// width of the region it lands in.
func (f *flow) lines(role string, st textlayout.TextStyle, runs []textlayout.Run, center bool) {
	lh := f.m.LineHeight(st)
	asc := f.m.Ascent(st)
	br := textlayout.NewBreaker(runs, textlayout.StyleWidth(f.m, st))
	for !br.Done() {
		if lh > f.remaining() && !f.atTop() {
			f.next()
		}
		r := f.rect()
		ln, _ := br.Next(r.W)
		x := r.X
		if center && ln.Width < r.W {
			x += (r.W - ln.Width) / 2
		}
		f.emit(Element{Kind: ElemText, Role: role, Style: st, Runs: ln.Runs, Rect: Rect{X: x, Y: f.y, W: ln.Width, H: lh}, Baseline: f.y + asc})
		f.y += lh
	}
}

func (f *flow) item(it docmodel.Item) {
	if it.Kind == docmodel.ItemSpacer {
		// Spacers never carry into the next region. One that does not fit
		// ends its region and the rest of its height is dropped, so blank
		// lines and block margins never push content down at the top of a
		// column or page.
		if f.atTop() {
			return
		}
		f.y = min(f.y+it.Height, f.rect().Bottom())
		return
	}
	st := f.sheet.MustResolve(it.Style)
	runs := docmodel.Runs(it.Spans)
	if it.Kind == docmodel.ItemText {
		f.lines(it.Style, st, runs, false)
		return
	}
	f.boxed(it, st, runs)
}

// boxed places a banner, inset or framed item. The box is split with its lines
// when a region runs out; every fragment gets its own box.
func (f *flow) boxed(it docmodel.Item, st textlayout.TextStyle, runs []textlayout.Run) {
	indent := 0.0
	if it.Kind == docmodel.ItemInset {
		indent = insetIndent
	}
	lh := f.m.LineHeight(st)
	asc := f.m.Ascent(st)
	br := textlayout.NewBreaker(runs, textlayout.StyleWidth(f.m, st))

	var labelSt textlayout.TextStyle
	labelH := 0.0
	if it.Label != "" {
		labelSt = f.sheet.MustResolve(textlayout.StyleLabel)
		labelH = f.m.LineHeight(labelSt) + labelGap
	}

	// The first fragment must hold the label and one line.
	if boxPad+labelH+lh+boxPad > f.remaining() && !f.atTop() {
		f.next()
	}

	for first := true; first || !br.Done(); first = false {
		r := f.rect()
		x, innerW := r.X+indent+boxPad, r.W-indent-2*boxPad
		top := f.y
		boxIdx := f.emit(Element{Kind: ElemBox, Role: it.Style, Label: labelIf(first, it.Label), Continued: !first})
		f.y += boxPad
		if first && labelH > 0 {
			f.emit(Element{Kind: ElemText, Role: textlayout.StyleLabel, Style: labelSt,
				Runs:     []textlayout.Run{{Text: it.Label, Strong: true}},
				Rect:     Rect{X: x, Y: f.y, W: f.m.Width(it.Label, labelSt.Strong()), H: labelH - labelGap},
				Baseline: f.y + f.m.Ascent(labelSt)})
			f.y += labelH
		}
		for placed := 0; !br.Done(); placed++ {
			if placed > 0 && f.y+lh+boxPad > r.Bottom() {
				break
			}
			ln, _ := br.Next(innerW)
			f.emit(Element{Kind: ElemText, Role: it.Style, Style: st, Runs: ln.Runs,
				Rect:     Rect{X: x, Y: f.y, W: ln.Width, H: lh},
				Baseline: f.y + asc})
			f.y += lh
		}
		f.y += boxPad
		f.page().Elements[boxIdx].Rect = Rect{X: r.X + indent, Y: top, W: r.W - indent, H: f.y - top}
		if !br.Done() {
			f.next()
		}
	}
}

func labelIf(first bool, label string) string {
	if first {
		return label
	}
	return ""
}

// Templates returns the template of every page in order.
func (r Result) Templates() []Template {
	out := make([]Template, len(r.Pages))
	for i, p := range r.Pages {
		out[i] = p.Template
	}
	return out
}

// Boxes returns all box elements in document order.
func (r Result) Boxes() []Element {
	var out []Element
	for _, p := range r.Pages {
		for _, e := range p.Elements {
			if e.Kind == ElemBox {
				out = append(out, e)
			}
		}
	}
	return out
}
