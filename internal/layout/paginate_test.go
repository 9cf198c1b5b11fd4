/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"shinobiwriter/internal/docmodel"
	"shinobiwriter/internal/domain"
	"shinobiwriter/internal/imagesrc"
	"shinobiwriter/internal/markup"
	"shinobiwriter/internal/textlayout"
)

const eps = 1e-6

func build(doc domain.Document, load func(string) (*imagesrc.Image, error)) docmodel.Document {
	opts := docmodel.DefaultOptions()
	if load != nil {
		opts.LoadImage = load
	}
	return docmodel.Build(doc, markup.Parse(doc.Body), opts)
}

func longBody(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "Line %d of a scenario body that is long enough to wrap in a column.\n", i)
	}
	return b.String()
}

func TestDefaultGeometry(t *testing.T) {
	g := DefaultGeometry()
	if err := g.Validate(); err != nil {
		t.Fatalf("default geometry invalid: %v", err)
	}
	if math.Abs(g.Gutter-17.0079) > 1e-3 || math.Abs(g.ImageHeight-226.77) > 1e-2 {
		t.Fatalf("unexpected gutter/image height: %+v", g)
	}
	pl := g.PageLayout()
	if math.Abs(pl.First.W-(g.PageW-32)) > eps || pl.First.X != 16 || pl.First.Y != 16 {
		t.Fatalf("first region = %+v", pl.First)
	}
	l, r := pl.Continuation[0], pl.Continuation[1]
	if math.Abs(l.W-r.W) > eps {
		t.Fatalf("columns differ: %v vs %v", l.W, r.W)
	}
	if math.Abs(r.X-l.Right()-g.Gutter) > eps {
		t.Fatalf("gutter not respected: %v", r.X-l.Right())
	}
	if math.Abs(r.Right()-(g.PageW-g.Margin)) > eps {
		t.Fatalf("right column exceeds margin: %v", r.Right())
	}
}

func TestGeometryValidate(t *testing.T) {
	g := DefaultGeometry()
	g.Margin = 300
	if err := g.Validate(); err == nil {
		t.Fatalf("expected error for oversized margin")
	}
	if (Geometry{}).WithDefaults() != DefaultGeometry() {
		t.Fatalf("WithDefaults should fill every zero field")
	}
}

func TestPaginateLongBodySpansPages(t *testing.T) {
	doc := domain.Document{Title: "Case 1", Body: longBody(300)}
	res := Paginate(build(doc, nil), DefaultGeometry(), textlayout.EstimateMeasurer{}, nil)
	if len(res.Pages) < 2 {
		t.Fatalf("expected at least 2 pages, got %d", len(res.Pages))
	}
	if res.Pages[0].Template != TemplateFirst || len(res.Pages[0].Regions) != 1 {
		t.Fatalf("page 1 should use the first template")
	}
	for _, p := range res.Pages[1:] {
		if p.Template != TemplateLater || len(p.Regions) != 2 {
			t.Fatalf("page %d should use two columns", p.Number)
		}
	}
	// The title is the first text on page 1.
	var first *Element
	for i, e := range res.Pages[0].Elements {
		if e.Kind == ElemText {
			first = &res.Pages[0].Elements[i]
			break
		}
	}
	if first == nil || first.Role != textlayout.StyleTitle || first.Text() != "Case 1" {
		t.Fatalf("first text element = %+v", first)
	}
	// Content uses both columns of page 2.
	cols := map[float64]bool{}
	for _, e := range res.Pages[1].Elements {
		if e.Kind == ElemText {
			cols[e.Rect.X] = true
		}
	}
	if len(cols) < 2 {
		t.Fatalf("expected text in both columns of page 2, got x positions %v", cols)
	}
}

func TestPaginateElementsStayInRegions(t *testing.T) {
	body := longBody(120) + "{{" + strings.Repeat("handout text ", 200) + "}}\n> " + strings.Repeat("quoted ", 100)
	res := Paginate(build(domain.Document{Title: "T", Body: body}, nil), DefaultGeometry(), textlayout.EstimateMeasurer{}, nil)
	for _, p := range res.Pages {
		for _, e := range p.Elements {
			in := false
			for _, r := range p.Regions {
				if e.Rect.X >= r.X-eps && e.Rect.Right() <= r.Right()+eps && e.Rect.Y >= r.Y-eps && e.Rect.Bottom() <= r.Bottom()+eps {
					in = true
					break
				}
			}
			if !in {
				t.Fatalf("page %d: element %q (%v) outside regions: %+v", p.Number, e.Text(), e.Kind, e.Rect)
			}
		}
	}
}

func TestPaginateSplitsBoxesAcrossRegions(t *testing.T) {
	body := "{{" + strings.Repeat("handout text ", 800) + "}}"
	res := Paginate(build(domain.Document{Title: "T", Body: body}, nil), DefaultGeometry(), textlayout.EstimateMeasurer{}, nil)
	boxes := res.Boxes()
	if len(boxes) < 2 {
		t.Fatalf("expected the handout to be split, got %d boxes", len(boxes))
	}
	if boxes[0].Label != docmodel.LabelHandout || boxes[0].Continued {
		t.Fatalf("first fragment should carry the label: %+v", boxes[0])
	}
	for _, b := range boxes[1:] {
		if !b.Continued || b.Label != "" || b.Role != textlayout.StyleHandout {
			t.Fatalf("continuation fragment = %+v", b)
		}
	}
	// No words lost.
	var words int
	for _, p := range res.Pages {
		for _, e := range p.Elements {
			if e.Kind == ElemText && e.Role == textlayout.StyleHandout {
				words += strings.Count(e.Text(), "handout")
			}
		}
	}
	if words != 800 {
		t.Fatalf("expected 800 words, got %d", words)
	}
}

func TestPaginateEndToEndBoxes(t *testing.T) {
	body := "# Intro\n\n> A dark night.\n\n{{HO1}}\n\n:::secret The butler did it. :::\n\nHe walked in."
	res := Paginate(build(domain.Document{Title: "Case 1", Body: body}, nil), DefaultGeometry(), textlayout.EstimateMeasurer{}, nil)
	if len(res.Pages) != 1 {
		t.Fatalf("short scenario should fit one page, got %d", len(res.Pages))
	}
	var roles []string
	for _, b := range res.Boxes() {
		roles = append(roles, b.Role+":"+b.Label)
	}
	want := "Heading:|Quote:|Handout:HO|Secret:SECRET"
	if strings.Join(roles, "|") != want {
		t.Fatalf("boxes = %v", roles)
	}
	els := res.Pages[0].Elements
	last := els[len(els)-1]
	if last.Role != textlayout.StyleBody || last.Text() != "He walked in." {
		t.Fatalf("last element = %+v", last)
	}
	// Quote box is inset.
	q := res.Boxes()[1]
	if q.Rect.X <= res.Pages[0].Regions[0].X {
		t.Fatalf("quote box not indented: %+v", q.Rect)
	}
}

func TestPaginateResolvedHandoutKeepsLines(t *testing.T) {
	doc := domain.Document{Title: "T", Body: "{{HO1}}", Handouts: map[string]string{"HO1": "使命: 巻物を守れ\n\n秘密: 裏切り者"}}
	model := docmodel.Build(doc, markup.ResolveHandouts(markup.Parse(doc.Body), doc.Handouts), docmodel.DefaultOptions())
	res := Paginate(model, DefaultGeometry(), textlayout.EstimateMeasurer{}, nil)
	var lines []string
	for _, e := range res.Pages[0].Elements {
		if e.Kind == ElemText && e.Role == textlayout.StyleHandout {
			lines = append(lines, e.Text())
		}
	}
	want := "HO1|使命: 巻物を守れ||秘密: 裏切り者"
	if strings.Join(lines, "|") != want {
		t.Fatalf("handout lines = %q", lines)
	}
	if boxes := res.Boxes(); len(boxes) != 1 || boxes[0].Label != docmodel.LabelHandout {
		t.Fatalf("boxes = %+v", boxes)
	}
}

func TestPaginateSpacersDoNotCarryOver(t *testing.T) {
	text := func(s string) docmodel.Item {
		return docmodel.Item{Kind: docmodel.ItemText, Style: textlayout.StyleBody, Spans: []markup.Span{{Kind: markup.SpanText, Text: s}}}
	}
	spacer := docmodel.Item{Kind: docmodel.ItemSpacer, Height: 40}
	doc := docmodel.Document{
		Header: docmodel.Header{Title: "T"},
		Flow:   []docmodel.Item{text("A"), {Kind: docmodel.ItemSpacer, Height: 1e6}, spacer, spacer, text("B")},
	}
	res := Paginate(doc, DefaultGeometry(), textlayout.EstimateMeasurer{}, nil)
	if len(res.Pages) != 2 {
		t.Fatalf("pages = %d", len(res.Pages))
	}
	p := res.Pages[1]
	if len(p.Elements) != 1 || p.Elements[0].Text() != "B" {
		t.Fatalf("second page = %+v", p.Elements)
	}
	if got, top := p.Elements[0].Rect.Y, p.Regions[0].Y; math.Abs(got-top) > eps {
		t.Fatalf("B at %v, region top %v", got, top)
	}
}

func TestPaginateBlankLinesBelowHeaderKeepSpace(t *testing.T) {
	plain := Paginate(build(domain.Document{Title: "T", Body: "Hello"}, nil), DefaultGeometry(), textlayout.EstimateMeasurer{}, nil)
	blank := Paginate(build(domain.Document{Title: "T", Body: "\n\n\nHello"}, nil), DefaultGeometry(), textlayout.EstimateMeasurer{}, nil)
	last := func(r Result) Element { els := r.Pages[0].Elements; return els[len(els)-1] }
	if last(blank).Rect.Y <= last(plain).Rect.Y {
		t.Fatalf("blank lines below the header should still take space")
	}
}

func TestPaginateMissingImage(t *testing.T) {
	missing := func(string) (*imagesrc.Image, error) { return nil, errors.New("no such file") }
	res := Paginate(build(domain.Document{Title: "T", HeaderImage: "/nope.png", Body: "text"}, missing), DefaultGeometry(), textlayout.EstimateMeasurer{}, nil)
	if res.HasImage {
		t.Fatalf("no image expected")
	}
	for _, e := range res.Pages[0].Elements {
		if e.Kind == ElemImage {
			t.Fatalf("unexpected image element")
		}
	}
	// Title starts at the top of the region.
	if res.Pages[0].Elements[0].Rect.Y != res.Pages[0].Regions[0].Y {
		t.Fatalf("title should start at the region top when there is no image")
	}
}

func TestPaginateWithImage(t *testing.T) {
	load := func(string) (*imagesrc.Image, error) { return &imagesrc.Image{Width: 400, Height: 100}, nil }
	g := DefaultGeometry()
	res := Paginate(build(domain.Document{Title: "T", HeaderImage: "h.png"}, load), g, textlayout.EstimateMeasurer{}, nil)
	if !res.HasImage {
		t.Fatalf("expected image")
	}
	img := res.Pages[0].Elements[0]
	r := res.Pages[0].Regions[0]
	if img.Kind != ElemImage || math.Abs(img.Rect.W-r.W) > eps || math.Abs(img.Rect.H-r.W/4) > eps {
		t.Fatalf("image element = %+v", img)
	}
	title := res.Pages[0].Elements[1]
	if title.Rect.Y < r.Y+g.ImageHeight {
		t.Fatalf("title overlaps image band: %+v", title.Rect)
	}
}

func TestPaginateDeterministic(t *testing.T) {
	doc := build(domain.Document{Title: "T", Body: longBody(80)}, nil)
	a := Paginate(doc, DefaultGeometry(), textlayout.EstimateMeasurer{}, nil)
	b := Paginate(doc, DefaultGeometry(), textlayout.EstimateMeasurer{}, nil)
	if fmt.Sprintf("%+v", a) != fmt.Sprintf("%+v", b) {
		t.Fatalf("pagination not deterministic")
	}
}

func TestPaginateNoTrailingEmptyPage(t *testing.T) {
	body := longBody(120) + strings.Repeat("\n", 200)
	res := Paginate(build(domain.Document{Title: "T", Body: body}, nil), DefaultGeometry(), textlayout.EstimateMeasurer{}, nil)
	last := res.Pages[len(res.Pages)-1]
	if len(last.Elements) == 0 {
		t.Fatalf("trailing blank lines produced an empty page")
	}
}
