/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"

	"shinobiwriter/internal/domain"
	"shinobiwriter/internal/imagesrc"
	"shinobiwriter/internal/layout"
	"shinobiwriter/internal/textlayout"
)

// pngBackend rasterises every page at Job.DPI. One page is written as a
// plain PNG, several pages as a zip of page-NNN.png entries.
type pngBackend struct{}

func (pngBackend) Name() string { return "png" }
func (pngBackend) Ext() string  { return "png" }

func (pngBackend) Render(ctx context.Context, job Job, w io.Writer) error {
	pages, err := pngPages(ctx, job)
	if err != nil {
		return err
	}
	return writePages(w, pages, "png")
}

// pngPages renders every page into an encoded PNG.
func pngPages(ctx context.Context, job Job) ([][]byte, error) {
	lib, err := job.Fonts.Library()
	if err != nil {
		return nil, err
	}
	if lib == nil {
		lib = textlayout.Builtin(job.Fonts.family())
	}
	measure := textlayout.FaceMeasurer{Provider: newFaceCache(textlayout.OTProvider{Lib: lib, DPI: 72})}
	res := job.Paginate(measure)

	scale := job.DPI / 72
	pp := &pngPainter{
		scale: scale,
		faces: newFaceCache(textlayout.OTProvider{Lib: lib, DPI: 72 * scale}),
		w:     int(math.Round(res.Geometry.PageW * scale)),
		h:     int(math.Round(res.Geometry.PageH * scale)),
	}
	if err := paint(ctx, job, res, pp); err != nil {
		return nil, err
	}
	if err := pp.flush(); err != nil {
		return nil, err
	}
	return pp.out, nil
}

// writePages writes a single page as is and several pages as a zip of
// page-NNN.<ext> entries.
func writePages(w io.Writer, pages [][]byte, ext string) error {
	if len(pages) == 0 {
		return backendError(ext, fmt.Errorf("no page rendered"))
	}
	if len(pages) == 1 {
		_, err := w.Write(pages[0])
		return err
	}
	zw := zip.NewWriter(w)
	for i, data := range pages {
		f, err := zw.Create(pageName(i+1, ext))
		if err != nil {
			return err
		}
		if _, err := f.Write(data); err != nil {
			return err
		}
	}
	return zw.Close()
}

func pageName(n int, ext string) string { return fmt.Sprintf("page-%03d.%s", n, ext) }

// faceCache memoises resolved faces; opentype.NewFace is too slow to call
// for every measured word.
type faceCache struct {
	p     textlayout.Provider
	faces map[textlayout.FontSpec]cachedFace
}

type cachedFace struct {
	face font.Face
	m    textlayout.Metrics
}

func newFaceCache(p textlayout.Provider) *faceCache {
	return &faceCache{p: p, faces: map[textlayout.FontSpec]cachedFace{}}
}

func (c *faceCache) Resolve(spec textlayout.FontSpec) (font.Face, textlayout.Metrics) {
	if f, ok := c.faces[spec]; ok {
		return f.face, f.m
	}
	face, m := c.p.Resolve(spec)
	c.faces[spec] = cachedFace{face: face, m: m}
	return face, m
}

type pngPainter struct {
	scale float64
	faces *faceCache
	w, h  int
	dc    *gg.Context
	out   [][]byte
}

func (p *pngPainter) page(pg layout.Page, bg domain.Color) error {
	if err := p.flush(); err != nil {
		return err
	}
	p.dc = gg.NewContext(p.w, p.h)
	p.dc.SetColor(rgba(bg))
	p.dc.Clear()
	return nil
}

// flush encodes the page in progress, if any.
func (p *pngPainter) flush() error {
	if p.dc == nil {
		return nil
	}
	var buf bytes.Buffer
	if err := p.dc.EncodePNG(&buf); err != nil {
		return backendError("png", fmt.Errorf("encode png: %w", err))
	}
	p.out = append(p.out, buf.Bytes())
	p.dc = nil
	return nil
}

func (p *pngPainter) box(r layout.Rect, fill *domain.Color, frame *domain.Stroke) {
	s := p.scale
	if fill != nil {
		p.dc.DrawRectangle(r.X*s, r.Y*s, r.W*s, r.H*s)
		p.dc.SetColor(rgba(*fill))
		p.dc.Fill()
	}
	if frame != nil {
		p.dc.DrawRectangle(r.X*s, r.Y*s, r.W*s, r.H*s)
		p.dc.SetColor(rgba(frame.Color))
		p.dc.SetLineWidth(frame.Width * s)
		p.dc.Stroke()
	}
}

func (p *pngPainter) text(e layout.Element, ink domain.Color) {
	p.dc.SetColor(rgba(ink))
	x := e.Rect.X * p.scale
	for _, r := range e.Runs {
		st := runStyle(e, r)
		face, _ := p.faces.Resolve(st.Font)
		p.dc.SetFontFace(face)
		p.dc.DrawString(r.Text, x, e.Baseline*p.scale)
		w, _ := p.dc.MeasureString(r.Text)
		x += w
	}
}

func (p *pngPainter) image(r layout.Rect, im *imagesrc.Image) {
	s := p.scale
	img := im.Scaled(int(math.Round(r.W*s)), int(math.Round(r.H*s)))
	if img == nil {
		return
	}
	p.dc.DrawImage(img, int(math.Round(r.X*s)), int(math.Round(r.Y*s)))
}

func rgba(c domain.Color) color.RGBA {
	a := c.A
	if a == 0 {
		a = 255
	}
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: a}
}
