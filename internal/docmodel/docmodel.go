/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package docmodel turns classified blocks and document metadata into the
// abstract document that page layout and every export backend consume.
package docmodel

import (
	"log/slog"
	"strings"

	"shinobiwriter/internal/domain"
	"shinobiwriter/internal/imagesrc"
	applog "shinobiwriter/internal/log"
	"shinobiwriter/internal/markup"
	"shinobiwriter/internal/textlayout"
)

// ItemKind is the visual treatment of a flow item.
type ItemKind int

const (
	ItemText ItemKind = iota
	ItemBanner
	ItemInset
	ItemFramed
	ItemSpacer
)

func (k ItemKind) String() string {
	switch k {
	case ItemText:
		return "text"
	case ItemBanner:
		return "banner"
	case ItemInset:
		return "inset"
	case ItemFramed:
		return "framed"
	case ItemSpacer:
		return "spacer"
	default:
		return "unknown"
	}
}

// Labels of framed boxes.
const (
	LabelHandout = "HO"
	LabelSecret  = "SECRET"
)

// Item is one entry of the body flow. Spacers only carry Height.
type Item struct {
	Kind   ItemKind
	Label  string
	Style  string
	Spans  []markup.Span
	Height float64
	Block  markup.Block
}

// Header is the first-page header section.
type Header struct {
	Title     string
	Summary   []markup.Span
	ImagePath string
	Image     *imagesrc.Image // nil when absent or unreadable
	ImageErr  error           // why a configured image was skipped
}

// Document is the abstract document.
type Document struct {
	Header Header
	Flow   []Item
}

// Options tune spacing and image loading.
type Options struct {
	BlankHeight float64 // height of the spacer for one blank line
	Margin      float64 // spacer between two consecutive non-blank blocks
	Untitled    string  // title used when the document has none
	LoadImage   func(path string) (*imagesrc.Image, error)
	Logger      *slog.Logger
}

// DefaultOptions returns the reference spacing.
func DefaultOptions() Options {
	return Options{BlankHeight: 6, Margin: 3, Untitled: "Untitled scenario", LoadImage: imagesrc.Load}
}

// Build constructs the abstract document. It never fails: an unreadable
// header image is recorded in Header.ImageErr and left out.
func Build(doc domain.Document, blocks []markup.Block, opts Options) Document {
	def := DefaultOptions()
	if opts.LoadImage == nil {
		opts.LoadImage = def.LoadImage
	}
	if opts.Untitled == "" {
		opts.Untitled = def.Untitled
	}
	if opts.BlankHeight <= 0 {
		opts.BlankHeight = def.BlankHeight
	}
	if opts.Margin < 0 {
		opts.Margin = 0
	}
	lg := opts.Logger
	if lg == nil {
		lg = applog.WithComponent("docmodel")
	}

	out := Document{Header: Header{Title: doc.DisplayTitle(opts.Untitled)}}
	if s := strings.TrimSpace(doc.Summary); s != "" {
		out.Header.Summary = markup.Spans(s)
	}
	if p := strings.TrimSpace(doc.HeaderImage); p != "" {
		out.Header.ImagePath = p
		img, err := opts.LoadImage(p)
		if err != nil {
			out.Header.ImageErr = domain.Wrap(domain.KindResourceUnavailable, "load image", p, err)
			lg.Warn("header image skipped", slog.String("path", p), slog.String("err", err.Error()))
		} else {
			out.Header.Image = img
		}
	}

	prevContent := false
	for _, b := range blocks {
		if b.Kind == markup.KindBlank {
			out.Flow = append(out.Flow, Item{Kind: ItemSpacer, Height: opts.BlankHeight, Block: b})
			prevContent = false
			continue
		}
		if prevContent && opts.Margin > 0 {
			out.Flow = append(out.Flow, Item{Kind: ItemSpacer, Height: opts.Margin})
		}
		out.Flow = append(out.Flow, itemFor(b))
		prevContent = true
	}
	return out
}

func itemFor(b markup.Block) Item {
	it := Item{Block: b, Spans: b.Spans()}
	switch b.Kind {
	case markup.KindHeading:
		it.Kind, it.Style = ItemBanner, textlayout.StyleHeading
	case markup.KindQuote:
		it.Kind, it.Style = ItemInset, textlayout.StyleQuote
	case markup.KindHandout:
		it.Kind, it.Style, it.Label = ItemFramed, textlayout.StyleHandout, LabelHandout
	case markup.KindSecret:
		it.Kind, it.Style, it.Label = ItemFramed, textlayout.StyleSecret, LabelSecret
	default:
		it.Kind, it.Style = ItemText, textlayout.StyleBody
	}
	return it
}

// Content returns the flow without spacers.
func (d Document) Content() []Item {
	var out []Item
	for _, it := range d.Flow {
		if it.Kind != ItemSpacer {
			out = append(out, it)
		}
	}
	return out
}

// Runs converts spans into layout runs. Ruby falls back to a parenthesised
// reading and emphasis becomes a bracketed strong run.
func Runs(spans []markup.Span) []textlayout.Run {
	var out []textlayout.Run
	for _, s := range spans {
		switch s.Kind {
		case markup.SpanRuby:
			out = append(out, textlayout.Run{Text: s.Text + "(" + s.Reading + ")"})
		case markup.SpanEmphasis:
			out = append(out, textlayout.Run{Text: "【" + s.Text + "】", Strong: true})
		default:
			out = append(out, textlayout.Run{Text: s.Text})
		}
	}
	return out
}
