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

	"shinobiwriter/internal/domain"
	"shinobiwriter/internal/imagesrc"
	"shinobiwriter/internal/layout"
	"shinobiwriter/internal/textlayout"
)

// painter is implemented by the page drawing backends. paint walks the laid
// out pages and calls it in drawing order.
type painter interface {
	page(p layout.Page, bg domain.Color) error
	box(r layout.Rect, fill *domain.Color, frame *domain.Stroke)
	text(e layout.Element, ink domain.Color)
	image(r layout.Rect, im *imagesrc.Image)
}

// quoteBar is the width of the accent bar left of a quote box.
const quoteBar = 2.0

func paint(ctx context.Context, job Job, res layout.Result, p painter) error {
	th := job.Theme
	for _, pg := range res.Pages {
		if err := ctx.Err(); err != nil {
			return domain.Wrap(domain.KindCancelledByUser, "render", "", err)
		}
		if err := p.page(pg, th.Background); err != nil {
			return err
		}
		for _, e := range pg.Elements {
			switch e.Kind {
			case layout.ElemImage:
				p.image(e.Rect, job.Model.Header.Image)
			case layout.ElemBox:
				var fill *domain.Color
				if c, ok := th.Fill(e.Role); ok {
					fill = &c
				}
				var frame *domain.Stroke
				if s, ok := th.Frame(e.Role); ok {
					frame = &s
				}
				p.box(e.Rect, fill, frame)
				if e.Role == textlayout.StyleQuote {
					bar := th.Accent
					p.box(layout.Rect{X: e.Rect.X, Y: e.Rect.Y, W: quoteBar, H: e.Rect.H}, &bar, nil)
				}
			case layout.ElemText:
				p.text(e, th.Ink(e.Role))
			}
		}
	}
	return nil
}

// runStyle returns the style a run of e is drawn with.
func runStyle(e layout.Element, r textlayout.Run) textlayout.TextStyle {
	if r.Strong {
		return e.Style.Strong()
	}
	return e.Style
}
