/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// FaceMeasurer measures text with font faces resolved by a Provider. Faces are
// assumed to be built at 72 DPI so one pixel equals one point. The fixed-size
// basicfont face is scaled to the requested size.
type FaceMeasurer struct {
	Provider Provider
}

func (m FaceMeasurer) provider() Provider {
	if m.Provider == nil {
		return BasicProvider{}
	}
	return m.Provider
}

// Width returns the advance of text in points including tracking.
func (m FaceMeasurer) Width(text string, st TextStyle) float64 {
	if text == "" {
		return 0
	}
	face, _ := m.provider().Resolve(st.Font)
	w := float64(advance(&font.Drawer{Face: face}, text)) * scale(face, st.Font)
	if n := utf8.RuneCountInString(text); n > 1 {
		w += float64(st.Tracking) * float64(n-1)
	}
	return w
}

// LineHeight returns the baseline-to-baseline distance in points.
func (m FaceMeasurer) LineHeight(st TextStyle) float64 {
	face, met := m.provider().Resolve(st.Font)
	h := float64(met.Ascent+met.Descent+met.LineGap) * scale(face, st.Font)
	return h + float64(st.Leading)
}

// Ascent returns the distance from the top of a line to its baseline.
func (m FaceMeasurer) Ascent(st TextStyle) float64 {
	face, met := m.provider().Resolve(st.Font)
	return float64(met.Ascent) * scale(face, st.Font)
}

func scale(face font.Face, spec FontSpec) float64 {
	if bf, ok := face.(*basicfont.Face); ok && spec.SizePt > 0 {
		return float64(spec.SizePt) / float64(bf.Height)
	}
	return 1
}

// EstimateMeasurer approximates metrics from the font size alone: narrow runes
// take half an em, East Asian wide runes a full em. It is used where no real
// font metrics exist (SVG, HTML) and keeps layout tests independent of fonts.
type EstimateMeasurer struct{}

func (EstimateMeasurer) Width(text string, st TextStyle) float64 {
	size := float64(st.Font.SizePt)
	var w float64
	n := 0
	for _, r := range text {
		n++
		if IsWide(r) {
			w += size
		} else {
			w += size * 0.5
		}
	}
	if st.Font.Bold() {
		w *= 1.05
	}
	if n > 1 {
		w += float64(st.Tracking) * float64(n-1)
	}
	return w
}

func (EstimateMeasurer) LineHeight(st TextStyle) float64 {
	return float64(st.Font.SizePt)*1.4 + float64(st.Leading)
}

func (EstimateMeasurer) Ascent(st TextStyle) float64 { return float64(st.Font.SizePt) * 1.1 }
