/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package layout places the abstract document onto fixed-size pages. Page 1
// uses a single full-width region; every following page uses two columns.
package layout

import (
	"errors"
	"fmt"
)

// Points per millimetre.
const mm = 72.0 / 25.4

// Rect is an area in points with the origin at the top-left page corner.
type Rect struct{ X, Y, W, H float64 }

// Bottom returns the y coordinate of the lower edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.W }

// Geometry holds the page metrics all templates derive from.
type Geometry struct {
	PageW       float64 `yaml:"page_w" json:"page_w"`
	PageH       float64 `yaml:"page_h" json:"page_h"`
	Margin      float64 `yaml:"margin" json:"margin"`
	Gutter      float64 `yaml:"gutter" json:"gutter"`
	ImageHeight float64 `yaml:"image_height" json:"image_height"`
}

// DefaultGeometry is ISO A4 with a 16pt margin, a 6mm gutter and an 80mm
// header image band.
func DefaultGeometry() Geometry {
	return Geometry{
		PageW:       595.28,
		PageH:       841.89,
		Margin:      16,
		Gutter:      6 * mm,
		ImageHeight: 80 * mm,
	}
}

// WithDefaults fills zero fields from DefaultGeometry.
func (g Geometry) WithDefaults() Geometry {
	d := DefaultGeometry()
	if g.PageW <= 0 {
		g.PageW = d.PageW
	}
	if g.PageH <= 0 {
		g.PageH = d.PageH
	}
	if g.Margin <= 0 {
		g.Margin = d.Margin
	}
	if g.Gutter <= 0 {
		g.Gutter = d.Gutter
	}
	if g.ImageHeight <= 0 {
		g.ImageHeight = d.ImageHeight
	}
	return g
}

// Validate reports geometries that leave no room for content.
func (g Geometry) Validate() error {
	if g.PageW <= 0 || g.PageH <= 0 {
		return errors.New("page size must be positive")
	}
	if 2*g.Margin+g.Gutter >= g.PageW {
		return fmt.Errorf("margin %.2f and gutter %.2f leave no column width", g.Margin, g.Gutter)
	}
	if 2*g.Margin+g.ImageHeight >= g.PageH {
		return fmt.Errorf("image height %.2f leaves no room on the first page", g.ImageHeight)
	}
	return nil
}

// PageLayout is the set of regions for both page templates.
type PageLayout struct {
	First        Rect
	Continuation [2]Rect
}

// PageLayout derives the regions from g.
func (g Geometry) PageLayout() PageLayout {
	inner := Rect{X: g.Margin, Y: g.Margin, W: g.PageW - 2*g.Margin, H: g.PageH - 2*g.Margin}
	colW := (inner.W - g.Gutter) / 2
	return PageLayout{
		First: inner,
		Continuation: [2]Rect{
			{X: inner.X, Y: inner.Y, W: colW, H: inner.H},
			{X: inner.X + colW + g.Gutter, Y: inner.Y, W: colW, H: inner.H},
		},
	}
}

// Template names the arrangement of regions on a page.
type Template int

const (
	TemplateFirst Template = iota
	TemplateLater
)

func (t Template) String() string {
	if t == TemplateFirst {
		return "first"
	}
	return "later"
}

// Regions returns the regions of template t in flow order.
func (pl PageLayout) Regions(t Template) []Rect {
	if t == TemplateFirst {
		return []Rect{pl.First}
	}
	return []Rect{pl.Continuation[0], pl.Continuation[1]}
}
