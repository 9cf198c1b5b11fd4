/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
)

// Document is the scenario being edited. It is owned by the editor session and
// persisted verbatim to the project file; the rendering pipeline only reads it.
type Document struct {
	Title       string `json:"title"`
	Body        string `json:"text_content"`
	HeaderImage string `json:"header_image_path"`
	Summary     string `json:"summary,omitempty"`
	// Handouts maps handout keys such as "HO1" to the text printed in their frame.
	Handouts map[string]string `json:"handouts,omitempty"`
}

// Equal reports whether d and o hold the same content. A nil and an empty
// handout map are equal.
func (d Document) Equal(o Document) bool {
	return d.Title == o.Title && d.Body == o.Body && d.HeaderImage == o.HeaderImage &&
		d.Summary == o.Summary && maps.Equal(d.Handouts, o.Handouts)
}

// DisplayTitle returns the title used on the first page, falling back to fallback when blank.
func (d Document) DisplayTitle(fallback string) string {
	if t := strings.TrimSpace(d.Title); t != "" {
		return t
	}
	return fallback
}

// Color is an 8-bit RGBA colour.
type Color struct {
	R uint8 `json:"r" yaml:"r"`
	G uint8 `json:"g" yaml:"g"`
	B uint8 `json:"b" yaml:"b"`
	A uint8 `json:"a" yaml:"a"`
}

// IsZero reports whether c is the zero value (used for "unset" in options).
func (c Color) IsZero() bool { return c == Color{} }

// Hex formats the colour as #rrggbb.
func (c Color) Hex() string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

// ParseHexColor parses "#rgb" or "#rrggbb" (the leading # is optional).
func ParseHexColor(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return Color{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// Stroke is a line colour and width in points.
type Stroke struct {
	Color Color   `json:"color"`
	Width float64 `json:"width"`
}
