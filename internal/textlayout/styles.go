/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

// TextStyle combines a font spec with spacing used when laying out one kind of
// scenario content. Tracking and Leading are measured in points.
type TextStyle struct {
	Name     string   `yaml:"name" json:"name"`
	Font     FontSpec `yaml:"font" json:"font"`
	Tracking float32  `yaml:"tracking" json:"tracking"` // added per inter-glyph gap
	Leading  float32  `yaml:"leading" json:"leading"`   // extra space added to line height
}

// Strong returns the bold variant of st, used for emphasis runs.
func (st TextStyle) Strong() TextStyle {
	if st.Font.Weight < 700 {
		st.Font.Weight = 700
	}
	return st
}

// Style names used by the document model.
const (
	StyleTitle   = "Title"
	StyleSummary = "Summary"
	StyleHeading = "Heading"
	StyleBody    = "Body"
	StyleQuote   = "Quote"
	StyleHandout = "Handout"
	StyleSecret  = "Secret"
	StyleLabel   = "Label"
)

// DefaultFamily is the logical family builtin styles ask for.
const DefaultFamily = "Sans"

var builtinStyles = map[string]TextStyle{
	StyleTitle:   {Name: StyleTitle, Font: FontSpec{Family: DefaultFamily, SizePt: 18, Weight: 700}, Leading: 2},
	StyleSummary: {Name: StyleSummary, Font: FontSpec{Family: DefaultFamily, SizePt: 10, Weight: 400, Italic: true}, Leading: 1.5},
	StyleHeading: {Name: StyleHeading, Font: FontSpec{Family: DefaultFamily, SizePt: 12, Weight: 700}, Leading: 1},
	StyleBody:    {Name: StyleBody, Font: FontSpec{Family: DefaultFamily, SizePt: 10, Weight: 400}, Leading: 1.5},
	StyleQuote:   {Name: StyleQuote, Font: FontSpec{Family: DefaultFamily, SizePt: 10, Weight: 400, Italic: true}, Leading: 1.5},
	StyleHandout: {Name: StyleHandout, Font: FontSpec{Family: DefaultFamily, SizePt: 10, Weight: 700}, Leading: 1.5},
	StyleSecret:  {Name: StyleSecret, Font: FontSpec{Family: DefaultFamily, SizePt: 10, Weight: 400}, Leading: 1.5},
	StyleLabel:   {Name: StyleLabel, Font: FontSpec{Family: DefaultFamily, SizePt: 7, Weight: 700}, Tracking: 0.5},
}

// GetStyle returns a builtin style preset by name. The second return value is false if
// the style is not found.
func GetStyle(name string) (TextStyle, bool) { s, ok := builtinStyles[name]; return s, ok }

// ListStyles lists the names of the builtin styles in stable order.
func ListStyles() []string {
	return []string{StyleTitle, StyleSummary, StyleHeading, StyleBody, StyleQuote, StyleHandout, StyleSecret, StyleLabel}
}
