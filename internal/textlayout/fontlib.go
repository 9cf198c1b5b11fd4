/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// FontLibrary stores loaded OpenType fonts mapped by family/weight/italic.
// It does not support named instances or variations.
type FontLibrary struct {
	fonts map[fontKey]*opentype.Font
	paths map[fontKey]string
}

type fontKey struct {
	family string
	weight int
	italic bool
}

func NewFontLibrary() *FontLibrary { return &FontLibrary{fonts: make(map[fontKey]*opentype.Font)} }

// LoadTTF loads a font file into the library under the given family/weight/italic.
func (fl *FontLibrary) LoadTTF(family string, weight int, italic bool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	if err := fl.LoadBytes(family, weight, italic, data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// LoadBytes parses an in-memory TrueType or OpenType font.
func (fl *FontLibrary) LoadBytes(family string, weight int, italic bool, data []byte) error {
	if fl.fonts == nil {
		fl.fonts = make(map[fontKey]*opentype.Font)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font: %w", err)
	}
	fl.fonts[fontKey{family: family, weight: weight, italic: italic}] = f
	return nil
}

// Builtin returns a library with the Go fonts registered under family. It
// covers Latin text and serves raster output when no fonts are configured.
func Builtin(family string) *FontLibrary {
	fl := NewFontLibrary()
	_ = fl.LoadBytes(family, 400, false, goregular.TTF)
	_ = fl.LoadBytes(family, 700, false, gobold.TTF)
	return fl
}

// LoadFamily loads a regular and an optional bold TrueType file under family.
// Paths are kept so PDF backends can embed the same files.
func (fl *FontLibrary) LoadFamily(family, regular, bold string) error {
	if err := fl.LoadTTF(family, 400, false, regular); err != nil {
		return err
	}
	if fl.paths == nil {
		fl.paths = make(map[fontKey]string)
	}
	fl.paths[fontKey{family: family, weight: 400}] = regular
	if bold == "" {
		return nil
	}
	if err := fl.LoadTTF(family, 700, false, bold); err != nil {
		return err
	}
	fl.paths[fontKey{family: family, weight: 700}] = bold
	return nil
}

// Path returns the file a family/weight was loaded from, if known.
func (fl *FontLibrary) Path(family string, bold bool) (string, bool) {
	if fl == nil {
		return "", false
	}
	w := 400
	if bold {
		w = 700
	}
	p, ok := fl.paths[fontKey{family: family, weight: w}]
	return p, ok
}

// Has reports whether any face of family is loaded.
func (fl *FontLibrary) Has(family string) bool {
	if fl == nil {
		return false
	}
	for k := range fl.fonts {
		if k.family == family {
			return true
		}
	}
	return false
}

func (fl *FontLibrary) find(spec FontSpec) *opentype.Font {
	if fl == nil || fl.fonts == nil {
		return nil
	}
	// Exact match first
	if f, ok := fl.fonts[fontKey{family: spec.Family, weight: spec.Weight, italic: spec.Italic}]; ok {
		return f
	}
	// Same weight bucket without italic, then regular, then anything in the family.
	bucket := 400
	if spec.Bold() {
		bucket = 700
	}
	if f, ok := fl.fonts[fontKey{family: spec.Family, weight: bucket}]; ok {
		return f
	}
	if f, ok := fl.fonts[fontKey{family: spec.Family, weight: 400}]; ok {
		return f
	}
	for k, f := range fl.fonts {
		if k.family == spec.Family {
			return f
		}
	}
	return nil
}

// OTProvider resolves FontSpec using a FontLibrary and falls back to another Provider.
// It uses kerning as provided by opentype.Face and font.Drawer.
type OTProvider struct {
	Lib      *FontLibrary
	DPI      float64 // default 72 if zero
	Fallback Provider
}

func (p OTProvider) Resolve(spec FontSpec) (font.Face, Metrics) {
	// Defaults
	if spec.SizePt <= 0 {
		spec.SizePt = 12
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = 72
	}

	if p.Lib != nil {
		if f := p.Lib.find(spec); f != nil {
			face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: float64(spec.SizePt), DPI: dpi, Hinting: font.HintingFull})
			if err == nil {
				m := face.Metrics()
				return face, Metrics{
					Ascent:  float32(m.Ascent.Round()),
					Descent: float32(m.Descent.Round()),
					LineGap: float32(m.Height.Round() - m.Ascent.Round() - m.Descent.Round()),
				}
			}
		}
	}
	fb := p.Fallback
	if fb == nil {
		fb = BasicProvider{}
	}
	return fb.Resolve(spec)
}
