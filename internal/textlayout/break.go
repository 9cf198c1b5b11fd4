/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/width"
)

// Run is a piece of text drawn with one style variant.
type Run struct {
	Text   string
	Strong bool
}

// Line is one broken line of runs and its measured width.
type Line struct {
	Runs  []Run
	Width float64
}

// Text returns the concatenated text of the line.
func (l Line) Text() string {
	var b strings.Builder
	for _, r := range l.Runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

// WidthFunc measures text drawn plain or strong.
type WidthFunc func(text string, strong bool) float64

// IsWide reports whether r is an East Asian wide or fullwidth rune. Such runes
// may be broken between any two of them.
func IsWide(r rune) bool {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return true
	}
	return false
}

type atom struct {
	text   string
	strong bool
	space  bool
	hard   bool
}

// atoms splits runs into breakable units: single wide runes, runs of spaces,
// words of narrow runes and hard breaks for "\n".
func atoms(runs []Run) []atom {
	var out []atom
	for _, r := range runs {
		s := r.Text
		for s != "" {
			c, size := utf8.DecodeRuneInString(s)
			switch {
			case c == '\n':
				out = append(out, atom{hard: true})
				s = s[size:]
			case unicode.IsSpace(c):
				n := size
				for n < len(s) {
					c2, sz := utf8.DecodeRuneInString(s[n:])
					if !unicode.IsSpace(c2) || c2 == '\n' {
						break
					}
					n += sz
				}
				out = append(out, atom{text: " ", strong: r.Strong, space: true})
				s = s[n:]
			case IsWide(c):
				out = append(out, atom{text: s[:size], strong: r.Strong})
				s = s[size:]
			default:
				n := size
				for n < len(s) {
					c2, sz := utf8.DecodeRuneInString(s[n:])
					if unicode.IsSpace(c2) || IsWide(c2) {
						break
					}
					n += sz
				}
				out = append(out, atom{text: s[:n], strong: r.Strong})
				s = s[n:]
			}
		}
	}
	return out
}

// Breaker produces lines one at a time so that consecutive lines may be
// broken for different widths, e.g. when text continues into a narrower column.
// Alphabetic words break at spaces, wide runes break anywhere and a word longer
// than the width is split at rune boundaries. Spaces at line ends are dropped.
// A "\n" always ends the current line; consecutive ones yield empty lines.
type Breaker struct {
	atoms   []atom
	pos     int
	measure WidthFunc
	emitted bool
}

// NewBreaker prepares runs for breaking.
func NewBreaker(runs []Run, measure WidthFunc) *Breaker {
	return &Breaker{atoms: atoms(runs), measure: measure}
}

func (b *Breaker) skipSpaces() {
	for b.pos < len(b.atoms) && b.atoms[b.pos].space {
		b.pos++
	}
}

// Done reports whether Next would return no further line. Empty input still
// yields one empty line so callers can reserve its height.
func (b *Breaker) Done() bool {
	b.skipSpaces()
	return b.pos >= len(b.atoms) && b.emitted
}

// Next returns the next line fitting maxWidth. A maxWidth of zero or less
// disables wrapping.
func (b *Breaker) Next(maxWidth float64) (Line, bool) {
	if b.Done() {
		return Line{}, false
	}
	b.emitted = true
	var cur Line
	put := func(text string, strong bool, w float64) {
		if n := len(cur.Runs); n > 0 && cur.Runs[n-1].Strong == strong {
			cur.Runs[n-1].Text += text
		} else {
			cur.Runs = append(cur.Runs, Run{Text: text, Strong: strong})
		}
		cur.Width += w
	}
	pendingSpace, spaceStrong := false, false
	for b.pos < len(b.atoms) {
		a := b.atoms[b.pos]
		if a.hard {
			b.pos++
			break
		}
		if a.space {
			pendingSpace, spaceStrong = true, a.strong
			b.pos++
			continue
		}
		w := b.measure(a.text, a.strong)
		sw := 0.0
		if pendingSpace {
			sw = b.measure(" ", spaceStrong)
		}
		if len(cur.Runs) > 0 && maxWidth > 0 && cur.Width+sw+w > maxWidth {
			break
		}
		if pendingSpace {
			put(" ", spaceStrong, sw)
			pendingSpace = false
		}
		if maxWidth > 0 && w > maxWidth {
			// Only reached on an empty line: take what fits, at least one rune.
			head, tail, hw := b.splitFit(a, maxWidth)
			put(head, a.strong, hw)
			if tail == "" {
				b.pos++
				if b.pos < len(b.atoms) && b.atoms[b.pos].hard {
					b.pos++
				}
			} else {
				b.atoms[b.pos].text = tail
			}
			break
		}
		put(a.text, a.strong, w)
		b.pos++
	}
	return cur, true
}

func (b *Breaker) splitFit(a atom, maxWidth float64) (head, tail string, w float64) {
	for i, c := range a.text {
		cw := b.measure(string(c), a.strong)
		if i > 0 && w+cw > maxWidth {
			return a.text[:i], a.text[i:], w
		}
		w += cw
	}
	return a.text, "", w
}

// Break breaks runs into lines of at most maxWidth.
func Break(runs []Run, maxWidth float64, measure WidthFunc) []Line {
	br := NewBreaker(runs, measure)
	var lines []Line
	for {
		ln, ok := br.Next(maxWidth)
		if !ok {
			return lines
		}
		lines = append(lines, ln)
	}
}

// StyleWidth adapts a measurer to a WidthFunc for one style; strong runs use
// the bold variant of st.
func StyleWidth(m interface {
	Width(string, TextStyle) float64
}, st TextStyle) WidthFunc {
	strong := st.Strong()
	return func(text string, isStrong bool) float64 {
		if isStrong {
			return m.Width(text, strong)
		}
		return m.Width(text, st)
	}
}

// BreakStyle breaks runs with a measurer for a single style.
func BreakStyle(runs []Run, maxWidth float64, m interface {
	Width(string, TextStyle) float64
}, st TextStyle) []Line {
	return Break(runs, maxWidth, StyleWidth(m, st))
}
