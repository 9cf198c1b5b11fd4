/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package markup

import "strings"

// SpanKind identifies an inline fragment of a block payload.
type SpanKind int

const (
	SpanText SpanKind = iota
	SpanRuby
	SpanEmphasis
)

// Span is one inline fragment. Text holds the literal text, the ruby base or
// the emphasis label; Reading is set for ruby spans only.
type Span struct {
	Kind    SpanKind
	Text    string
	Reading string
}

// Spans splits payload into inline spans. Ruby annotations "{base}(reading)"
// are matched first; bracketed emphasis "{{label}}" is then matched inside the
// remaining literal text only. Adjacent literal text is merged.
func Spans(payload string) []Span {
	var out []Span
	for _, s := range rubySpans(payload) {
		if s.Kind != SpanText {
			out = append(out, s)
			continue
		}
		for _, e := range emphasisSpans(s.Text) {
			out = appendSpan(out, e)
		}
	}
	return out
}

func rubySpans(s string) []Span {
	var out []Span
	lit := 0
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		base, reading, end, ok := matchRuby(s, i)
		if !ok {
			continue
		}
		if lit < i {
			out = appendSpan(out, Span{Kind: SpanText, Text: s[lit:i]})
		}
		out = append(out, Span{Kind: SpanRuby, Text: base, Reading: reading})
		lit = end
		i = end - 1
	}
	if lit < len(s) {
		out = appendSpan(out, Span{Kind: SpanText, Text: s[lit:]})
	}
	return out
}

// matchRuby matches "{base}(reading)" at s[i]. end is the index just past ')'.
func matchRuby(s string, i int) (base, reading string, end int, ok bool) {
	rest := s[i+1:]
	j := strings.IndexByte(rest, '}')
	if j <= 0 {
		return "", "", 0, false
	}
	base = rest[:j]
	if strings.IndexByte(base, '{') >= 0 {
		return "", "", 0, false
	}
	rest = rest[j+1:]
	if !strings.HasPrefix(rest, "(") {
		return "", "", 0, false
	}
	rest = rest[1:]
	k := strings.IndexByte(rest, ')')
	if k <= 0 {
		return "", "", 0, false
	}
	reading = rest[:k]
	end = i + 1 + j + 1 + 1 + k + 1
	return base, reading, end, true
}

func emphasisSpans(s string) []Span {
	var out []Span
	for {
		i := strings.Index(s, "{{")
		if i < 0 {
			break
		}
		j := strings.Index(s[i+2:], "}}")
		if j < 0 {
			break
		}
		if i > 0 {
			out = append(out, Span{Kind: SpanText, Text: s[:i]})
		}
		out = append(out, Span{Kind: SpanEmphasis, Text: s[i+2 : i+2+j]})
		s = s[i+2+j+2:]
	}
	if s != "" {
		out = append(out, Span{Kind: SpanText, Text: s})
	}
	return out
}

func appendSpan(out []Span, s Span) []Span {
	if s.Kind == SpanText {
		if s.Text == "" {
			return out
		}
		if n := len(out); n > 0 && out[n-1].Kind == SpanText {
			out[n-1].Text += s.Text
			return out
		}
	}
	return append(out, s)
}

// PlainText concatenates spans the way PlainTarget renders them.
func PlainText(spans []Span) string { return Render(spans, PlainTarget) }

// Target renders spans into an output format. Text escapes literal text for the
// format and is applied to every piece of text, including ruby base, reading
// and emphasis labels, before Ruby and Emphasis see it. Nil hooks fall back to
// the PlainTarget rendering.
type Target struct {
	Ruby     func(base, reading string) string
	Emphasis func(label string) string
	Text     func(s string) string
}

// PlainTarget renders ruby as "base(reading)" and emphasis as "*【label】*".
var PlainTarget = Target{
	Ruby:     plainRuby,
	Emphasis: plainEmphasis,
	Text:     func(s string) string { return s },
}

func plainRuby(base, reading string) string { return base + "(" + reading + ")" }
func plainEmphasis(label string) string    { return "*【" + label + "】*" }

// Transform renders the inline markup of payload through t.
func Transform(payload string, t Target) string { return Render(Spans(payload), t) }

// Render renders already split spans through t.
func Render(spans []Span, t Target) string {
	text := t.Text
	if text == nil {
		text = func(s string) string { return s }
	}
	ruby := t.Ruby
	if ruby == nil {
		ruby = plainRuby
	}
	emph := t.Emphasis
	if emph == nil {
		emph = plainEmphasis
	}
	var b strings.Builder
	for _, s := range spans {
		switch s.Kind {
		case SpanRuby:
			b.WriteString(ruby(text(s.Text), text(s.Reading)))
		case SpanEmphasis:
			b.WriteString(emph(text(s.Text)))
		default:
			b.WriteString(text(s.Text))
		}
	}
	return b.String()
}
