/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package markup

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	headingPrefix = "# "
	quotePrefix   = ">"
	handoutOpen   = "{{"
	handoutClose  = "}}"
	secretOpen    = ":::secret"
	secretClose   = ":::"
)

// Classify maps one source line to a Block. It accepts every string; lines
// with malformed markers fall through to KindParagraph.
func Classify(line string) Block {
	right := strings.TrimRightFunc(line, unicode.IsSpace)
	if right == "" {
		return Block{Kind: KindBlank}
	}
	if rest, ok := strings.CutPrefix(right, headingPrefix); ok {
		return Block{Kind: KindHeading, Text: strings.TrimSpace(rest)}
	}
	if rest, ok := strings.CutPrefix(right, quotePrefix); ok {
		return Block{Kind: KindQuote, Text: strings.TrimSpace(rest)}
	}
	trim := strings.TrimSpace(line)
	if inner, ok := enclosed(trim, handoutOpen, handoutClose); ok {
		return Block{Kind: KindHandout, Text: strings.TrimSpace(inner)}
	}
	if inner, ok := enclosed(trim, secretOpen, secretClose); ok {
		inner = strings.TrimSpace(inner)
		if inner == "" {
			inner = SecretPlaceholder
		}
		return Block{Kind: KindSecret, Text: inner}
	}
	return Block{Kind: KindParagraph, Text: trim}
}

// enclosed returns the text between open and close when s starts with open and
// ends with close and the two markers do not overlap.
func enclosed(s, open, close string) (string, bool) {
	if len(s) < len(open)+len(close) {
		return "", false
	}
	if !strings.HasPrefix(s, open) || !strings.HasSuffix(s, close) {
		return "", false
	}
	return s[len(open) : len(s)-len(close)], true
}

// Parse splits body into lines and classifies each of them. The body is NFC
// normalised first; "\n", "\r\n" and "\r" all end a line and a final line
// terminator does not start another line. Blank lines are kept.
func Parse(body string) []Block {
	lines := SplitLines(norm.NFC.String(body))
	if len(lines) == 0 {
		return nil
	}
	blocks := make([]Block, len(lines))
	for i, l := range lines {
		b := Classify(l)
		b.Line = i + 1
		blocks[i] = b
	}
	return blocks
}

// SplitLines splits s into lines without their terminators.
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\n':
			out = append(out, s[start:i])
			start = i + 1
		case '\r':
			out = append(out, s[start:i])
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

// Headings returns the heading blocks of blocks in order.
func Headings(blocks []Block) []Block {
	var out []Block
	for _, b := range blocks {
		if b.Kind == KindHeading {
			out = append(out, b)
		}
	}
	return out
}

// Count returns the number of blocks per kind.
func Count(blocks []Block) map[Kind]int {
	m := make(map[Kind]int)
	for _, b := range blocks {
		m[b.Kind]++
	}
	return m
}

