/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package markup classifies scenario source text into blocks and splits block
// payloads into inline spans (ruby annotations and bracketed emphasis).
package markup

// Kind identifies what a single source line represents.
type Kind int

const (
	KindBlank Kind = iota
	KindHeading
	KindQuote
	KindHandout
	KindSecret
	KindParagraph
)

func (k Kind) String() string {
	switch k {
	case KindBlank:
		return "blank"
	case KindHeading:
		return "heading"
	case KindQuote:
		return "quote"
	case KindHandout:
		return "handout"
	case KindSecret:
		return "secret"
	case KindParagraph:
		return "paragraph"
	default:
		return "unknown"
	}
}

// Block is one classified source line. Line is 1-based; blocks built by
// Classify directly have Line 0.
type Block struct {
	Kind Kind
	Text string
	Line int
}

// HasInline reports whether the block payload may carry inline markup.
// Headings are printed literally.
func (b Block) HasInline() bool { return b.Kind != KindBlank && b.Kind != KindHeading }

// Spans splits the payload into inline spans. Blocks without inline markup
// yield their text as a single literal span.
func (b Block) Spans() []Span {
	if !b.HasInline() {
		if b.Text == "" {
			return nil
		}
		return []Span{{Kind: SpanText, Text: b.Text}}
	}
	return Spans(b.Text)
}

// Render renders the payload through t, keeping literal blocks literal.
func (b Block) Render(t Target) string { return Render(b.Spans(), t) }

// SecretPlaceholder is the payload of a secret block written without content.
const SecretPlaceholder = "(secret)"
