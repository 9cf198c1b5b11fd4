/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package markup

import (
	"regexp"
	"strings"
)

var handoutKeyRE = regexp.MustCompile(`^[A-Z]+[0-9]+$`)

// IsHandoutKey reports whether key names a dictionary handout, e.g. "HO1" or "PC12".
func IsHandoutKey(key string) bool { return handoutKeyRE.MatchString(key) }

// UndefinedHandout is the text printed for a key missing from the dictionary.
func UndefinedHandout(key string) string { return key + " が未定義です" }

// ResolveHandouts returns blocks with every handout naming a dictionary key
// replaced by the key and its text on the following lines. Keys missing from
// dict print UndefinedHandout. Payloads that are not keys are left alone, and
// so is everything when dict is empty. The input slice is not modified.
func ResolveHandouts(blocks []Block, dict map[string]string) []Block {
	if len(dict) == 0 {
		return blocks
	}
	var out []Block
	for i, b := range blocks {
		if b.Kind != KindHandout || !IsHandoutKey(b.Text) {
			continue
		}
		if out == nil {
			out = append([]Block(nil), blocks...)
		}
		body, ok := dict[b.Text]
		if !ok {
			out[i].Text = UndefinedHandout(b.Text)
			continue
		}
		body = strings.Trim(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
		if body == "" {
			continue
		}
		out[i].Text = b.Text + "\n" + body
	}
	if out == nil {
		return blocks
	}
	return out
}
