/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import "sort"

// StyleSheet resolves TextStyle presets over three scopes:
//   - Global: builtins, copied in by NewStyleSheet
//   - Theme: overrides from the user configuration
//   - Document: overrides for a single export run
//
// Resolution precedence is Document > Theme > Global > Builtin.
type StyleSheet struct {
	Global   map[string]TextStyle
	Theme    map[string]TextStyle
	Document map[string]TextStyle
}

// NewStyleSheet creates a stylesheet with empty scopes and builtin styles
// copied into Global.
func NewStyleSheet() *StyleSheet {
	ss := &StyleSheet{
		Global:   map[string]TextStyle{},
		Theme:    map[string]TextStyle{},
		Document: map[string]TextStyle{},
	}
	for _, name := range ListStyles() {
		if st, ok := GetStyle(name); ok {
			ss.Global[name] = st
		}
	}
	return ss
}

// WithTheme returns a copy with the provided theme-level overrides merged.
func (s *StyleSheet) WithTheme(over map[string]TextStyle) *StyleSheet {
	cp := s.clone()
	for k, v := range over {
		cp.Theme[k] = v
	}
	return cp
}

// WithDocument returns a copy with the provided document-level overrides merged.
func (s *StyleSheet) WithDocument(over map[string]TextStyle) *StyleSheet {
	cp := s.clone()
	for k, v := range over {
		cp.Document[k] = v
	}
	return cp
}

// WithFamily returns a copy in which every resolvable style uses family.
// It is applied at theme level so document overrides still win.
func (s *StyleSheet) WithFamily(family string) *StyleSheet {
	if family == "" {
		return s
	}
	over := map[string]TextStyle{}
	for _, name := range s.Names() {
		st, _ := s.Resolve(name)
		st.Font.Family = family
		over[name] = st
	}
	return s.WithTheme(over)
}

// Resolve returns the effective TextStyle by name.
// The second return value is false if the name cannot be resolved at any level.
func (s *StyleSheet) Resolve(name string) (TextStyle, bool) {
	if s == nil {
		return GetStyle(name)
	}
	if st, ok := s.Document[name]; ok {
		return st, true
	}
	if st, ok := s.Theme[name]; ok {
		return st, true
	}
	if st, ok := s.Global[name]; ok {
		return st, true
	}
	return GetStyle(name)
}

// MustResolve resolves name and falls back to the builtin Body style.
func (s *StyleSheet) MustResolve(name string) TextStyle {
	if st, ok := s.Resolve(name); ok {
		return st
	}
	st, _ := GetStyle(StyleBody)
	return st
}

// Names returns the builtin names in ListStyles order followed by any
// additional names from the scopes, sorted.
func (s *StyleSheet) Names() []string {
	seen := map[string]bool{}
	var out []string
	for _, name := range ListStyles() {
		out = append(out, name)
		seen[name] = true
	}
	if s == nil {
		return out
	}
	var extra []string
	for _, m := range []map[string]TextStyle{s.Global, s.Theme, s.Document} {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func (s *StyleSheet) clone() *StyleSheet {
	cp := &StyleSheet{Global: map[string]TextStyle{}, Theme: map[string]TextStyle{}, Document: map[string]TextStyle{}}
	if s == nil {
		return cp
	}
	for k, v := range s.Global {
		cp.Global[k] = v
	}
	for k, v := range s.Theme {
		cp.Theme[k] = v
	}
	for k, v := range s.Document {
		cp.Document[k] = v
	}
	return cp
}
