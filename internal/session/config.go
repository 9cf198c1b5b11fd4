/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"shinobiwriter/internal/config"
	"shinobiwriter/internal/export"
)

// OptionsFromConfig maps the user configuration onto session options. A
// malformed theme colour is reported and the built-in theme is kept.
func OptionsFromConfig(cfg config.AppConfig) (Options, error) {
	opts := Options{
		AutosaveKeep: cfg.General.AutosaveKeep,
		Export: export.Options{
			Geometry: cfg.Export.Geometry(),
			Fonts:    export.Fonts{Family: cfg.Fonts.Family, Regular: cfg.Fonts.Regular, Bold: cfg.Fonts.Bold},
			TypstBin: cfg.Export.TypstBin,
			Timeout:  cfg.Export.Timeout(),
			DPI:      cfg.Export.DPI,
		},
	}
	p, err := cfg.Theme.Colors()
	if err != nil {
		return opts, err
	}
	opts.Export.Theme = export.Theme{
		Accent:      p.Accent,
		Background:  p.Background,
		Text:        p.Text,
		Muted:       p.Muted,
		QuoteFill:   p.QuoteFill,
		HandoutFill: p.HandoutFill,
		SecretFill:  p.SecretFill,
	}
	return opts, nil
}
