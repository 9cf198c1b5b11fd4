/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"shinobiwriter/internal/domain"
	"shinobiwriter/internal/layout"
	applog "shinobiwriter/internal/log"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type GeneralConfig struct {
	TelemetryOptIn bool `yaml:"telemetry_opt_in"`
	// AutosaveKeep is how many history snapshots are kept per project.
	AutosaveKeep int `yaml:"autosave_keep"`
}

type ExportConfig struct {
	Format        string  `yaml:"format"`
	TypstBin      string  `yaml:"typst_bin"`
	MarginPt      float64 `yaml:"margin_pt"`
	GutterPt      float64 `yaml:"gutter_pt"`
	ImageHeightPt float64 `yaml:"image_height_pt"`
	TimeoutSec    int     `yaml:"timeout_sec"`
	DPI           float64 `yaml:"dpi"`
}

// FontsConfig points at TrueType files with CJK coverage. Empty paths select
// the builtin fallback fonts.
type FontsConfig struct {
	Family  string `yaml:"family"`
	Regular string `yaml:"regular"`
	Bold    string `yaml:"bold"`
}

// ThemeConfig holds #rrggbb colours; empty entries keep the built-in theme.
type ThemeConfig struct {
	Accent      string `yaml:"accent"`
	Background  string `yaml:"background"`
	Text        string `yaml:"text"`
	Muted       string `yaml:"muted"`
	QuoteFill   string `yaml:"quote_fill"`
	HandoutFill string `yaml:"handout_fill"`
	SecretFill  string `yaml:"secret_fill"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Export        ExportConfig  `yaml:"export"`
	Fonts         FontsConfig   `yaml:"fonts"`
	Theme         ThemeConfig   `yaml:"theme"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	g := layout.DefaultGeometry()
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, AutosaveKeep: 50},
		Export: ExportConfig{
			Format:        "pdf",
			TypstBin:      "typst",
			MarginPt:      g.Margin,
			GutterPt:      g.Gutter,
			ImageHeightPt: g.ImageHeight,
			TimeoutSec:    60,
			DPI:           144,
		},
		Logging: LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvTelemetryOptIn = "SHW_TELEMETRY_OPT_IN"
	EnvExportFormat   = "SHW_EXPORT_FORMAT"
	EnvTypstBin       = "SHW_TYPST_BIN"
	EnvExportTimeout  = "SHW_EXPORT_TIMEOUT_SEC"
	EnvFontRegular    = "SHW_FONT_REGULAR"
	EnvFontBold       = "SHW_FONT_BOLD"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "SHW_LOG_LEVEL"
	EnvLogFormat = "SHW_LOG_FORMAT"
	EnvLogSource = "SHW_LOG_SOURCE"
	EnvLogFile   = "SHW_LOG_FILE"
)

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "ShinobiWriter")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "ShinobiWriter")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "shinobiwriter")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges
// environment overrides. A malformed file is logged and ignored.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		} else {
			applog.WithComponent("config").Warn("ignoring malformed config file",
				slog.String("path", path), slog.Any("err", err))
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if src.General.AutosaveKeep > 0 {
		dst.General.AutosaveKeep = src.General.AutosaveKeep
	}
	// export
	if v := strings.ToLower(strings.TrimSpace(src.Export.Format)); v != "" {
		dst.Export.Format = v
	}
	if v := strings.TrimSpace(src.Export.TypstBin); v != "" {
		dst.Export.TypstBin = v
	}
	if src.Export.MarginPt > 0 {
		dst.Export.MarginPt = src.Export.MarginPt
	}
	if src.Export.GutterPt > 0 {
		dst.Export.GutterPt = src.Export.GutterPt
	}
	if src.Export.ImageHeightPt > 0 {
		dst.Export.ImageHeightPt = src.Export.ImageHeightPt
	}
	if src.Export.TimeoutSec > 0 {
		dst.Export.TimeoutSec = src.Export.TimeoutSec
	}
	if src.Export.DPI > 0 {
		dst.Export.DPI = src.Export.DPI
	}
	// fonts
	if v := strings.TrimSpace(src.Fonts.Family); v != "" {
		dst.Fonts.Family = v
	}
	if v := strings.TrimSpace(src.Fonts.Regular); v != "" {
		dst.Fonts.Regular = v
	}
	if v := strings.TrimSpace(src.Fonts.Bold); v != "" {
		dst.Fonts.Bold = v
	}
	// theme
	pick := func(d *string, s string) {
		if s = strings.TrimSpace(s); s != "" {
			*d = s
		}
	}
	pick(&dst.Theme.Accent, src.Theme.Accent)
	pick(&dst.Theme.Background, src.Theme.Background)
	pick(&dst.Theme.Text, src.Theme.Text)
	pick(&dst.Theme.Muted, src.Theme.Muted)
	pick(&dst.Theme.QuoteFill, src.Theme.QuoteFill)
	pick(&dst.Theme.HandoutFill, src.Theme.HandoutFill)
	pick(&dst.Theme.SecretFill, src.Theme.SecretFill)
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvExportFormat)); v != "" {
		cfg.Export.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTypstBin)); v != "" {
		cfg.Export.TypstBin = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvExportTimeout)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Export.TimeoutSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvFontRegular)); v != "" {
		cfg.Fonts.Regular = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvFontBold)); v != "" {
		cfg.Fonts.Bold = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envKeys = map[string]string{
	"general.telemetry_opt_in": EnvTelemetryOptIn,
	"export.format":            EnvExportFormat,
	"export.typst_bin":         EnvTypstBin,
	"export.timeout_sec":       EnvExportTimeout,
	"fonts.regular":            EnvFontRegular,
	"fonts.bold":               EnvFontBold,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// Geometry returns the page geometry on A4 with the configured margins.
func (e ExportConfig) Geometry() layout.Geometry {
	return layout.Geometry{Margin: e.MarginPt, Gutter: e.GutterPt, ImageHeight: e.ImageHeightPt}.WithDefaults()
}

// Timeout returns the external backend timeout.
func (e ExportConfig) Timeout() time.Duration {
	if e.TimeoutSec <= 0 {
		return time.Duration(Defaults().Export.TimeoutSec) * time.Second
	}
	return time.Duration(e.TimeoutSec) * time.Second
}

// Palette is the parsed theme. Zero colours mean "use the built-in value".
type Palette struct {
	Accent      domain.Color
	Background  domain.Color
	Text        domain.Color
	Muted       domain.Color
	QuoteFill   domain.Color
	HandoutFill domain.Color
	SecretFill  domain.Color
}

// Colors parses the theme's hex colours.
func (t ThemeConfig) Colors() (Palette, error) {
	var p Palette
	entries := []struct {
		key string
		src string
		dst *domain.Color
	}{
		{"accent", t.Accent, &p.Accent},
		{"background", t.Background, &p.Background},
		{"text", t.Text, &p.Text},
		{"muted", t.Muted, &p.Muted},
		{"quote_fill", t.QuoteFill, &p.QuoteFill},
		{"handout_fill", t.HandoutFill, &p.HandoutFill},
		{"secret_fill", t.SecretFill, &p.SecretFill},
	}
	for _, e := range entries {
		if strings.TrimSpace(e.src) == "" {
			continue
		}
		c, err := domain.ParseHexColor(e.src)
		if err != nil {
			return Palette{}, fmt.Errorf("theme.%s: %w", e.key, err)
		}
		*e.dst = c
	}
	return p, nil
}
