/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"shinobiwriter/internal/domain"
)

func useHome(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("config path is resolved from AppData on windows")
	}
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestEnvOverridesTypstBin(t *testing.T) {
	useHome(t)
	t.Setenv(EnvTypstBin, "/opt/typst/bin/typst")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, want := cfg.Export.TypstBin, "/opt/typst/bin/typst"; got != want {
		t.Fatalf("Export.TypstBin = %q, want %q", got, want)
	}
	if name, ok := EnvOverrideFor("export.typst_bin"); !ok || name != EnvTypstBin {
		t.Fatalf("EnvOverrideFor = %q %v", name, ok)
	}
	if _, ok := EnvOverrideFor("export.format"); ok {
		t.Fatalf("export.format is not overridden")
	}
}

func TestEnvOverridesTelemetry(t *testing.T) {
	useHome(t)
	t.Setenv(EnvTelemetryOptIn, "true")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.General.TelemetryOptIn {
		t.Fatalf("General.TelemetryOptIn expected true from env override")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	home := useHome(t)
	cfg := Defaults()
	cfg.Export.Format = "typst-pdf"
	cfg.Export.MarginPt = 20
	cfg.Fonts.Regular = "/fonts/NotoSansJP-Regular.ttf"
	cfg.Theme.Accent = "#00aa00"
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, ".config", "shinobiwriter", "config.yaml")); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Export.Format != "typst-pdf" || got.Export.MarginPt != 20 || got.Fonts.Regular != cfg.Fonts.Regular || got.Theme.Accent != "#00aa00" {
		t.Fatalf("round trip lost fields: %#v", got)
	}
	if g := got.Export.Geometry(); g.Margin != 20 || g.PageW <= 0 {
		t.Fatalf("geometry = %#v", g)
	}
}

func TestLoadIgnoresMalformedFile(t *testing.T) {
	home := useHome(t)
	p := filepath.Join(home, ".config", "shinobiwriter", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte("export: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Export.Format != Defaults().Export.Format {
		t.Fatalf("expected defaults, got %#v", cfg.Export)
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "debug"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "/tmp/shw.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "/tmp/shw.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestMergeKeepsDefaultsForZeroValues(t *testing.T) {
	dst := Defaults()
	src := AppConfig{Export: ExportConfig{GutterPt: 10}}
	mergeInto(&dst, &src)
	if dst.Export.GutterPt != 10 || dst.Export.TimeoutSec != 60 || dst.Export.Format != "pdf" {
		t.Fatalf("merge = %#v", dst.Export)
	}
	if dst.Export.Timeout() != time.Minute {
		t.Fatalf("timeout = %v", dst.Export.Timeout())
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	useHome(t)
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "/var/tmp/shw.log")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "/var/tmp/shw.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

func TestThemeColors(t *testing.T) {
	p, err := ThemeConfig{Accent: "#0a0", QuoteFill: "223344"}.Colors()
	if err != nil {
		t.Fatalf("Colors: %v", err)
	}
	if p.Accent != (domain.Color{G: 0xaa, A: 255}) || p.QuoteFill != (domain.Color{R: 0x22, G: 0x33, B: 0x44, A: 255}) {
		t.Fatalf("palette = %#v", p)
	}
	if !p.Background.IsZero() {
		t.Fatalf("unset colours must stay zero")
	}
	if _, err := (ThemeConfig{Text: "#zzzzzz"}).Colors(); err == nil {
		t.Fatalf("expected error for bad colour")
	}
}
