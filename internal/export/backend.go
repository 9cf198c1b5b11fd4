/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"shinobiwriter/internal/docmodel"
	"shinobiwriter/internal/domain"
	"shinobiwriter/internal/imagesrc"
	"shinobiwriter/internal/layout"
	applog "shinobiwriter/internal/log"
	"shinobiwriter/internal/markup"
	"shinobiwriter/internal/storage"
	"shinobiwriter/internal/telemetry"
	"shinobiwriter/internal/textlayout"
)

// Backend renders a job into one output format. Backends are stateless and
// must not write anything to w before they know the render succeeds where
// that is possible; Export discards partial output in any case.
type Backend interface {
	Name() string
	Ext() string
	Render(ctx context.Context, job Job, w io.Writer) error
}

// Theme holds the colours used by every drawing backend.
type Theme struct {
	Accent      domain.Color
	Background  domain.Color
	Text        domain.Color
	Muted       domain.Color
	QuoteFill   domain.Color
	HandoutFill domain.Color
	SecretFill  domain.Color
}

// DefaultTheme is the dark scenario sheet with a red accent.
func DefaultTheme() Theme {
	return Theme{
		Accent:      domain.Color{R: 0xdd, A: 255},
		Background:  domain.Color{R: 0x11, G: 0x11, B: 0x11, A: 255},
		Text:        domain.Color{R: 0xf0, G: 0xf0, B: 0xf0, A: 255},
		Muted:       domain.Color{R: 0x99, G: 0x99, B: 0x99, A: 255},
		QuoteFill:   domain.Color{R: 0x22, G: 0x22, B: 0x22, A: 255},
		HandoutFill: domain.Color{R: 0x1c, G: 0x1c, B: 0x1c, A: 255},
		SecretFill:  domain.Color{R: 0x2a, G: 0x0d, B: 0x0d, A: 255},
	}
}

// WithDefaults fills unset colours from DefaultTheme.
func (t Theme) WithDefaults() Theme {
	d := DefaultTheme()
	pick := func(c *domain.Color, def domain.Color) {
		if c.IsZero() {
			*c = def
		}
	}
	pick(&t.Accent, d.Accent)
	pick(&t.Background, d.Background)
	pick(&t.Text, d.Text)
	pick(&t.Muted, d.Muted)
	pick(&t.QuoteFill, d.QuoteFill)
	pick(&t.HandoutFill, d.HandoutFill)
	pick(&t.SecretFill, d.SecretFill)
	return t
}

// Fill returns the box fill for a role, and false for roles without a box.
func (t Theme) Fill(role string) (domain.Color, bool) {
	switch role {
	case textlayout.StyleHeading:
		return t.Accent, true
	case textlayout.StyleQuote:
		return t.QuoteFill, true
	case textlayout.StyleHandout:
		return t.HandoutFill, true
	case textlayout.StyleSecret:
		return t.SecretFill, true
	}
	return domain.Color{}, false
}

// BannerStroke is the width of the thin border around heading banners.
const BannerStroke = 0.5

// Frame returns the outline drawn around a box.
func (t Theme) Frame(role string) (domain.Stroke, bool) {
	switch role {
	case textlayout.StyleHeading:
		return domain.Stroke{Color: t.Text, Width: BannerStroke}, true
	case textlayout.StyleHandout:
		return domain.Stroke{Color: t.Accent, Width: 1}, true
	case textlayout.StyleSecret:
		return domain.Stroke{Color: t.Muted, Width: 0.75}, true
	}
	return domain.Stroke{}, false
}

// Ink returns the text colour for a role.
func (t Theme) Ink(role string) domain.Color {
	switch role {
	case textlayout.StyleTitle, textlayout.StyleLabel:
		return t.Accent
	case textlayout.StyleSummary:
		return t.Muted
	}
	return t.Text
}

// Fonts names TrueType files for text outside Latin-1. Without them backends
// fall back to their builtin faces.
type Fonts struct {
	Family  string
	Regular string
	Bold    string
}

// Configured reports whether a regular font file is set.
func (f Fonts) Configured() bool { return strings.TrimSpace(f.Regular) != "" }

func (f Fonts) family() string {
	if f.Family != "" {
		return f.Family
	}
	return textlayout.DefaultFamily
}

// Library loads the configured files. A nil library and a classified
// resource error are returned when loading fails.
func (f Fonts) Library() (*textlayout.FontLibrary, error) {
	if !f.Configured() {
		return nil, nil
	}
	lib := textlayout.NewFontLibrary()
	if err := lib.LoadFamily(f.family(), f.Regular, f.Bold); err != nil {
		return nil, domain.Wrap(domain.KindResourceUnavailable, "load font", f.Regular, err)
	}
	return lib, nil
}

// Job is an immutable snapshot of everything an export needs.
type Job struct {
	Doc      domain.Document
	Blocks   []markup.Block
	Model    docmodel.Document
	Geometry layout.Geometry
	Theme    Theme
	Fonts    Fonts
	Styles   *textlayout.StyleSheet
	TypstBin string
	Timeout  time.Duration
	DPI      float64

	notes *notes
}

// Options configure NewJob.
type Options struct {
	Geometry  layout.Geometry
	Theme     Theme
	Fonts     Fonts
	Styles    map[string]textlayout.TextStyle // theme-level style overrides
	TypstBin  string
	Timeout   time.Duration
	DPI       float64
	LoadImage func(string) (*imagesrc.Image, error)
	Logger    *slog.Logger
}

// NewJob parses doc, resolves its handout keys and builds its abstract document.
func NewJob(doc domain.Document, opt Options) Job {
	blocks := markup.ResolveHandouts(markup.Parse(doc.Body), doc.Handouts)
	mo := docmodel.DefaultOptions()
	if opt.LoadImage != nil {
		mo.LoadImage = opt.LoadImage
	}
	mo.Logger = opt.Logger
	styles := textlayout.NewStyleSheet()
	if opt.Fonts.Configured() {
		styles = styles.WithFamily(opt.Fonts.family())
	}
	if len(opt.Styles) > 0 {
		styles = styles.WithTheme(opt.Styles)
	}
	if opt.DPI <= 0 {
		opt.DPI = 144
	}
	if opt.Timeout <= 0 {
		opt.Timeout = 60 * time.Second
	}
	if opt.TypstBin == "" {
		opt.TypstBin = "typst"
	}
	return Job{
		Doc:      doc,
		Blocks:   blocks,
		Model:    docmodel.Build(doc, blocks, mo),
		Geometry: opt.Geometry.WithDefaults(),
		Theme:    opt.Theme.WithDefaults(),
		Fonts:    opt.Fonts,
		Styles:   styles,
		TypstBin: opt.TypstBin,
		Timeout:  opt.Timeout,
		DPI:      opt.DPI,
	}
}

// Paginate lays the job out with m.
func (j Job) Paginate(m layout.Measurer) layout.Result {
	res := layout.Paginate(j.Model, j.Geometry, m, j.Styles)
	j.notePages(len(res.Pages))
	return res
}

type notes struct {
	pages    int
	warnings []string
}

func (j Job) notePages(n int) {
	if j.notes != nil {
		j.notes.pages = n
	}
}

func (j Job) warn(msg string) {
	if j.notes != nil {
		j.notes.warnings = append(j.notes.warnings, msg)
	}
}

// Report describes a finished export.
type Report struct {
	Format   string
	Path     string
	Pages    int
	Bytes    int64
	Duration time.Duration
	Warnings []string
}

var registry = map[string]Backend{}

// Register makes a backend available under its name. It panics on duplicates.
func Register(b Backend) {
	name := strings.ToLower(b.Name())
	if _, dup := registry[name]; dup {
		panic("export: duplicate backend " + name)
	}
	registry[name] = b
}

// Lookup returns the backend for a format name or file extension.
func Lookup(format string) (Backend, bool) {
	f := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	if b, ok := registry[f]; ok {
		return b, true
	}
	b, ok := registry[primaryForExt(f)]
	return b, ok
}

// primaryForExt picks the backend used when only an extension is known.
func primaryForExt(ext string) string {
	switch ext {
	case "typ":
		return "typst"
	case "htm":
		return "html"
	}
	return ext
}

// Formats lists the registered backend names, sorted.
func Formats() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// FormatForPath guesses the format from an output file name.
func FormatForPath(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if _, ok := Lookup(ext); ok {
		return primaryForExt(ext)
	}
	return ""
}

// Export renders job with the named backend into outPath. The destination is
// written atomically: it is either the complete output or left untouched.
func Export(ctx context.Context, job Job, format, outPath string) (Report, error) {
	start := time.Now()
	lg := applog.WithDocument(applog.WithOperation(applog.WithComponent("export"), "export"), outPath)
	rep := Report{Format: format, Path: outPath}

	fail := func(err error) (Report, error) {
		kind := domain.KindOf(err)
		lg.ErrorContext(ctx, "export failed", slog.String("format", format), slog.String("kind", kind.String()), slog.String("err", err.Error()))
		if kind != domain.KindCancelledByUser {
			telemetry.ExportFailed(format, kind.String())
		}
		return rep, err
	}

	b, ok := Lookup(format)
	if !ok {
		return fail(domain.Errorf(domain.KindRenderBackendFailure, "export", outPath, "unknown format %q (have %s)", format, strings.Join(Formats(), ", ")))
	}
	rep.Format = b.Name()
	if strings.TrimSpace(outPath) == "" {
		return fail(domain.Errorf(domain.KindIOFailure, "export", outPath, "no output path"))
	}
	if err := ctx.Err(); err != nil {
		return fail(domain.Wrap(domain.KindCancelledByUser, "export", outPath, err))
	}

	job.notes = &notes{}
	if job.Model.Header.ImageErr != nil {
		job.warn("header image skipped: " + job.Model.Header.ImageErr.Error())
	}
	n, err := storage.WriteAtomic(outPath, func(w io.Writer) error {
		return b.Render(ctx, job, w)
	})
	if err != nil {
		if domain.KindOf(err) == domain.KindIOFailure {
			err = domain.Wrap(domain.KindIOFailure, "write "+b.Name(), outPath, err)
		}
		return fail(err)
	}
	rep.Bytes = n
	rep.Pages = job.notes.pages
	rep.Warnings = job.notes.warnings
	rep.Duration = time.Since(start)
	lg.InfoContext(ctx, "export done", slog.String("format", rep.Format), slog.Int("pages", rep.Pages), slog.Int64("bytes", n), slog.Duration("took", rep.Duration))
	for _, w := range rep.Warnings {
		lg.Warn(w)
	}
	telemetry.ExportDone(rep.Format, rep.Pages, rep.Duration)
	return rep, nil
}

func backendError(name string, err error) error {
	if err == nil {
		return nil
	}
	return domain.Wrap(domain.KindRenderBackendFailure, name, "", err)
}

func fmtPt(v float64) string { return fmt.Sprintf("%.2f", v) }
