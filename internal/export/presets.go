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
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/multierr"

	"shinobiwriter/internal/domain"
	"shinobiwriter/internal/storage"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetPrint  PresetName = "print"
	PresetWeb    PresetName = "web"
	PresetSource PresetName = "source"
)

// Presets lists the known presets.
func Presets() []PresetName { return []PresetName{PresetPrint, PresetWeb, PresetSource} }

// BatchOptions controls a batch export.
//
// Files are named <base>.<ext> inside OutDir, where base defaults to the slug
// of the title. typst-pdf output gets a "-typst" suffix so it does not
// collide with the pdf backend.
type BatchOptions struct {
	Preset   PresetName
	Formats  []string // empty means preset defaults
	OutDir   string
	BaseName string
}

// PresetFormats returns the formats a preset exports.
func PresetFormats(p PresetName) ([]string, error) {
	switch p {
	case PresetPrint, "":
		return []string{"pdf"}, nil
	case PresetWeb:
		return []string{"html", "png"}, nil
	case PresetSource:
		return []string{"typst", "md"}, nil
	}
	return nil, fmt.Errorf("unknown preset %q", p)
}

// BaseName derives a file name stem from a title.
func BaseName(title string) string {
	if s := slug.Make(title); s != "" {
		return s
	}
	return "scenario"
}

// OutputName returns the file name a format is written to in a batch.
func OutputName(base, format string) string {
	b, ok := Lookup(format)
	if !ok {
		return base + "." + format
	}
	if b.Name() == "typst-pdf" {
		return base + "-typst." + b.Ext()
	}
	return base + "." + b.Ext()
}

// Batch exports job into every format of the preset. It keeps going after a
// failure; the returned error combines all failures.
func Batch(ctx context.Context, job Job, opt BatchOptions) ([]Report, error) {
	formats := opt.Formats
	if len(formats) == 0 {
		var err error
		if formats, err = PresetFormats(opt.Preset); err != nil {
			return nil, domain.Wrap(domain.KindRenderBackendFailure, "batch", opt.OutDir, err)
		}
	}
	base := opt.BaseName
	if base == "" {
		base = BaseName(job.Model.Header.Title)
	}

	var (
		reports []Report
		errs    error
	)
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, domain.Wrap(domain.KindCancelledByUser, "batch", opt.OutDir, err))
			break
		}
		rep, err := Export(ctx, job, f, filepath.Join(opt.OutDir, OutputName(base, f)))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", f, err))
			continue
		}
		reports = append(reports, rep)
	}
	return reports, errs
}

// ExportPages writes every page of a png or svg export as its own file
// page-NNN.<ext> inside dir and returns the paths written.
func ExportPages(ctx context.Context, job Job, format, dir string) ([]string, error) {
	var (
		pages [][]byte
		err   error
	)
	job.notes = &notes{}
	switch strings.ToLower(format) {
	case "png":
		pages, err = pngPages(ctx, job)
	case "svg":
		pages, err = svgPages(ctx, job)
	default:
		return nil, domain.Errorf(domain.KindRenderBackendFailure, "export pages", dir, "format %q has no separate pages", format)
	}
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(pages))
	for i, data := range pages {
		p := filepath.Join(dir, pageName(i+1, strings.ToLower(format)))
		if err := storage.WriteFileAtomic(p, data); err != nil {
			return out, domain.Wrap(domain.KindIOFailure, "export pages", p, err)
		}
		out = append(out, p)
	}
	return out, nil
}
