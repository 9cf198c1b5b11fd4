/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"shinobiwriter/internal/export"
	"shinobiwriter/internal/markup"

	"github.com/spf13/cobra"
)

var (
	newTitle   string
	newSummary string
	newImage   string
	newEmpty   bool
	newForce   bool

	exportFormat string
	exportOutput string

	batchPreset  string
	batchFormats string
	batchOut     string

	pagesFormat string
	pagesOut    string

	previewOutline bool
	previewHTML    bool
)

var newCmd = &cobra.Command{
	Use:   "new <project.json>",
	Short: "Create a project file",
	Long: `Create a project file with the sample scenario body.

Examples:
  shinobiwriter new night.json --title "影の夜"
  shinobiwriter new night.json --empty --force`,
	Args: cobra.ExactArgs(1),
	RunE: runNew,
}

var exportCmd = &cobra.Command{
	Use:   "export <project.json>",
	Short: "Export a project to one format",
	Long: `Export a project. Without --format the format follows the extension of
--output, then the configured default. Without --output the file is written
next to the project, named after the title.

Formats: ` + strings.Join(export.Formats(), ", ") + `

Examples:
  shinobiwriter export night.json -f pdf
  shinobiwriter export night.json -o sheet.png
  shinobiwriter export night.json -f typst-pdf -o night.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var batchCmd = &cobra.Command{
	Use:   "batch <project.json>",
	Short: "Export a project to every format of a preset",
	Long: `Export a project to several formats at once. A failing format does not
stop the others; all failures are reported together.

Presets:
  print   pdf
  web     html, png
  source  typst, md`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

var pagesCmd = &cobra.Command{
	Use:   "pages <project.json>",
	Short: "Write every page as its own PNG or SVG file",
	Args:  cobra.ExactArgs(1),
	RunE:  runPages,
}

var previewCmd = &cobra.Command{
	Use:   "preview <project.json>",
	Short: "Print the preview of a project",
	Long: `Print one line per block with its kind, the heading outline (--outline)
or the HTML preview fragment (--html).`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	newCmd.Flags().StringVar(&newTitle, "title", "", "scenario title")
	newCmd.Flags().StringVar(&newSummary, "summary", "", "short summary shown under the title")
	newCmd.Flags().StringVar(&newImage, "image", "", "header image path")
	newCmd.Flags().BoolVar(&newEmpty, "empty", false, "start with an empty body")
	newCmd.Flags().BoolVarP(&newForce, "force", "f", false, "overwrite an existing file")

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "output format")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file")

	batchCmd.Flags().StringVar(&batchPreset, "preset", string(export.PresetPrint), "preset: print, web or source")
	batchCmd.Flags().StringVar(&batchFormats, "formats", "", "comma separated formats replacing the preset's")
	batchCmd.Flags().StringVar(&batchOut, "out", "", "output directory (default: next to the project)")

	pagesCmd.Flags().StringVarP(&pagesFormat, "format", "f", "png", "png or svg")
	pagesCmd.Flags().StringVar(&pagesOut, "out", "", "output directory (default: <title>-pages next to the project)")

	previewCmd.Flags().BoolVar(&previewOutline, "outline", false, "print the heading outline")
	previewCmd.Flags().BoolVar(&previewHTML, "html", false, "print the HTML preview fragment")

	rootCmd.AddCommand(newCmd, exportCmd, batchCmd, pagesCmd, previewCmd)
}

func runNew(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err == nil && !newForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	s, closer, err := openSession(cmd, "", false)
	if err != nil {
		return err
	}
	defer closer()
	if newEmpty {
		s.SetBody("")
		for _, k := range s.HandoutKeys() {
			_ = s.SetHandout(k, "")
		}
	}
	s.SetTitle(newTitle)
	s.SetSummary(newSummary)
	s.SetHeaderImage(newImage)
	return report(cmd, s.Save(cmd.Context(), path))
}

func runExport(cmd *cobra.Command, args []string) error {
	s, closer, err := openSession(cmd, args[0], false)
	if err != nil {
		return err
	}
	defer closer()

	format := strings.ToLower(strings.TrimSpace(exportFormat))
	if format == "" && exportOutput != "" {
		format = export.FormatForPath(exportOutput)
	}
	if format == "" {
		format = appCfg.Export.Format
	}
	out := exportOutput
	if out == "" {
		out = filepath.Join(projectDir(args[0]), export.OutputName(export.BaseName(s.Snapshot().Title), format))
	}
	ctx, cancel := interruptible(cmd)
	defer cancel()
	return report(cmd, s.Export(ctx, format, out))
}

func runBatch(cmd *cobra.Command, args []string) error {
	s, closer, err := openSession(cmd, args[0], false)
	if err != nil {
		return err
	}
	defer closer()
	out := batchOut
	if out == "" {
		out = projectDir(args[0])
	}
	ctx, cancel := interruptible(cmd)
	defer cancel()
	return report(cmd, s.Batch(ctx, export.PresetName(batchPreset), splitList(batchFormats), out))
}

func runPages(cmd *cobra.Command, args []string) error {
	s, closer, err := openSession(cmd, args[0], false)
	if err != nil {
		return err
	}
	defer closer()
	out := pagesOut
	if out == "" {
		out = filepath.Join(projectDir(args[0]), export.BaseName(s.Snapshot().Title)+"-pages")
	}
	ctx, cancel := interruptible(cmd)
	defer cancel()
	paths, err := export.ExportPages(ctx, s.Job(), strings.ToLower(pagesFormat), out)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}

func runPreview(cmd *cobra.Command, args []string) error {
	if previewOutline && previewHTML {
		return errors.New("--outline and --html are exclusive")
	}
	s, closer, err := openSession(cmd, args[0], false)
	if err != nil {
		return err
	}
	defer closer()
	w := cmd.OutOrStdout()
	switch {
	case previewHTML:
		fmt.Fprint(w, s.PreviewHTML())
	case previewOutline:
		for _, e := range s.Outline() {
			fmt.Fprintf(w, "%3d  %s\n", e.Line, e.Title)
		}
	default:
		for _, ln := range s.Preview() {
			if ln.Kind == markup.KindBlank {
				fmt.Fprintln(w)
				continue
			}
			label := ln.Kind.String()
			if ln.Label != "" {
				label = ln.Label
			}
			fmt.Fprintf(w, "%-9s %s\n", label, strings.ReplaceAll(ln.Text, "\n", "\n"+strings.Repeat(" ", 10)))
		}
	}
	return nil
}
