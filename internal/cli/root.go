/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package cli implements the shinobiwriter command tree.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"shinobiwriter/internal/config"
	applog "shinobiwriter/internal/log"
	"shinobiwriter/internal/session"
	"shinobiwriter/internal/storage"
	"shinobiwriter/internal/telemetry"
	"shinobiwriter/internal/version"

	"github.com/spf13/cobra"
)

var (
	appCfg = config.Defaults()

	currentMu sync.Mutex
	current   *session.Session
)

var rootCmd = &cobra.Command{
	Use:   "shinobiwriter",
	Short: "Scenario editor and exporter for ninja TRPG sheets",
	Long: `shinobiwriter edits scenario markup and exports paginated sheets.

Markup:
  # Heading              scene banner
  > text                 description box
  {{text}}               handout (whole line), emphasis (inline)
  :::secret text :::     secret box
  {base}(reading)        ruby

Examples:
  shinobiwriter new night.json --title "影の夜"
  shinobiwriter export night.json -f pdf
  shinobiwriter batch night.json --preset web --out dist`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// setup loads the user configuration and initializes logging and telemetry.
func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v; using defaults\n", err)
	}
	appCfg = cfg
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	telemetry.NewDefault(telemetry.FromEnv().WithOptIn(cfg.General.TelemetryOptIn))
	telemetry.Event(telemetry.EventAppStarted, map[string]any{"cmd": cmd.Name()})
	applog.WithComponent("cli").Debug("start", slog.String("cmd", cmd.CommandPath()), slog.String("ver", version.String()))
	return nil
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	defer telemetry.Flush(context.Background())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// Current returns the session of the running command, if any.
func Current() *session.Session {
	currentMu.Lock()
	defer currentMu.Unlock()
	return current
}

func setCurrent(s *session.Session) {
	currentMu.Lock()
	current = s
	currentMu.Unlock()
}

// openSession builds a session from the configuration. A non-empty project is
// loaded; withHistory opens the autosave index next to it.
func openSession(cmd *cobra.Command, project string, withHistory bool) (*session.Session, func(), error) {
	opts, err := session.OptionsFromConfig(appCfg)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v; using the built-in theme\n", err)
	}
	opts.Empty = project != ""
	closer := func() {}
	if withHistory && project != "" {
		ix, rebuilt, err := storage.OpenIndexRecover(cmd.Context(), projectDir(project))
		switch {
		case err != nil:
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: history unavailable: %v\n", err)
		case rebuilt:
			fmt.Fprintln(cmd.ErrOrStderr(), "warning: history index was damaged and has been rebuilt")
			fallthrough
		default:
			opts.Index = ix
			closer = func() { _ = ix.Close() }
		}
	}
	s := session.New(opts)
	setCurrent(s)
	if project != "" {
		if r := s.Load(project); !r.OK {
			closer()
			return nil, func() {}, resultErr(r)
		}
	}
	return s, closer, nil
}

func projectDir(project string) string {
	if abs, err := filepath.Abs(project); err == nil {
		return filepath.Dir(abs)
	}
	return filepath.Dir(project)
}

// report prints a result: the status line to stdout, warnings to stderr.
func report(cmd *cobra.Command, r session.Result) error {
	for _, w := range r.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
	}
	if r.Cancelled() {
		fmt.Fprintln(cmd.ErrOrStderr(), r.Message)
		return nil
	}
	if err := resultErr(r); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), r.Message)
	return nil
}

func resultErr(r session.Result) error {
	if !r.Failed() {
		return nil
	}
	return fmt.Errorf("%s [%s]", r.Message, r.Kind)
}

// interruptible returns a context cancelled by Ctrl-C.
func interruptible(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
