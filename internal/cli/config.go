/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"shinobiwriter/internal/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or create the user configuration",
	Long: `Manage the shinobiwriter configuration.

Subcommands:
  show    print the effective configuration and environment overrides
  init    write the default configuration file
  path    print the configuration file path`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), p)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing file")
	configCmd.AddCommand(configShowCmd, configInitCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

var envKeys = []string{
	"general.telemetry_opt_in",
	"export.format",
	"export.typst_bin",
	"export.timeout_sec",
	"fonts.regular",
	"fonts.bold",
	"logging.level",
	"logging.format",
	"logging.source",
	"logging.file",
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	p, err := config.ConfigPath()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if _, err := os.Stat(p); err == nil {
		fmt.Fprintf(out, "# file: %s\n", p)
	} else {
		fmt.Fprintln(out, "# file: (defaults)")
	}
	data, err := yaml.Marshal(appCfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	fmt.Fprint(out, string(data))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header := false
	for _, k := range envKeys {
		name, ok := config.EnvOverrideFor(k)
		if !ok {
			continue
		}
		if !header {
			fmt.Fprintln(w, "\n# environment overrides")
			header = true
		}
		fmt.Fprintf(w, "# %s\t%s\n", k, name)
	}
	return w.Flush()
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	p, err := config.ConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(p); err == nil && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", p)
	}
	if err := config.Save(config.Defaults()); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", p)
	return nil
}
