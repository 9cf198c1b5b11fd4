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
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var handoutsCmd = &cobra.Command{
	Use:   "handouts <project.json>",
	Short: "List the handout dictionary of a project",
	Long: `A handout line such as {{HO1}} prints the dictionary text stored under its
key. Keys are upper-case letters followed by digits.`,
	Args: cobra.ExactArgs(1),
	RunE: runHandouts,
}

var handoutsSetCmd = &cobra.Command{
	Use:   "set <project.json> <KEY> <text>",
	Short: "Define the text of a handout key",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editHandout(cmd, args[0], args[1], args[2])
	},
}

var handoutsRmCmd = &cobra.Command{
	Use:   "rm <project.json> <KEY>",
	Short: "Remove a handout key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editHandout(cmd, args[0], args[1], "")
	},
}

func init() {
	handoutsCmd.AddCommand(handoutsSetCmd, handoutsRmCmd)
	rootCmd.AddCommand(handoutsCmd)
}

func runHandouts(cmd *cobra.Command, args []string) error {
	s, closer, err := openSession(cmd, args[0], false)
	if err != nil {
		return err
	}
	defer closer()
	keys := s.HandoutKeys()
	if len(keys) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no handouts defined")
		return nil
	}
	doc := s.Snapshot()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tTEXT")
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%s\n", k, oneLine(doc.Handouts[k], 60))
	}
	return w.Flush()
}

func editHandout(cmd *cobra.Command, project, key, text string) error {
	s, closer, err := openSession(cmd, project, true)
	if err != nil {
		return err
	}
	defer closer()
	if err := s.SetHandout(key, text); err != nil {
		return err
	}
	if !s.Dirty() {
		fmt.Fprintln(cmd.OutOrStdout(), "unchanged")
		return nil
	}
	return report(cmd, s.Save(cmd.Context(), ""))
}
