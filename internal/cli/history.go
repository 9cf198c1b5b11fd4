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
	"strconv"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyKeep  int
)

var historyCmd = &cobra.Command{
	Use:   "history <project.json>",
	Short: "List the autosave history of a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var historyRestoreCmd = &cobra.Command{
	Use:   "restore <project.json> <id>",
	Short: "Restore a history snapshot into the project file",
	Long: `Replace the project's document with a history snapshot and save it. The
previous file is kept as a backup.`,
	Args: cobra.ExactArgs(2),
	RunE: runHistoryRestore,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune <project.json>",
	Short: "Drop all but the newest snapshots",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryPrune,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of snapshots to list")
	historyPruneCmd.Flags().IntVar(&historyKeep, "keep", 10, "snapshots to keep")
	historyCmd.AddCommand(historyRestoreCmd, historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	s, closer, err := openSession(cmd, args[0], true)
	if err != nil {
		return err
	}
	defer closer()
	ix := s.Index()
	if ix == nil {
		return fmt.Errorf("history unavailable for %s", args[0])
	}
	list, err := ix.ListSnapshots(cmd.Context(), s.Path(), historyLimit)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no history yet")
		return nil
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSAVED\tTITLE\tCHARS")
	for _, snap := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", snap.ID, snap.TS.Local().Format("2006-01-02 15:04:05"),
			oneLine(snap.Doc.DisplayTitle("-"), 30), utf8.RuneCountInString(snap.Doc.Body))
	}
	return w.Flush()
}

func runHistoryRestore(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid snapshot id %q", args[1])
	}
	s, closer, err := openSession(cmd, args[0], true)
	if err != nil {
		return err
	}
	defer closer()
	if r := s.Restore(cmd.Context(), id); !r.OK {
		return resultErr(r)
	}
	return report(cmd, s.Save(cmd.Context(), ""))
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	s, closer, err := openSession(cmd, args[0], true)
	if err != nil {
		return err
	}
	defer closer()
	ix := s.Index()
	if ix == nil {
		return fmt.Errorf("history unavailable for %s", args[0])
	}
	n, err := ix.PruneSnapshots(cmd.Context(), s.Path(), historyKeep)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d snapshots\n", n)
	return nil
}
