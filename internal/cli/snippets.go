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
	"path/filepath"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"shinobiwriter/internal/config"
	"shinobiwriter/internal/storage"

	"github.com/spf13/cobra"
)

var (
	snippetsDir string
	insertAt    int
)

var snippetsCmd = &cobra.Command{
	Use:   "snippets",
	Short: "Manage reusable markup snippets",
	Long: `Snippets are named markup fragments kept in an index next to the user
configuration (or in --dir).

Subcommands:
  add     store a snippet
  list    list snippets
  search  find snippets by name or content
  rm      delete a snippet by id or id prefix
  insert  insert a snippet into a project body`,
}

var snippetsAddCmd = &cobra.Command{
	Use:   "add <name> <content>",
	Short: "Store a snippet",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ix, err := openSnippets(cmd)
		if err != nil {
			return err
		}
		defer ix.Close()
		s, err := ix.AddSnippet(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s)\n", s.Name, s.ID[:8])
		return nil
	},
}

var snippetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snippets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printSnippets(cmd, "")
	},
}

var snippetsSearchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Find snippets by name or content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printSnippets(cmd, args[0])
	},
}

var snippetsRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a snippet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ix, err := openSnippets(cmd)
		if err != nil {
			return err
		}
		defer ix.Close()
		if err := ix.DeleteSnippet(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "deleted")
		return nil
	},
}

var snippetsInsertCmd = &cobra.Command{
	Use:   "insert <project.json> <name-or-id>",
	Short: "Insert a snippet into a project body and save it",
	Long: `Insert a snippet on its own line at --at (a character offset; the end of
the body by default) and save the project.`,
	Args: cobra.ExactArgs(2),
	RunE: runSnippetInsert,
}

func init() {
	snippetsCmd.PersistentFlags().StringVar(&snippetsDir, "dir", "", "directory holding the snippet index (default: config directory)")
	snippetsInsertCmd.Flags().IntVar(&insertAt, "at", -1, "character offset in the body")

	snippetsCmd.AddCommand(snippetsAddCmd, snippetsListCmd, snippetsSearchCmd, snippetsRmCmd, snippetsInsertCmd)
	rootCmd.AddCommand(snippetsCmd)
}

func openSnippets(cmd *cobra.Command) (*storage.Index, error) {
	dir := snippetsDir
	if dir == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return nil, err
		}
		dir = filepath.Dir(p)
	}
	ix, rebuilt, err := storage.OpenIndexRecover(cmd.Context(), dir)
	if err != nil {
		return nil, err
	}
	if rebuilt {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: snippet index was damaged and has been rebuilt")
	}
	return ix, nil
}

func printSnippets(cmd *cobra.Command, text string) error {
	ix, err := openSnippets(cmd)
	if err != nil {
		return err
	}
	defer ix.Close()
	list, err := ix.SearchSnippets(cmd.Context(), text)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	for _, s := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID[:8], s.Name, oneLine(s.Content, 40))
	}
	return w.Flush()
}

func oneLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max-1]) + "…"
}

func runSnippetInsert(cmd *cobra.Command, args []string) error {
	ix, err := openSnippets(cmd)
	if err != nil {
		return err
	}
	list, err := ix.ListSnippets(cmd.Context())
	_ = ix.Close()
	if err != nil {
		return err
	}
	var content string
	found := 0
	for _, sn := range list {
		if sn.Name == args[1] || strings.HasPrefix(sn.ID, args[1]) {
			content = sn.Content
			found++
		}
	}
	switch {
	case found == 0:
		return fmt.Errorf("no snippet %q", args[1])
	case found > 1:
		return fmt.Errorf("snippet %q is ambiguous", args[1])
	}

	s, closer, err := openSession(cmd, args[0], true)
	if err != nil {
		return err
	}
	defer closer()
	body := s.Snapshot().Body
	text := content + "\n"
	if insertAt < 0 && body != "" && !strings.HasSuffix(body, "\n") {
		text = "\n" + text
	}
	s.Insert(insertAt, text)
	return report(cmd, s.Save(cmd.Context(), ""))
}
