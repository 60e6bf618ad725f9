package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/grit-vcs/grit/pkg/object"
	"github.com/spf13/cobra"
)

func newLogCmd() *cobra.Command {
	var oneline bool
	var limit int

	cmd := &cobra.Command{
		Use:   "log [rev]",
		Short: "Show commit history following first parents",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}

			start := "HEAD"
			if len(args) > 0 {
				start = args[0]
			}
			startHash, err := r.ResolveRevision(start)
			if err != nil {
				return fmt.Errorf("cannot resolve %s: %w", start, err)
			}

			commits, err := r.Log(startHash, limit)
			if err != nil {
				return err
			}
			if len(commits) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no commits yet")
				return nil
			}

			headHash, _ := r.ResolveRef("HEAD")
			branchName := ""
			if head, err := r.Head(); err == nil && strings.HasPrefix(head, "refs/heads/") {
				branchName = strings.TrimPrefix(head, "refs/heads/")
			}

			// The first hash is the start; each later one is the first
			// parent of the commit before it.
			hashes := make([]object.Hash, len(commits))
			hashes[0] = startHash
			for i := 1; i < len(commits); i++ {
				hashes[i] = commits[i-1].Parents[0]
			}

			out := cmd.OutOrStdout()
			for i, c := range commits {
				h := hashes[i]
				decoration := ""
				if h == headHash {
					if branchName != "" {
						decoration = " (HEAD -> " + branchName + ")"
					} else {
						decoration = " (HEAD)"
					}
				}

				if oneline {
					fmt.Fprintf(out, "%s%s %s\n", shortHash(h), decoration, c.Message)
					continue
				}
				fmt.Fprintf(out, "commit %s%s\n", h, decoration)
				fmt.Fprintf(out, "Author: %s\n", c.Author)
				fmt.Fprintf(out, "Date:   %s\n", time.Unix(c.Timestamp, 0).Format("2006-01-02 15:04:05"))
				fmt.Fprintln(out)
				fmt.Fprintf(out, "    %s\n", c.Message)
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&oneline, "oneline", false, "compact one-line format")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of commits to show")
	return cmd
}
