package main

import (
	"fmt"

	"github.com/grit-vcs/grit/pkg/repo"
	"github.com/spf13/cobra"
)

func newMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge <rev>",
		Short: "Merge a revision into the current branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}

			result, err := r.Merge("HEAD", args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch result.Outcome {
			case repo.MergeAlreadyUpToDate:
				fmt.Fprintln(out, "already up to date")
			case repo.MergeFastForward:
				fmt.Fprintf(out, "fast-forward to %s\n", shortHash(result.Commit))
			case repo.MergeCommitted:
				fmt.Fprintf(out, "merge commit %s\n", shortHash(result.Commit))
			case repo.MergeConflicted:
				for _, c := range result.Conflicts {
					fmt.Fprintf(out, "conflict: %s\n", c.Path)
				}
				return fmt.Errorf("merge stopped: %d conflicted path(s); no commit was created", len(result.Conflicts))
			}
			return nil
		},
	}
}
