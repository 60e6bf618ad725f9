package main

import (
	"fmt"

	"github.com/grit-vcs/grit/pkg/repo"
	"github.com/spf13/cobra"
)

func newRebaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebase <onto>",
		Short: "Replay the current branch's commits onto another revision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}

			branch, err := r.CurrentBranch()
			if err != nil {
				return fmt.Errorf("rebase requires a checked-out branch: %w", err)
			}
			if branch == "" {
				return fmt.Errorf("rebase requires a checked-out branch (HEAD is detached)")
			}

			result, err := r.Rebase(branch, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch result.Outcome {
			case repo.RebaseUpToDate:
				fmt.Fprintln(out, "already up to date")
			case repo.RebaseFastForward:
				fmt.Fprintf(out, "fast-forward to %s\n", shortHash(result.NewTip))
			case repo.RebaseCompleted:
				fmt.Fprintf(out, "rebased %s onto %s\n", branch, shortHash(result.NewTip))
			case repo.RebaseHalted:
				for _, c := range result.State.Conflicts {
					fmt.Fprintf(out, "conflict: %s\n", c.Path)
				}
				return fmt.Errorf("rebase stopped at %s: %d conflicted path(s); branch is unchanged",
					shortHash(result.State.Remaining[0]), len(result.State.Conflicts))
			}
			return nil
		},
	}
}
