package main

import (
	"fmt"
	"os"

	"github.com/grit-vcs/grit/pkg/diff3"
	"github.com/grit-vcs/grit/pkg/object"
	"github.com/grit-vcs/grit/pkg/repo"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "grit",
		Short: "Content-addressed version control core",
	}

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newHashObjectCmd())
	root.AddCommand(newCatObjectCmd())
	root.AddCommand(newWriteTreeCmd())
	root.AddCommand(newCommitTreeCmd())
	root.AddCommand(newCommitCmd())
	root.AddCommand(newLogCmd())
	root.AddCommand(newDiffCmd())
	root.AddCommand(newBranchCmd())
	root.AddCommand(newTagCmd())
	root.AddCommand(newMergeCmd())
	root.AddCommand(newRebaseCmd())
	root.AddCommand(newReflogCmd())
	root.AddCommand(newRecoverCmd())
	root.AddCommand(newGcCmd())
	root.AddCommand(newFsckCmd())
	root.AddCommand(newConfigCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("grit 0.1.0-dev")
		},
	}
}

// openRepo opens the repository enclosing the working directory and wires
// the line-level merge strategy into divergent-edit resolution.
func openRepo() (*repo.Repo, error) {
	r, err := repo.Open(".")
	if err != nil {
		return nil, err
	}
	r.ContentMerge = func(base, ours, theirs []byte) ([]byte, bool) {
		res := diff3.Merge(base, ours, theirs)
		return res.Merged, !res.HasConflicts
	}
	return r, nil
}

func shortHash(h object.Hash) string {
	s := string(h)
	if len(s) > 8 {
		s = s[:8]
	}
	return s
}
