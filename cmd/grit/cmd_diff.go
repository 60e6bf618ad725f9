package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/grit-vcs/grit/pkg/diff3"
	"github.com/grit-vcs/grit/pkg/object"
	"github.com/grit-vcs/grit/pkg/repo"
	"github.com/spf13/cobra"
)

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <rev> [rev]",
		Short: "Show line differences between two revisions",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}

			fromRev := args[0]
			toRev := "HEAD"
			if len(args) == 2 {
				toRev = args[1]
			}

			fromFiles, err := revisionFiles(r, fromRev)
			if err != nil {
				return err
			}
			toFiles, err := revisionFiles(r, toRev)
			if err != nil {
				return err
			}

			paths := make(map[string]struct{}, len(fromFiles)+len(toFiles))
			for p := range fromFiles {
				paths[p] = struct{}{}
			}
			for p := range toFiles {
				paths[p] = struct{}{}
			}
			sorted := make([]string, 0, len(paths))
			for p := range paths {
				sorted = append(sorted, p)
			}
			sort.Strings(sorted)

			out := cmd.OutOrStdout()
			for _, p := range sorted {
				fromHash, inFrom := fromFiles[p]
				toHash, inTo := toFiles[p]
				if inFrom && inTo && fromHash == toHash {
					continue
				}

				var fromData, toData []byte
				if inFrom {
					if fromData, err = readBlob(r, fromHash); err != nil {
						return err
					}
				}
				if inTo {
					if toData, err = readBlob(r, toHash); err != nil {
						return err
					}
				}

				switch {
				case !inFrom:
					fmt.Fprintf(out, "added: %s\n", p)
				case !inTo:
					fmt.Fprintf(out, "deleted: %s\n", p)
				default:
					fmt.Fprintf(out, "modified: %s\n", p)
				}
				printLineDiff(out, fromData, toData)
			}
			return nil
		},
	}
}

// revisionFiles flattens a revision's tree into path -> blob hash.
func revisionFiles(r *repo.Repo, rev string) (map[string]object.Hash, error) {
	h, err := r.ResolveRevision(rev)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve %s: %w", rev, err)
	}
	c, err := r.Store.ReadCommit(h)
	if err != nil {
		return nil, err
	}
	entries, err := r.FlattenTree(c.TreeHash)
	if err != nil {
		return nil, err
	}
	files := make(map[string]object.Hash, len(entries))
	for _, e := range entries {
		files[e.Path] = e.BlobHash
	}
	return files, nil
}

func readBlob(r *repo.Repo, h object.Hash) ([]byte, error) {
	b, err := r.Store.ReadBlob(h)
	if err != nil {
		return nil, err
	}
	return b.Data, nil
}

func printLineDiff(out io.Writer, from, to []byte) {
	for _, line := range diff3.LineDiff(from, to) {
		switch line.Kind {
		case diff3.LineAdded:
			fmt.Fprintf(out, "+%s\n", line.Content)
		case diff3.LineRemoved:
			fmt.Fprintf(out, "-%s\n", line.Content)
		default:
			fmt.Fprintf(out, " %s\n", line.Content)
		}
	}
}
