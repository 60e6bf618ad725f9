package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/grit-vcs/grit/pkg/object"
	"github.com/grit-vcs/grit/pkg/repo"
	"github.com/spf13/cobra"
)

func newWriteTreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "write-tree [dir]",
		Short: "Store a directory's files as blobs and trees, printing the root tree hash",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			r, err := openRepo()
			if err != nil {
				return err
			}

			m, err := manifestFromDir(r, dir)
			if err != nil {
				return err
			}
			tree, err := r.BuildTree(m)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tree)
			return nil
		},
	}
}

func newCommitTreeCmd() *cobra.Command {
	var parents []string
	var message string

	cmd := &cobra.Command{
		Use:   "commit-tree <tree>",
		Short: "Create a commit object from an existing tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(message) == "" {
				return fmt.Errorf("commit message is required (-m)")
			}

			r, err := openRepo()
			if err != nil {
				return err
			}

			tree, err := r.ResolveRevision(args[0])
			if err != nil {
				return err
			}
			parentHashes := make([]object.Hash, 0, len(parents))
			for _, p := range parents {
				h, err := r.ResolveRevision(p)
				if err != nil {
					return err
				}
				parentHashes = append(parentHashes, h)
			}

			h, err := r.CommitTree(tree, parentHashes, repo.CommitMeta{Message: message})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&parents, "parent", "p", nil, "parent commit (repeatable)")
	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	return cmd
}

// manifestFromDir stores every regular file under dir as a blob and
// returns the resulting manifest. The repository's own metadata directory
// is skipped.
func manifestFromDir(r *repo.Repo, dir string) (*repo.Manifest, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	m := repo.NewManifest()
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".grit" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(abs, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		blob, err := r.Store.WriteBlob(&object.Blob{Data: data})
		if err != nil {
			return err
		}

		mode := object.TreeModeFile
		if info, err := d.Info(); err == nil && info.Mode()&0o111 != 0 {
			mode = object.TreeModeExecutable
		}
		return m.Add(filepath.ToSlash(rel), blob, mode)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}
