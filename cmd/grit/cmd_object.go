package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/grit-vcs/grit/pkg/object"
	"github.com/spf13/cobra"
)

func newHashObjectCmd() *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "hash-object [file]",
		Short: "Compute the object hash of a file's content, optionally storing it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if len(args) == 1 {
				data, err = os.ReadFile(args[0])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}

			if write {
				r, err := openRepo()
				if err != nil {
					return err
				}
				h, err := r.Store.WriteBlob(&object.Blob{Data: data})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), h)
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), object.HashObject(object.TypeBlob, data))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "store the object in the repository")
	return cmd
}

func newCatObjectCmd() *cobra.Command {
	var showType bool

	cmd := &cobra.Command{
		Use:   "cat-object <hash>",
		Short: "Print a stored object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}

			h, err := r.ResolveRevision(args[0])
			if err != nil {
				return err
			}
			objType, data, err := r.Store.Read(h)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if showType {
				fmt.Fprintln(out, objType)
				return nil
			}

			switch objType {
			case object.TypeBlob:
				_, err := out.Write(data)
				return err
			case object.TypeCommit:
				c, err := object.UnmarshalCommit(data)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "tree %s\n", c.TreeHash)
				for _, p := range c.Parents {
					fmt.Fprintf(out, "parent %s\n", p)
				}
				fmt.Fprintf(out, "author %s\n", c.Author)
				fmt.Fprintf(out, "date %s\n", time.Unix(c.Timestamp, 0).UTC().Format(time.RFC3339))
				if c.Signature != "" {
					fmt.Fprintf(out, "signature %s\n", c.Signature)
				}
				fmt.Fprintf(out, "\n%s\n", c.Message)
				return nil
			case object.TypeTree:
				t, err := object.UnmarshalTree(data)
				if err != nil {
					return err
				}
				for _, e := range t.Entries {
					if e.IsDir {
						fmt.Fprintf(out, "%s tree %s %s\n", e.Mode, e.SubtreeHash, e.Name)
					} else {
						fmt.Fprintf(out, "%s blob %s %s\n", e.Mode, e.BlobHash, e.Name)
					}
				}
				return nil
			case object.TypeTag:
				t, err := object.UnmarshalTag(data)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "object %s\n", t.TargetHash)
				fmt.Fprintf(out, "type %s\n", t.TargetType)
				fmt.Fprintf(out, "tag %s\n", t.Name)
				fmt.Fprintf(out, "tagger %s\n", t.Tagger)
				fmt.Fprintf(out, "\n%s\n", t.Message)
				return nil
			default:
				return fmt.Errorf("unsupported object type %q", objType)
			}
		},
	}

	cmd.Flags().BoolVarP(&showType, "type", "t", false, "print the object type instead of its content")
	return cmd
}
