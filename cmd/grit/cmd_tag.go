package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newTagCmd() *cobra.Command {
	var deleteTag string
	var force bool
	var annotate bool
	var message string

	cmd := &cobra.Command{
		Use:   "tag [name] [target]",
		Short: "List, create, or delete tags",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}

			if strings.TrimSpace(deleteTag) != "" {
				if len(args) > 0 {
					return fmt.Errorf("tag --delete does not accept positional args")
				}
				return r.DeleteTag(deleteTag)
			}

			if len(args) == 0 {
				tags, err := r.ListTags()
				if err != nil {
					return err
				}
				for _, name := range tags {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}

			name := args[0]
			targetRev := "HEAD"
			if len(args) == 2 {
				targetRev = args[1]
			}
			target, err := r.ResolveRevision(targetRev)
			if err != nil {
				return fmt.Errorf("cannot resolve %s: %w", targetRev, err)
			}

			if annotate || message != "" {
				h, err := r.CreateAnnotatedTag(name, target, "", message, force)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "tagged %s as %s\n", shortHash(target), shortHash(h))
				return nil
			}
			return r.CreateTag(name, target, force)
		},
	}

	cmd.Flags().StringVarP(&deleteTag, "delete", "d", "", "delete the named tag")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "replace an existing tag")
	cmd.Flags().BoolVarP(&annotate, "annotate", "a", false, "create an annotated tag object")
	cmd.Flags().StringVarP(&message, "message", "m", "", "annotation message (implies --annotate)")
	return cmd
}
