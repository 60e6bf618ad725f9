package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGcCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gc",
		Short: "Remove objects unreachable from refs and reflogs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}

			summary, err := r.GC()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if summary.Removed == 0 {
				fmt.Fprintf(out, "nothing to remove; %d object(s) kept\n", summary.Kept)
				return nil
			}
			fmt.Fprintf(out, "removed %d unreachable object(s), kept %d\n", summary.Removed, summary.Kept)
			return nil
		},
	}
}

func newFsckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fsck",
		Short: "Check object integrity and reference completeness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}

			report, err := r.Fsck()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, h := range report.Corrupt {
				fmt.Fprintf(out, "corrupt: %s\n", h)
			}
			for _, d := range report.Dangling {
				fmt.Fprintf(out, "dangling: %s -> %s\n", d.From, d.Target)
			}
			if !report.OK() {
				return fmt.Errorf("fsck found %d corrupt and %d dangling reference(s)",
					len(report.Corrupt), len(report.Dangling))
			}
			fmt.Fprintf(out, "ok: verified %d object(s)\n", report.Checked)
			return nil
		},
	}
}
