package main

import (
	"fmt"
	"strings"

	"github.com/grit-vcs/grit/pkg/repo"
	"github.com/spf13/cobra"
)

func newCommitCmd() *cobra.Command {
	var message string
	var sign bool
	var signKey string

	cmd := &cobra.Command{
		Use:   "commit [dir]",
		Short: "Snapshot a directory and record it on the current branch",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(message) == "" {
				return fmt.Errorf("commit message is required (-m)")
			}

			r, err := openRepo()
			if err != nil {
				return err
			}

			dir := r.RootDir
			if len(args) > 0 {
				dir = args[0]
			}
			m, err := manifestFromDir(r, dir)
			if err != nil {
				return err
			}

			var signer repo.CommitSigner
			if sign || signKey != "" {
				if signKey == "" {
					cfg, err := r.ReadConfig()
					if err != nil {
						return err
					}
					signKey = cfg.Sign.KeyPath
				}
				s, keyPath, err := repo.NewSSHSigner(signKey)
				if err != nil {
					return err
				}
				signer = s
				fmt.Fprintf(cmd.OutOrStdout(), "signing with %s\n", keyPath)
			}

			h, err := r.CommitWithSigner(m, repo.CommitMeta{Message: message}, signer)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "committed %s\n", shortHash(h))
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	cmd.Flags().BoolVarP(&sign, "sign", "S", false, "sign the commit with an SSH key")
	cmd.Flags().StringVar(&signKey, "sign-key", "", "path to the SSH signing key")
	return cmd
}
