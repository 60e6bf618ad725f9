package main

import (
	"fmt"
	"strconv"

	"github.com/grit-vcs/grit/pkg/repo"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config <key> [value]",
		Short: "Get or set repository configuration",
		Long: `Get or set repository configuration.

Supported keys:
  user.name          author name recorded in commits
  user.email         author email recorded in commits
  sign.key           default SSH key path for commit signing
  store.compression  whether loose objects are compressed (true/false)`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			cfg, err := r.ReadConfig()
			if err != nil {
				return err
			}

			key := args[0]
			if len(args) == 1 {
				value, err := configValue(cfg, key)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			}

			if err := setConfigValue(cfg, key, args[1]); err != nil {
				return err
			}
			return r.WriteConfig(cfg)
		},
	}
}

func configValue(cfg *repo.Config, key string) (string, error) {
	switch key {
	case "user.name":
		return cfg.User.Name, nil
	case "user.email":
		return cfg.User.Email, nil
	case "sign.key":
		return cfg.Sign.KeyPath, nil
	case "store.compression":
		return strconv.FormatBool(!cfg.Store.DisableCompression), nil
	default:
		return "", fmt.Errorf("unknown config key %q", key)
	}
}

func setConfigValue(cfg *repo.Config, key, value string) error {
	switch key {
	case "user.name":
		cfg.User.Name = value
	case "user.email":
		cfg.User.Email = value
	case "sign.key":
		cfg.Sign.KeyPath = value
	case "store.compression":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("store.compression expects true or false: %w", err)
		}
		cfg.Store.DisableCompression = !enabled
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}
