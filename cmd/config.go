// File: cmd/config.go
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/formpilot/internal/config"
)

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or scaffold the formpilot configuration",
	}
	configCmd.AddCommand(newConfigShowCmd(), newConfigInitCmd())
	return configCmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration after file and FORMPILOT_* overrides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := viperFrom(cmd.Context())
			if err != nil {
				return err
			}
			out, err := settingsYAML(v)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	var path string
	var force bool

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file holding every default",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			v := viper.New()
			config.SetDefaults(v)
			out, err := settingsYAML(v)
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, out, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s. Set target.url before running.\n", path)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&path, "out", "o", "config.yaml", "Where to write the file.")
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file.")
	return initCmd
}

func settingsYAML(v *viper.Viper) ([]byte, error) {
	out, err := yaml.Marshal(v.AllSettings())
	if err != nil {
		return nil, fmt.Errorf("encoding configuration: %w", err)
	}
	return out, nil
}
