// File: cmd/names.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formpilot/internal/names"
	"github.com/xkilldash9x/formpilot/internal/observability"
)

func newNamesCmd() *cobra.Command {
	namesCmd := &cobra.Command{
		Use:   "names",
		Short: "Tools for preparing name lists",
	}

	var in, out string
	normalizeCmd := &cobra.Command{
		Use:   "normalize",
		Short: "Rewrite a name list so every line is capitalized (\"LOVELACE\" -> \"Lovelace\")",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := names.NormalizeFile(in, out)
			if err != nil {
				return err
			}
			observability.GetLogger().Info("Normalized name list.",
				zap.String("in", in), zap.String("out", out), zap.Int("lines", n))
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d lines to %s\n", n, out)
			return nil
		},
	}
	normalizeCmd.Flags().StringVar(&in, "in", "", "Input name list.")
	normalizeCmd.Flags().StringVar(&out, "out", "", "Output file; must differ from --in.")
	_ = normalizeCmd.MarkFlagRequired("in")
	_ = normalizeCmd.MarkFlagRequired("out")

	namesCmd.AddCommand(normalizeCmd)
	return namesCmd
}
