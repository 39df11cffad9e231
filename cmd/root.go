// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formpilot/internal/config"
	"github.com/xkilldash9x/formpilot/internal/observability"
)

type viperKeyType struct{}

var viperKey = viperKeyType{}

// NewRootCommand builds a fresh command tree. Each call returns independent
// flag and config state.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:           "formpilot",
		Short:         "formpilot fills and submits a two-step sign-up form in a real browser.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)
			if err := initializeConfig(v, cfgFile); err != nil {
				return err
			}

			var logCfg config.LoggerConfig
			if err := v.UnmarshalKey("logger", &logCfg); err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "formpilot"})
				return fmt.Errorf("failed to decode logger config: %w", err)
			}
			observability.InitializeLogger(logCfg)
			observability.GetLogger().Debug("Starting formpilot", zap.String("version", Version))

			cmd.SetContext(context.WithValue(cmd.Context(), viperKey, v))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(newRunCmd(), newNamesCmd(), newConfigCmd(), newVersionCmd())
	return rootCmd
}

// Execute runs the command tree against ctx, which should be cancelled on
// SIGINT/SIGTERM.
func Execute(ctx context.Context) error {
	defer observability.Sync()
	err := NewRootCommand().ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

// initializeConfig reads the config file, if any, and enables FORMPILOT_*
// environment overrides.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("FORMPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// viperFrom returns the viper instance the root command stored in ctx.
func viperFrom(ctx context.Context) (*viper.Viper, error) {
	v, ok := ctx.Value(viperKey).(*viper.Viper)
	if !ok || v == nil {
		return nil, errors.New("configuration not initialized")
	}
	return v, nil
}
