// File: cmd/run.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formpilot/internal/browser/session"
	"github.com/xkilldash9x/formpilot/internal/config"
	"github.com/xkilldash9x/formpilot/internal/credlog"
	"github.com/xkilldash9x/formpilot/internal/identity"
	"github.com/xkilldash9x/formpilot/internal/observability"
	"github.com/xkilldash9x/formpilot/internal/signup"
)

// errAttemptUnsuccessful gives an attempt that failed before submission a
// non-zero exit status. The details have already been logged.
var errAttemptUnsuccessful = errors.New("sign-up attempt did not reach submission")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// flagBindings maps run flags onto config keys so they override file and env values.
var flagBindings = map[string]string{
	"url":         "target.url",
	"headless":    "browser.headless",
	"first-names": "names.first_names_file",
	"last-names":  "names.last_names_file",
	"credentials": "output.credentials_file",
}

// openerFunc builds the browser opener for a run; tests replace it.
var openerFunc = func(cfg *config.Config, logger *zap.Logger) signup.Opener {
	return func(ctx context.Context) (signup.Browser, error) {
		s, err := session.New(ctx, cfg.Browser, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

func newRunCmd() *cobra.Command {
	var asJSON bool

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Make one sign-up attempt against the configured target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			v, err := viperFrom(ctx)
			if err != nil {
				return err
			}
			for flag, key := range flagBindings {
				if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return err
				}
			}
			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			first, err := identity.LoadPool(cfg.Names.FirstNamesFile)
			if err != nil {
				return fmt.Errorf("loading first names: %w", err)
			}
			last, err := identity.LoadPool(cfg.Names.LastNamesFile)
			if err != nil {
				return fmt.Errorf("loading last names: %w", err)
			}
			sink, err := credlog.NewWriter(cfg.Output.CredentialsFile)
			if err != nil {
				return err
			}
			logger.Info("Loaded name lists.",
				zap.Int("first_names", len(first)),
				zap.Int("last_names", len(last)),
				zap.String("credentials_file", sink.Path()))

			runner := signup.NewRunner(logger, cfg, first, last, openerFunc(cfg, logger), sink)
			res, runErr := runner.RunOnce(ctx)
			if errors.Is(runErr, signup.ErrEmptyPool) {
				return runErr
			}

			if err := printResult(cmd.OutOrStdout(), res, asJSON); err != nil {
				return err
			}
			if runErr != nil {
				return fmt.Errorf("sign-up attempt %s: %s", res.AttemptID, signup.Describe(runErr))
			}
			if !res.Succeeded {
				return errAttemptUnsuccessful
			}
			return nil
		},
	}

	f := runCmd.Flags()
	f.String("url", "", "Sign-up page URL. (Overrides config/env)")
	f.Bool("headless", true, "Run the browser without a window.")
	f.String("first-names", "firstNames.txt", "File with one first name per line.")
	f.String("last-names", "lastNames.txt", "File with one last name per line.")
	f.String("credentials", "account_credentials.txt", "Append-only log of created accounts.")
	f.BoolVar(&asJSON, "json", false, "Print the attempt result as JSON.")
	return runCmd
}

func printResult(w io.Writer, res signup.Result, asJSON bool) error {
	if asJSON {
		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	}

	status := "FAILED"
	if res.Succeeded {
		status = "SUBMITTED"
	}
	fmt.Fprintf(w, "Attempt %s: %s (state %s, %s)\n", res.AttemptID, status, res.State, res.Duration.Round(time.Millisecond))
	if res.Identity.Username != "" {
		fmt.Fprintf(w, "  Name: %s  Username: %s\n", res.Identity.FullName(), res.Identity.Username)
	}
	if res.Logged {
		fmt.Fprintln(w, "  Credentials appended to the log.")
	}
	if res.Error != "" {
		fmt.Fprintf(w, "  Error: %s\n", res.Error)
	}
	return nil
}
