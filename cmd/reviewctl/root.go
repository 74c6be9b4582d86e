package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tshaffer/memorappy/internal/bootstrap"
	"github.com/tshaffer/memorappy/internal/config"
	"github.com/tshaffer/memorappy/internal/core/ports"
	"github.com/tshaffer/memorappy/internal/observability/logging"
)

const service = "memorappy-cli"

// deps is what the subcommands need; tests swap in fakes.
type deps struct {
	query  ports.QueryResolver
	places ports.PlaceEnsurer
	close  func()
}

type opener func(ctx context.Context, logLevel string) (deps, error)

func openBootstrap(ctx context.Context, logLevel string) (deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return deps{}, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logger := logging.NewLogger(os.Stderr, service, cfg.LogLevel)

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Service: service, Logger: logger})
	if err != nil {
		return deps{}, fmt.Errorf("bootstrap: %w", err)
	}
	return deps{query: app.QueryUC, places: app.PlaceUC, close: app.Close}, nil
}

func newRootCmd(open opener) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:           "reviewctl",
		Short:         "Ask questions about your restaurant reviews",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level written to stderr (debug, info, warn, error)")

	withDeps := func(run func(cmd *cobra.Command, d deps, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			d, err := open(cmd.Context(), logLevel)
			if err != nil {
				return err
			}
			if d.close != nil {
				defer d.close()
			}
			return run(cmd, d, args)
		}
	}

	cmd.AddCommand(newQueryCmd(withDeps), newEnsurePlaceCmd(withDeps))
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
