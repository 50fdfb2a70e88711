// Package cli - karte command line interface
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/alwitt/karte"
	"github.com/alwitt/karte/config"
	"github.com/alwitt/karte/db"
	"github.com/alwitt/karte/service"
	"github.com/apex/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	LogLevel   string

	// Config the loaded configuration, set before any subcommand runs
	Config config.Config
}

// NewRootCommand creates the root command for the karte CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "karte",
		Short: "karte - clinical visit records",
		Long: "Capture clinical visit notes as Markdown documents, indexed by a SQL database " +
			"for listing and editing.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := log.ParseLevel(opts.LogLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q [%w]", opts.LogLevel, err)
			}
			log.SetLevel(level)

			cfg, err := config.Load(opts.ConfigFile)
			if err != nil {
				return err
			}
			opts.Config = cfg
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "configuration file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug|info|warn|error)")

	// Add subcommands
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))

	return cmd
}

// openRecordService start the visit record service described by the configuration
func openRecordService(
	ctx context.Context, opts *RootOptions, registerer prometheus.Registerer,
) (service.RecordService, db.Client, error) {
	dialector, err := opts.Config.Database.Dialector()
	if err != nil {
		return nil, nil, err
	}
	documents, err := opts.Config.Documents.DocumentStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	return karte.NewVisitRecordService(ctx, karte.Params{
		DBDialector:  dialector,
		DBLogLevel:   opts.Config.Database.SQLLogLevel(),
		Documents:    documents,
		Registerer:   registerer,
		ListLimit:    opts.Config.Records.ListLimit,
		DefineTables: true,
	})
}

// runWithRecordService run an action against a freshly started record service
func runWithRecordService(
	cmd *cobra.Command, opts *RootOptions, action func(context.Context, service.RecordService) error,
) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	records, persistence, err := openRecordService(ctx, opts, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := persistence.Close(); err != nil {
			log.WithError(err).Error("Failed to close database")
		}
	}()
	return action(ctx, records)
}

func writeJSON(out io.Writer, value interface{}) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
