package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/aws-mcp/internal/automation"
	"github.com/pankaj-dahiya-devops/aws-mcp/internal/config"
	"github.com/pankaj-dahiya-devops/aws-mcp/internal/models"
)

func newHistoryCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history [operation]",
		Short: "Print the latest stored record per operation from history_db",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if cfg.HistoryDB == "" {
				return errors.New("history_db is not set in " + opts.configPath)
			}
			// Opening would create an empty database.
			if _, err := os.Stat(cfg.HistoryDB); err != nil {
				return fmt.Errorf("open history: %w", err)
			}

			sink, err := automation.OpenBoltSink(cfg.HistoryDB)
			if err != nil {
				return err
			}
			defer sink.Close()

			w := cmd.OutOrStdout()
			if len(args) == 0 {
				records, err := sink.Records()
				if err != nil {
					return err
				}
				if records == nil {
					records = []models.Record{}
				}
				return printJSON(w, records)
			}

			rec, ok, err := sink.Load(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no record for operation %q", args[0])
			}
			return printJSON(w, rec)
		},
	}
}
