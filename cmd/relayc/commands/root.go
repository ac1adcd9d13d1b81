// Package commands implements the relayc subcommands.
package commands

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const version = "v0.1.0-dev"

// NewRootCommand builds the relayc root command.
func NewRootCommand() *cobra.Command {
	var verbosity string
	cmd := &cobra.Command{
		Use:   "relayc",
		Short: "Partition computation graphs for offload backends",
		Long: `relayc loads a YAML graph description, decides which regions an
external backend can execute, and extracts those regions into
separately compiled functions.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level, err := logrus.ParseLevel(verbosity)
			if err != nil {
				return err
			}
			logrus.SetLevel(level)
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&verbosity, "log-level", "warn", "log verbosity (trace, debug, info, warn, error)")
	return cmd
}

// NewVersionCommand reports the relayc version.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the relayc version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("relayc %s\n", version)
		},
	}
}
