// Package cli provides the docgen command line interface.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the docgen command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docgen <application>",
		Short: "Generate OpenAPI documentation from application docstrings",
		Long: `docgen performs a one-shot static pass over an application's controllers,
permissions, serializers, URL table and views, validates the schema blocks
embedded in their docstrings, and writes a single OpenAPI document.

The application argument is a source directory, or a pre-extracted YAML
manifest when --manifest is set (or the argument ends in .yaml/.yml).`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var opts generateOptions
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Overwrite the output location")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format (json or yaml)")
	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "Path to a docgen config file")
	cmd.Flags().BoolVarP(&opts.Debug, "debug", "d", false, "Change the log level from the configured one to debug")
	cmd.Flags().BoolVarP(&opts.Manifest, "manifest", "m", false, "Treat the application argument as a manifest file")

	cmd.RunE = func(c *cobra.Command, args []string) error {
		opts.Target = args[0]
		return generate(c.OutOrStdout(), opts)
	}
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
