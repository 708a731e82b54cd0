package cmd

import (
	"gopkg.in/yaml.v3"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config [PATH]",
		Short: "Print the effective configuration",
		Long: `Print the configuration that applies to PATH (default: the working directory)
after merging defaults, config files, environment and flags.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runConfig,
	}
}

func runConfig(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, args)
	if err != nil {
		return err
	}
	defer a.Close()

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)

	if err := enc.Encode(a.cfg); err != nil {
		return err
	}

	return enc.Close()
}
