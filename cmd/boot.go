package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "boot",
		Short: "Run the startup compile",
		Long: `Batch compile every directory listed in asset_paths, as a host does at
startup when each_boot is enabled.`,
		Args: cobra.NoArgs,
		RunE: runBoot,
	}
}

func runBoot(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, args)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.cfg.EachBoot {
		fmt.Fprintln(cmd.OutOrStdout(), "each_boot is disabled, nothing to compile")
		return nil
	}

	results, err := a.service.Boot(cmd.Context())
	for i, result := range results {
		printBatch(cmd.OutOrStdout(), a.cfg.AssetPaths[i], result)
	}

	return err
}
