package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/assetc/internal/compiler"
)

func newBatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch DIR...",
		Short: "Compile every asset in directories",
		Long: `Compile every file directly inside each directory that matches a registered
compiler, in registration order. Subdirectories and hidden files are ignored.
Stops at the first failure.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runBatch,
	}
}

func runBatch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, args)
	if err != nil {
		return err
	}
	defer a.Close()

	for _, dir := range args {
		result, err := a.service.BatchCompile(cmd.Context(), dir)
		if result != nil {
			printBatch(cmd.OutOrStdout(), dir, result)
		}

		if err != nil {
			return err
		}
	}

	return nil
}

func printBatch(w io.Writer, dir string, result *compiler.BatchResult) {
	for _, asset := range result.Compiled {
		fmt.Fprintf(w, "compiled\t%s\n", asset.OutputPath)
	}

	fmt.Fprintf(w, "%s: %d compiled, %d up to date\n", dir, len(result.Compiled), len(result.Skipped))
}
