package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCleanCmd() *cobra.Command {
	cleanCmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove superseded artifacts",
		Long: `Remove artifacts recorded in the manifest that a newer compile of the same
source has replaced, along with records of artifacts already deleted.`,
		Args: cobra.NoArgs,
		RunE: runClean,
	}

	cleanCmd.Flags().Bool("reset", false, "Forget every remaining record after pruning")

	return cleanCmd
}

func runClean(cmd *cobra.Command, args []string) error {
	reset, err := cmd.Flags().GetBool("reset")
	if err != nil {
		return err
	}

	a, err := newApp(cmd, args)
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.openManifest()
	if err != nil {
		return err
	}

	removed, err := store.Prune()
	for _, e := range removed {
		fmt.Fprintf(cmd.OutOrStdout(), "removed\t%s\n", e.OutputPath)
	}

	if err != nil {
		return err
	}

	if reset {
		if err := store.Clear(); err != nil {
			return fmt.Errorf("failed to reset manifest: %w", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d artifacts removed\n", len(removed))

	return nil
}
