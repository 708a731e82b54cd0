package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show manifest statistics",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, args)
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.openManifest()
	if err != nil {
		return err
	}

	count, size, err := store.Stats()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Manifest: %s\nArtifacts: %d\nSize: %d bytes\n", store.Path(), count, size)

	return nil
}
