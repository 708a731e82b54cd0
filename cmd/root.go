package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/assetc/internal/version"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "assetc",
		Short: "Content-addressed asset compiler",
		Long: `Compile web assets with external compilers and publish the output next to
each source under a fingerprinted name, so unchanged sources are never rebuilt.`,
		SilenceUsage: true,
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", version.Version, version.Commit, version.BuildTime)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default: .assetc.yml found above the target, then the user config)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug logging")
	rootCmd.PersistentFlags().StringP("prefix", "p", "", "Prefix for generated filenames (default \"_\")")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Per-compiler timeout, 0 for none")
	rootCmd.PersistentFlags().String("hash", "", "Fingerprint hash: md5 or blake3 (default \"md5\")")
	rootCmd.PersistentFlags().Bool("precompress", false, "Also write a gzip copy of each artifact")
	rootCmd.PersistentFlags().StringP("manifest", "m", "", "Manifest file recording every artifact")

	rootCmd.AddCommand(
		newCompileCmd(),
		newCheckCmd(),
		newCatCmd(),
		newBatchCmd(),
		newBootCmd(),
		newCleanCmd(),
		newStatsCmd(),
		newConfigCmd(),
	)

	return rootCmd
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err != nil {
		stop()
		os.Exit(1)
	}
}
