package cmd

import (
	"github.com/spf13/cobra"
)

func newCatCmd() *cobra.Command {
	catCmd := &cobra.Command{
		Use:   "cat FILE",
		Short: "Print a compiled asset",
		Long:  `Compile the file if needed and write the artifact to standard output.`,
		Args:  cobra.ExactArgs(1),
		RunE:  runCat,
	}

	catCmd.Flags().String("compiler", "", "Registered compiler to use instead of the one matching the extension")

	return catCmd
}

func runCat(cmd *cobra.Command, args []string) error {
	req, err := requestFromFlags(cmd)
	if err != nil {
		return err
	}

	a, err := newApp(cmd, args)
	if err != nil {
		return err
	}
	defer a.Close()

	data, err := a.service.CompiledBytes(cmd.Context(), args[0], req)
	if err != nil {
		return err
	}

	_, err = cmd.OutOrStdout().Write(data)

	return err
}
