package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/assetc/internal/service"
)

func newCompileCmd() *cobra.Command {
	compileCmd := &cobra.Command{
		Use:   "compile FILE...",
		Short: "Compile assets",
		Long: `Compile each file with the compiler registered for its extension and print
the path of the artifact. Up-to-date artifacts are not rebuilt.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCompile,
	}

	compileCmd.Flags().String("compiler", "", "Registered compiler to use instead of the one matching the extension")
	compileCmd.Flags().String("logical", "", "Logical path of the source, printed with the generated filename")

	return compileCmd
}

func runCompile(cmd *cobra.Command, args []string) error {
	req, err := requestFromFlags(cmd)
	if err != nil {
		return err
	}

	if req.LogicalPath != "" && len(args) != 1 {
		return fmt.Errorf("--logical requires exactly one file argument")
	}

	a, err := newApp(cmd, args)
	if err != nil {
		return err
	}
	defer a.Close()

	for _, file := range args {
		path, err := a.service.Compile(cmd.Context(), file, req)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), path)
	}

	return nil
}

// requestFromFlags reads the per-request overrides present on cmd
func requestFromFlags(cmd *cobra.Command) (service.Request, error) {
	var req service.Request

	if cmd.Flags().Lookup("compiler") != nil {
		compiler, err := cmd.Flags().GetString("compiler")
		if err != nil {
			return req, err
		}

		req.Compiler = compiler
	}

	if cmd.Flags().Lookup("logical") != nil {
		logical, err := cmd.Flags().GetString("logical")
		if err != nil {
			return req, err
		}

		req.LogicalPath = logical
	}

	return req, nil
}
