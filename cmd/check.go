package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	checkCmd := &cobra.Command{
		Use:   "check FILE...",
		Short: "Report whether assets are compiled",
		Long: `Report whether the artifact for the current content of each file exists.
Nothing is compiled. Exits non-zero if any artifact is missing.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCheck,
	}

	checkCmd.Flags().String("compiler", "", "Registered compiler to use instead of the one matching the extension")

	return checkCmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	req, err := requestFromFlags(cmd)
	if err != nil {
		return err
	}

	a, err := newApp(cmd, args)
	if err != nil {
		return err
	}
	defer a.Close()

	missing := 0
	for _, file := range args {
		compiled, err := a.service.CheckCompiled(file, req)
		if err != nil {
			return err
		}

		status := "compiled"
		if !compiled {
			status = "missing"
			missing++
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", status, file)
	}

	if missing > 0 {
		return fmt.Errorf("%d of %d assets not compiled", missing, len(args))
	}

	return nil
}
