// File: cmd/validate.go
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	validateCmd := &cobra.Command{
		Use:   "validate <yaml-file>",
		Short: "Validate a phishlet YAML file against the service",
		Long: `Validate sends the YAML content to the generation service and reports
structural errors and warnings. Pass "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			var content []byte
			if args[0] == "-" {
				content, err = io.ReadAll(cmd.InOrStdin())
			} else {
				content, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("reading input: %w", err)
			}

			result, err := a.client.Validate(cmd.Context(), string(content))
			if err != nil {
				return err
			}
			printValidation(result)
			if !result.Valid {
				return fmt.Errorf("phishlet is invalid")
			}
			return nil
		},
	}
	return validateCmd
}

func init() {
	rootCmd.AddCommand(newValidateCmd())
}
