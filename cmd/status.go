// File: cmd/status.go
package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check connectivity to the generation service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			aiStatus, list, err := a.client.Bootstrap(cmd.Context())
			if err != nil {
				color.Red("Service unreachable at %s", a.cfg.API.BaseURL)
				return err
			}

			color.Green("Service reachable at %s", a.cfg.API.BaseURL)
			fmt.Fprintf(os.Stderr, "  saved phishlets: %d\n", list.Total)
			if aiUsable(*aiStatus) {
				fmt.Fprintf(os.Stderr, "  AI enhancement:  available (%s)\n", aiStatus.Model)
			} else {
				fmt.Fprintln(os.Stderr, "  AI enhancement:  unavailable")
			}
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(newStatusCmd())
}
