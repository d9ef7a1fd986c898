// File: cmd/aistatus.go
package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newAIStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ai-status",
		Short: "Report whether the service's AI enhancement is available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			status, err := a.client.AIStatus(cmd.Context())
			if err != nil {
				return err
			}

			if aiUsable(*status) {
				color.Green("AI enhancement available")
			} else {
				color.Yellow("AI enhancement unavailable")
			}
			fmt.Fprintf(os.Stderr, "  enabled:   %t\n", status.Enabled)
			fmt.Fprintf(os.Stderr, "  connected: %t\n", status.Connected)
			if status.Model != "" {
				fmt.Fprintf(os.Stderr, "  model:     %s\n", status.Model)
			}
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(newAIStatusCmd())
}
