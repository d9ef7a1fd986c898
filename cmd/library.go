// File: cmd/library.go
package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rtlsec/phishletgen-cli/api/schemas"
)

func newLibraryCmd() *cobra.Command {
	libraryCmd := &cobra.Command{
		Use:   "library",
		Short: "Manage the saved phishlet library",
	}
	libraryCmd.AddCommand(newLibraryListCmd())
	libraryCmd.AddCommand(newLibraryShowCmd())
	libraryCmd.AddCommand(newLibrarySaveCmd())
	libraryCmd.AddCommand(newLibraryDeleteCmd())
	return libraryCmd
}

func newLibraryListCmd() *cobra.Command {
	var search string

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved phishlets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.library.Refresh(cmd.Context()); err != nil {
				return err
			}

			entries := a.library.Filter(search)
			if len(entries) == 0 {
				fmt.Println("No saved phishlets.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTARGET\tSTATUS\tTAGS\tCREATED")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					e.ID, e.Name, e.TargetURL, formatStatus(e.ValidationStatus),
					strings.Join(e.Tags, ","), e.CreatedAt.Format("2006-01-02"))
			}
			return w.Flush()
		},
	}

	listCmd.Flags().StringVarP(&search, "search", "s", "", "filter by name, target URL, or tag")
	return listCmd
}

func newLibraryShowCmd() *cobra.Command {
	var yamlOnly bool

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a saved phishlet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			entry, err := a.client.GetPhishlet(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if yamlOnly {
				fmt.Println(entry.YAMLContent)
				return nil
			}

			header := color.New(color.FgCyan, color.Bold)
			header.Fprintf(os.Stderr, "%s (%s)\n", entry.Name, entry.ID)
			fmt.Fprintf(os.Stderr, "  Author:      %s\n", entry.Author)
			fmt.Fprintf(os.Stderr, "  Target:      %s\n", entry.TargetURL)
			fmt.Fprintf(os.Stderr, "  Status:      %s\n", formatStatus(entry.ValidationStatus))
			if entry.Description != "" {
				fmt.Fprintf(os.Stderr, "  Description: %s\n", entry.Description)
			}
			if len(entry.Tags) > 0 {
				fmt.Fprintf(os.Stderr, "  Tags:        %s\n", strings.Join(entry.Tags, ", "))
			}
			fmt.Fprintf(os.Stderr, "  Created:     %s\n", entry.CreatedAt.Format("2006-01-02 15:04"))
			fmt.Println(entry.YAMLContent)
			return nil
		},
	}

	showCmd.Flags().BoolVar(&yamlOnly, "yaml", false, "print only the YAML content")
	return showCmd
}

func newLibrarySaveCmd() *cobra.Command {
	var (
		name        string
		targetURL   string
		description string
		tags        []string
	)

	saveCmd := &cobra.Command{
		Use:   "save <yaml-file>",
		Short: "Save a phishlet YAML file to the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			if name == "" {
				name = strings.TrimSuffix(args[0], ".yaml")
				name = strings.TrimSuffix(name, ".yml")
			}

			saved, err := a.library.Save(cmd.Context(), schemas.SavedPhishletCreate{
				Name:        name,
				Author:      a.prefs.Author(),
				TargetURL:   targetURL,
				Description: description,
				Tags:        tags,
				YAMLContent: string(content),
			})
			if err != nil {
				return err
			}
			color.Green("Saved %s (id %s)", saved.Name, saved.ID)
			return nil
		},
	}

	saveCmd.Flags().StringVar(&name, "name", "", "library entry name (defaults to the file name)")
	saveCmd.Flags().StringVar(&targetURL, "target-url", "", "target login URL recorded with the entry")
	saveCmd.Flags().StringVar(&description, "description", "", "entry description")
	saveCmd.Flags().StringSliceVar(&tags, "tag", nil, "tags (repeatable)")
	return saveCmd
}

func newLibraryDeleteCmd() *cobra.Command {
	var yes bool

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved phishlet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.library.Refresh(cmd.Context()); err != nil {
				return err
			}

			id := args[0]
			entry, ok := a.library.Get(id)
			if !ok {
				return fmt.Errorf("no saved phishlet with id %s", id)
			}

			a.library.RequestDelete(id)
			if !yes {
				fmt.Fprintf(os.Stderr, "Delete %q (%s)? [y/N]: ", entry.Name, entry.TargetURL)
				reader := bufio.NewReader(cmd.InOrStdin())
				answer, _ := reader.ReadString('\n')
				if answer := strings.ToLower(strings.TrimSpace(answer)); answer != "y" && answer != "yes" {
					a.library.CancelDelete(id)
					fmt.Fprintln(os.Stderr, "Aborted.")
					return nil
				}
			}

			if err := a.library.ConfirmDelete(cmd.Context(), id); err != nil {
				return err
			}
			color.Green("Deleted %s", entry.Name)
			return nil
		},
	}

	deleteCmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return deleteCmd
}

func formatStatus(status schemas.ValidationStatus) string {
	switch status {
	case schemas.ValidationValid:
		return color.GreenString(string(status))
	case schemas.ValidationInvalid:
		return color.RedString(string(status))
	default:
		return string(schemas.ValidationUnknown)
	}
}

func init() {
	rootCmd.AddCommand(newLibraryCmd())
}
