// File: cmd/generate.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rtlsec/phishletgen-cli/api/schemas"
	"github.com/rtlsec/phishletgen-cli/internal/client"
	"github.com/rtlsec/phishletgen-cli/internal/wizard"
)

func newGenerateCmd() *cobra.Command {
	var (
		author      string
		useAI       bool
		customName  string
		outputPath  string
		saveToLib   bool
		tags        []string
		description string
		quick       bool
	)

	generateCmd := &cobra.Command{
		Use:   "generate <login-url>",
		Short: "Analyze a target login URL and generate a phishlet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			targetURL := args[0]

			a, err := newApp()
			if err != nil {
				return err
			}

			if author != "" {
				if err := a.wizard.SetAuthor(author); err != nil {
					return err
				}
			}
			a.wizard.SetUseAI(useAI)
			a.wizard.RefreshAIStatus(ctx)
			if useAI && !aiUsable(a.wizard.Snapshot().AIStatus) {
				color.Yellow("AI enhancement requested but the service reports it unavailable; continuing without it.")
			}

			if quick {
				return runQuickGenerate(ctx, a, targetURL, customName, outputPath)
			}

			session, err := runAnalysis(ctx, a.wizard, targetURL)
			if err != nil {
				return err
			}
			printReview(session.AnalysisResult)

			if err := a.wizard.Generate(ctx, customName); err != nil {
				return fmt.Errorf("generation failed: %w", err)
			}
			session = a.wizard.Snapshot()
			printAdvisories(session.GenerationResult)

			validation, err := a.wizard.ValidateText(ctx)
			if err != nil {
				a.logger.Warn("validation call failed", zap.Error(err))
			} else {
				printValidation(validation)
			}

			if saveToLib {
				saved, err := a.library.Save(ctx, schemas.SavedPhishletCreate{
					Name:        session.GenerationResult.Phishlet.Name,
					Author:      session.Author,
					TargetURL:   session.TargetURL,
					Description: description,
					Tags:        tags,
					YAMLContent: session.EditorText,
				})
				if err != nil {
					return err
				}
				color.Green("Saved to library as %s (id %s)", saved.Name, saved.ID)
			}

			return writeYAML(session.EditorText, outputPath)
		},
	}

	generateCmd.Flags().StringVar(&author, "author", "", "author name stamped into the phishlet (persisted)")
	generateCmd.Flags().BoolVar(&useAI, "use-ai", false, "request server-side AI enhancement if available")
	generateCmd.Flags().StringVar(&customName, "name", "", "override the suggested phishlet name")
	generateCmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the phishlet YAML to a file instead of stdout")
	generateCmd.Flags().BoolVar(&saveToLib, "save", false, "save the generated phishlet to the library")
	generateCmd.Flags().StringSliceVar(&tags, "tag", nil, "tags applied when saving (repeatable)")
	generateCmd.Flags().StringVar(&description, "description", "", "description applied when saving")
	generateCmd.Flags().BoolVar(&quick, "quick", false, "skip the review step: one-shot analyze-and-generate")
	return generateCmd
}

func aiUsable(status schemas.AIStatus) bool {
	return status.Enabled && status.Connected
}

// runAnalysis submits the URL and renders streamed progress until the
// controller settles in review (success) or back in input (failure).
func runAnalysis(ctx context.Context, ctrl *wizard.Controller, targetURL string) (wizard.Session, error) {
	bar := progressbar.NewOptions(schemas.DefaultTotalSteps,
		progressbar.OptionSetDescription("Analyzing target..."),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	done := make(chan wizard.Session, 1)
	unsubscribe := ctrl.Subscribe(func(s wizard.Session) {
		switch s.Phase {
		case wizard.PhaseAnalyzing:
			if s.Progress.Step > 0 {
				_ = bar.Set(s.Progress.Step)
			}
			if s.Progress.Message != "" {
				bar.Describe(s.Progress.Message)
			}
		case wizard.PhaseReview, wizard.PhaseInput:
			select {
			case done <- s:
			default:
			}
		}
	})
	defer unsubscribe()

	if err := ctrl.Submit(ctx, targetURL); err != nil {
		return wizard.Session{}, err
	}

	select {
	case s := <-done:
		_ = bar.Finish()
		if s.Phase != wizard.PhaseReview {
			return s, fmt.Errorf("analysis failed: %s", s.LastError)
		}
		return s, nil
	case <-ctx.Done():
		ctrl.Reset()
		return wizard.Session{}, ctx.Err()
	}
}

// runQuickGenerate drives the one-shot endpoint, bypassing review.
func runQuickGenerate(ctx context.Context, a *app, targetURL, customName, outputPath string) error {
	session := a.wizard.Snapshot()
	result, err := a.client.GenerateFromURL(ctx, client.GenerateFromURLRequest{
		URL:        targetURL,
		Author:     session.Author,
		UseAI:      session.UseAI && aiUsable(session.AIStatus),
		CustomName: customName,
	})
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	printAdvisories(result)
	return writeYAML(result.YAMLContent, outputPath)
}

func printReview(result *schemas.AnalysisResult) {
	header := color.New(color.FgCyan, color.Bold)
	header.Fprintln(os.Stderr, "\nAnalysis results")
	fmt.Fprintf(os.Stderr, "  Target:        %s\n", result.TargetURL)
	fmt.Fprintf(os.Stderr, "  Base domain:   %s\n", result.BaseDomain)
	fmt.Fprintf(os.Stderr, "  Page title:    %s\n", result.PageTitle)
	fmt.Fprintf(os.Stderr, "  Login path:    %s\n", result.LoginPath)
	fmt.Fprintf(os.Stderr, "  Domains:       %d discovered\n", len(result.DiscoveredDomains))
	fmt.Fprintf(os.Stderr, "  Login forms:   %d\n", len(result.LoginForms))
	fmt.Fprintf(os.Stderr, "  Auth steps:    %d\n", len(result.AuthFlowSteps))
	if result.HasMFA {
		color.Yellow("  MFA detected on the target")
	}
	if result.UsesJavascriptAuth {
		color.Yellow("  Target uses JavaScript-driven authentication")
	}
	if len(result.LoginForms) == 0 {
		color.Yellow("  No login forms detected; expect generation warnings")
	}
}

func printAdvisories(result *schemas.GenerationResult) {
	for _, w := range result.Warnings {
		color.Yellow("warning: %s", w)
	}
	for _, s := range result.Suggestions {
		fmt.Fprintf(os.Stderr, "suggestion: %s\n", s)
	}
	if unproxied := result.Phishlet.UnproxiedDomains(); len(unproxied) > 0 {
		color.Yellow("warning: domains referenced but not proxied: %s", strings.Join(unproxied, ", "))
	}
}

func printValidation(result *schemas.ValidationResult) {
	if result.Valid {
		color.Green("Validation passed (%d warnings)", len(result.Warnings))
	} else {
		color.Red("Validation failed with %d errors", len(result.Errors))
	}
	for _, e := range result.Errors {
		color.Red("  error: %s", e)
	}
	for _, w := range result.Warnings {
		color.Yellow("  warning: %s", w)
	}
}

func writeYAML(content, outputPath string) error {
	if outputPath == "" {
		fmt.Println(content)
		return nil
	}
	if err := os.WriteFile(outputPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outputPath, err)
	}
	color.Green("Phishlet written to %s", outputPath)
	return nil
}

func init() {
	rootCmd.AddCommand(newGenerateCmd())
}
