// File: cmd/root.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/rtlsec/phishletgen-cli/internal/client"
	"github.com/rtlsec/phishletgen-cli/internal/config"
	"github.com/rtlsec/phishletgen-cli/internal/library"
	"github.com/rtlsec/phishletgen-cli/internal/observability"
	"github.com/rtlsec/phishletgen-cli/internal/prefs"
	"github.com/rtlsec/phishletgen-cli/internal/wizard"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "phishletgen",
	Short: "phishletgen turns a target login URL into a reviewable Evilginx phishlet",
	Long: `phishletgen drives the phishlet generation service: submit a target
login URL, watch the reconnaissance progress, review the findings, generate
and validate the phishlet YAML, and manage the saved library.

For authorized red team engagements only.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initializeConfig(); err != nil {
			return err
		}

		var cfg config.Config
		if err := viper.Unmarshal(&cfg); err != nil {
			observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "phishletgen"})
			return fmt.Errorf("failed to unmarshal config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			observability.InitializeLogger(cfg.Logger)
			return err
		}

		observability.InitializeLogger(cfg.Logger)
		appConfig = &cfg
		return nil
	},
}

// appConfig is the resolved configuration, set by PersistentPreRunE.
var appConfig *config.Config

// app bundles the wired components a command needs.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	client  *client.Client
	prefs   prefs.Store
	wizard  *wizard.Controller
	library *library.Store
}

// newApp wires the client, controller and library store from the resolved
// configuration.
func newApp() (*app, error) {
	logger := observability.GetLogger()

	store, err := prefs.NewFileStore()
	if err != nil {
		return nil, fmt.Errorf("opening preferences store: %w", err)
	}

	c := client.New(appConfig.API, logger)
	return &app{
		cfg:     appConfig,
		logger:  logger,
		client:  c,
		prefs:   store,
		wizard:  wizard.New(c, store, logger),
		library: library.New(c, logger),
	}, nil
}

// Execute runs the root command with the given context. Commands observe
// cancellation through cmd.Context().
func Execute(ctx context.Context) {
	defer observability.Sync()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command execution failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().String("api-url", "", "base URL of the generation service (overrides config)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	cobra.OnInitialize()
	_ = viper.BindPFlag("api.base_url", rootCmd.PersistentFlags().Lookup("api-url"))
}

// initializeConfig reads in the config file and environment variables.
func initializeConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	config.SetDefaults(viper.GetViper())
	viper.SetEnvPrefix("PHISHLETGEN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and env vars apply.
	}
	return nil
}
