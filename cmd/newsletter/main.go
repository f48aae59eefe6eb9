// Package main implements the newsletter service binary.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/fyrsmithlabs/newsletter/internal/app"
	"github.com/fyrsmithlabs/newsletter/internal/config"
)

var (
	// configDir overrides the configuration directory.
	configDir string
	// envName overrides APP_ENVIRONMENT.
	envName string
	// configFormat selects the config command's output encoding.
	configFormat string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "newsletter",
	Short: "Newsletter subscription service",
	Long: `newsletter serves the subscription API and manages its database.

Configuration is read from base.yaml and <environment>.yaml in the
configuration directory, then overridden by APP_<SECTION>__<KEY>
environment variables. NEWSLETTER_LOG overrides the log filter.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", config.DefaultDir, "configuration directory")
	rootCmd.PersistentFlags().StringVar(&envName, "env", "", "environment (local or production); defaults to APP_ENVIRONMENT")
	configCmd.Flags().StringVarP(&configFormat, "output", "o", "json", "output format (json or yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// serveCmd runs the HTTP server until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Run the subscription API until SIGINT or SIGTERM.

Examples:
  # Serve with local configuration
  newsletter serve

  # Serve with production configuration
  APP_ENVIRONMENT=production newsletter serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// migrateCmd creates the database and applies the schema.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database and apply the schema",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

// configCmd prints the merged settings.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the merged configuration with secrets redacted",
	Long: `Print base.yaml merged with the environment overlay and APP_ variables.

Examples:
  # Print as JSON
  newsletter config

  # Print the production settings as YAML
  newsletter config --env production -o yaml`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func loadSettings() (*config.Settings, config.Environment, error) {
	env, err := resolveEnvironment()
	if err != nil {
		return nil, env, err
	}
	settings, err := config.LoadFromDir(configDir, env)
	if err != nil {
		return nil, env, fmt.Errorf("failed to read configuration: %w", err)
	}
	return settings, env, nil
}

func resolveEnvironment() (config.Environment, error) {
	if envName != "" {
		return config.ParseEnvironment(envName)
	}
	return config.ResolveEnvironment()
}

func runServe(cmd *cobra.Command, _ []string) error {
	settings, env, err := loadSettings()
	if err != nil {
		return err
	}

	application := fx.New(
		app.Module(settings, env),
		fx.StopTimeout(settings.Application.ShutdownTimeout.Duration()),
	)
	return runApp(cmd.Context(), application, true)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	settings, env, err := loadSettings()
	if err != nil {
		return err
	}

	application := fx.New(
		app.Observability(settings, env),
		app.Migrate(),
	)
	return runApp(cmd.Context(), application, false)
}

// runApp starts application and, when wait is set, blocks until a signal or
// a component requests shutdown.
func runApp(ctx context.Context, application *fx.App, wait bool) error {
	if err := application.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, application.StartTimeout())
	defer cancel()
	if err := application.Start(startCtx); err != nil {
		return err
	}

	exitCode := 0
	if wait {
		sig := <-application.Wait()
		exitCode = sig.ExitCode
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), application.StopTimeout())
	defer cancel()
	if err := application.Stop(stopCtx); err != nil {
		return err
	}
	if exitCode != 0 {
		return fmt.Errorf("shutdown requested with exit code %d", exitCode)
	}
	return nil
}

func runConfig(cmd *cobra.Command, _ []string) error {
	settings, env, err := loadSettings()
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(struct {
		Environment config.Environment `json:"environment"`
		*config.Settings
	}{env, settings}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	switch configFormat {
	case "json":
	case "yaml":
		var doc map[string]any
		if err := json.Unmarshal(out, &doc); err != nil {
			return fmt.Errorf("failed to encode configuration: %w", err)
		}
		if out, err = yaml.Parser().Marshal(doc); err != nil {
			return fmt.Errorf("failed to encode configuration: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format %q (want json or yaml)", configFormat)
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(string(out), "\n"))
	return nil
}
