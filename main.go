package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tablero/internal/api"
	"tablero/internal/httputil"
	"tablero/internal/logger"
	"tablero/internal/usercfg"
	"tablero/internal/version"

	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/spf13/cobra"
)

var updateCheckCh <-chan version.UpdateCheckResult

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "tablero",
	Short: "Work with boards, groups and items from the terminal",
	Long: `tablero is a terminal client for the boards API.

Open a board with 'tablero board <boardId>', list boards with 'tablero boards',
and manage groups, columns and items with the matching subcommands.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetVerbose(verbose)

		name := cmd.Name()
		if name != "update" && name != "version" {
			updateCheckCh = version.StartUpdateCheck()
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if updateCheckCh == nil {
			return
		}
		select {
		case result := <-updateCheckCh:
			if result.NewVersion != "" {
				fmt.Fprintf(os.Stderr, "\n\033[33mA new version of tablero is available: %s (current: %s)\033[0m\n", result.NewVersion, version.GetShortVersion())
				fmt.Fprintf(os.Stderr, "\033[33mRun 'tablero update' to upgrade.\033[0m\n")
			}
		case <-time.After(500 * time.Millisecond):
		}
	},
}

// configCmd provides config management subcommands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage tablero configuration",
	Long:  "Commands for managing tablero configuration files, migrations, and settings",
}

var configMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate config file to current schema version",
	Long:  "Load the config file, apply any necessary schema migrations, and save it back to disk with the current schema version",
	Run:   runConfigMigrate,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the path to the configuration file",
	Long:  "Display the path where tablero looks for its configuration file (XDG-compliant location)",
	Run:   runConfigPath,
}

var configPrintCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the current configuration",
	Long:  "Display the current effective configuration, including defaults and environment variable overlays",
	Run:   runConfigPrint,
}

var configGetCmd = &cobra.Command{
	Use:       "get <key>",
	Short:     "Get a configuration value",
	Long:      "Retrieve and display a specific configuration value",
	Args:      cobra.ExactArgs(1),
	ValidArgs: usercfg.Keys(),
	Run:       runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:       "set <key> <value>",
	Short:     "Set a configuration value",
	Long:      "Set a configuration value and save to file",
	Args:      cobra.ExactArgs(2),
	ValidArgs: usercfg.Keys(),
	Run:       runConfigSet,
}

var configDoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration health",
	Long:  "Validate configuration file, check that the API answers, and suggest fixes",
	Run:   runConfigDoctor,
}

// versionCmd displays version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  "Display version, build information, and platform details for tablero",
	Run:   runVersion,
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Self-update tablero to the latest release",
	Long:  "Check GitHub Releases for a newer version of tablero and replace the current binary.",
	Run:   runUpdate,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(updateCmd)

	configCmd.AddCommand(configMigrateCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configPrintCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configDoctorCmd)

	addBoardCommands(rootCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if isCancelled(err) {
			fmt.Println("\n\033[93mOperation cancelled by user.\033[0m")
			return
		}
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func isCancelled(err error) bool {
	return stderrors.Is(err, terminal.InterruptErr) || stderrors.Is(err, context.Canceled)
}

// newAPIClient builds the API client from the effective config.
func newAPIClient(cfg usercfg.Config) *api.Client {
	return api.NewClient(cfg.APIURL, httputil.NewRetryableClient(cfg.HTTPTimeout(), cfg.Retries()))
}

func runConfigMigrate(cmd *cobra.Command, args []string) {
	if err := usercfg.MigrateAndSave(); err != nil {
		fmt.Printf("Migration failed: %v\n", err)
		os.Exit(1)
	}
}

func runConfigPath(cmd *cobra.Command, args []string) {
	fmt.Println(usercfg.Path())
}

func runConfigPrint(cmd *cobra.Command, args []string) {
	config := usercfg.GetRuntimeConfig()

	fmt.Printf("Configuration (effective):\n")
	fmt.Printf("  Schema Version: %d\n", config.SchemaVersion)
	fmt.Printf("  API URL: %s\n", config.APIURL)
	fmt.Printf("  Web URL: %s\n", config.WebURL)
	fmt.Printf("  HTTP Timeout: %s\n", config.HTTPTimeout())
	fmt.Printf("  HTTP Retries: %d\n", config.Retries())
	fmt.Printf("  Highlight: %s\n", config.Highlight())
	fmt.Printf("  Default Board: %s\n", config.DefaultBoard)
	fmt.Printf("  UI Preferences: last board %q, %d recent board(s)\n", config.UIPrefs.LastBoard, len(config.UIPrefs.RecentBoards))
	fmt.Printf("\nConfig file location: %s\n", usercfg.Path())
}

func runConfigGet(cmd *cobra.Command, args []string) {
	config := usercfg.GetRuntimeConfig()
	value, err := config.Get(args[0])
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	fmt.Println(value)
}

func runConfigSet(cmd *cobra.Command, args []string) {
	key, value := args[0], args[1]

	config, err := usercfg.Load()
	if err != nil && err != usercfg.ErrNotConfigured {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := config.Set(key, value); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if problems := config.Validate(); len(problems) > 0 {
		for _, p := range problems {
			fmt.Printf("⚠️  %s\n", p)
		}
	}

	if err := usercfg.Save(config); err != nil {
		fmt.Printf("Failed to save config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

func runConfigDoctor(cmd *cobra.Command, args []string) {
	fmt.Println("🏥 tablero Configuration Doctor")
	fmt.Println("==============================")

	issues := 0

	configPath := usercfg.Path()
	legacyPath := usercfg.LegacyPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if _, err := os.Stat(legacyPath); os.IsNotExist(err) {
			fmt.Println("ℹ️  No config file found - using defaults")
			fmt.Printf("   Create one with: tablero config set api_url <url>\n")
		} else {
			fmt.Println("⚠️  Using legacy config path")
			fmt.Printf("   Consider migrating: tablero config migrate\n")
			fmt.Printf("   Legacy path: %s\n", legacyPath)
			fmt.Printf("   Preferred path: %s\n", configPath)
			issues++
		}
	} else {
		fmt.Println("✅ Config file found at XDG-compliant location")
	}

	config := usercfg.GetRuntimeConfig()

	if config.SchemaVersion < usercfg.CurrentSchemaVersion {
		fmt.Printf("⚠️  Config schema is outdated (v%d, current: v%d)\n", config.SchemaVersion, usercfg.CurrentSchemaVersion)
		fmt.Println("   Run: tablero config migrate")
		issues++
	} else {
		fmt.Printf("✅ Config schema is current (v%d)\n", config.SchemaVersion)
	}

	problems := config.Validate()
	for _, p := range problems {
		fmt.Printf("⚠️  %s\n", p)
	}
	issues += len(problems)
	if len(problems) == 0 {
		fmt.Printf("✅ API URL configured: %s\n", config.APIURL)
	}

	if config.WebURL == "" {
		fmt.Println("ℹ️  web_url not set - 'tablero open' will be unavailable")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()
	if boards, err := newAPIClient(config).ListBoards(ctx); err != nil {
		fmt.Println("⚠️  API is not reachable")
		fmt.Printf("   %s\n", err)
		issues++
	} else {
		fmt.Printf("✅ API reachable (%d boards)\n", len(boards))
	}

	fmt.Println()
	if issues == 0 {
		fmt.Println("🎉 No issues found! Configuration looks healthy.")
	} else {
		fmt.Printf("Found %d issue(s). See suggestions above.\n", issues)
		os.Exit(1)
	}
}

func runVersion(cmd *cobra.Command, args []string) {
	fmt.Println(version.GetVersionString())

	// synchronous since the user is asking about the version
	ch := version.StartUpdateCheck()
	select {
	case result := <-ch:
		if result.NewVersion != "" {
			fmt.Printf("\n\033[33mUpdate available: %s (current: %s)\033[0m\n", result.NewVersion, version.GetShortVersion())
			fmt.Println("\033[33mRun 'tablero update' to upgrade.\033[0m")
		}
	case <-time.After(5 * time.Second):
	}
}

func runUpdate(cmd *cobra.Command, args []string) {
	current := version.GetShortVersion()
	if current == "dev" {
		fmt.Println("Cannot self-update a dev build. Install a released version first.")
		return
	}

	fmt.Printf("Current version: %s\nChecking for updates...\n", current)

	installed, err := version.Update(cmd.Context(), current)
	if err != nil {
		fmt.Println(err)
		return
	}
	if installed == "" {
		fmt.Println("Already up to date.")
		return
	}
	fmt.Printf("Updated to %s\n", installed)
}
