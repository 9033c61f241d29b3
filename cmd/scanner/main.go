// File: cmd/scanner/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/smartdevs17/solana-mint-scanner/internal/config"
	"github.com/smartdevs17/solana-mint-scanner/internal/connection"
	"github.com/smartdevs17/solana-mint-scanner/pkg/utils"
)

// AppVersion contains the application version
const AppVersion = "1.0.0"

// CLI Commands

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "solscanner",
	Short:         "Solana token mint scanner",
	Long:          `Polls a fixed set of Solana program addresses for token transfers and reports each newly minted token once.`,
	Version:       AppVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runScanner,
}

// loadConfig loads and validates configuration, applying the --log-level flag
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = viper.GetString("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runScanner is the main command: scan until SIGINT or SIGTERM
func runScanner(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	app, err := NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.Run(ctx)
}

// onceCmd runs a single scan cycle
var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run exactly one scan cycle and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		app, err := NewApplication(cfg)
		if err != nil {
			return fmt.Errorf("failed to create application: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		result := app.RunOnce(ctx)
		fmt.Printf("Cycle complete: %d transactions, %d new mints, %d failed addresses in %s\n",
			result.Transactions, len(result.Events), result.Failures, result.Duration.Round(time.Millisecond))
		return nil
	},
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Solana Mint Scanner %s\n", AppVersion)
	},
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

// validateConfigCmd validates the configuration
var validateConfigCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}

		fmt.Printf("Configuration is valid!\n")
		fmt.Printf("Environment: %s\n", cfg.App.Environment)
		fmt.Printf("Helius API: %s\n", cfg.Helius.BaseURL)
		fmt.Printf("Interval: %s\n", cfg.Scanner.Interval)
		fmt.Printf("Limit: %d\n", cfg.Scanner.Limit)
		fmt.Printf("Storage: %s\n", cfg.Storage.Type)
		fmt.Printf("Addresses: %d\n", len(cfg.Scanner.Addresses))
		for _, addr := range cfg.Scanner.Addresses {
			fmt.Printf("  %-20s %s\n", addr.Label, addr.Address)
		}

		return nil
	},
}

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test connectivity and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := utils.InitLogger("warn", cfg.Logging.Format, "stdout", ""); err != nil {
			return err
		}

		fmt.Printf("Testing Helius connectivity at %s...\n", cfg.Helius.BaseURL)
		session := connection.NewHeliusClient(&cfg.Helius)
		defer session.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := checkAddresses(ctx, session, cfg.MonitoredAddresses(), os.Stdout); err != nil {
			return err
		}

		fmt.Println("\nAll connectivity tests passed! ✓")
		return nil
	},
}

// init initializes the CLI commands
func init() {
	// Add persistent flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")

	// Bind flags to viper
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))

	// Add subcommands
	rootCmd.AddCommand(onceCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(testCmd)
	configCmd.AddCommand(validateConfigCmd)
}

// main is the entry point
func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
