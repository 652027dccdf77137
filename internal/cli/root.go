// Package cli provides the command-line interface for campusdesk.
package cli

import (
	"fmt"

	"github.com/raphaelgruber/campusdesk/internal/client"
	"github.com/raphaelgruber/campusdesk/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose   bool
	serverURL string
	token     string

	// Global config and API client
	cfg       config.Config
	apiClient *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "campusdesk",
	Short: "Todos and the College Guide assistant from the terminal",
	Long: `Campusdesk manages your todo list and lets you talk to the College Guide
assistant through a running campusdesk server.

Authenticate with a bearer token, either via --token or CAMPUSDESK_TOKEN.
Use "campusdesk token <user-id>" to mint one when you hold the server secret.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		if serverURL != "" {
			cfg.ServerURL = serverURL
		}
		if token != "" {
			cfg.Token = token
		}

		apiClient = client.New(cfg.ServerURL, cfg.Token, cfg.ClientTimeout)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the campusdesk version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "campusdesk %s\n", Version)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (default $CAMPUSDESK_SERVER_URL)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "bearer token (default $CAMPUSDESK_TOKEN)")

	// Add subcommands
	rootCmd.AddCommand(todoCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(versionCmd)
}
